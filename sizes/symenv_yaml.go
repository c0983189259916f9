package sizes

import (
	"io"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// LoadSymEnv parses a YAML document mapping symbol names to natural-number
// bindings, e.g.:
//
//	N: 3
//	M: 4
//
// This gives compile.Compile callers a config-file-driven way to supply
// concrete sizes without a CLI layer (see SPEC_FULL.md, External Interfaces).
func LoadSymEnv(r io.Reader) (SymEnv, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading symbol-size environment")
	}
	var bindings map[string]uint64
	if err := yaml.Unmarshal(raw, &bindings); err != nil {
		return nil, errors.Wrap(err, "parsing symbol-size environment YAML")
	}
	return SymEnv(bindings), nil
}
