package compile

import (
	"io"

	"github.com/pkg/errors"
	"github.com/tscc-project/tscc/sizes"
	"github.com/tscc-project/tscc/types"
	"sigs.k8s.io/yaml"
)

// varPlacementEntry is one line of a compile-env config file:
//
//	- name: weights
//	  shape: [N, 128]
//	  dtype: float32
//	  placement: device
//
// shape entries are either a decimal literal (a fixed dimension) or a bare
// symbol name resolved against the same symbol environment the build's
// SymEnv supplies, matching sizes.SizeExpr's Fix/Sym split.
type varPlacementEntry struct {
	Name      string   `json:"name"`
	Shape     []string `json:"shape"`
	DType     string   `json:"dtype"`
	Placement string   `json:"placement"`
}

// LoadCompileEnv parses a YAML document listing every variable a build
// references and where its storage lives, giving a config-file-driven way
// to supply variable placement without a CLI layer.
func LoadCompileEnv(r io.Reader) (types.CompileEnv, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return types.CompileEnv{}, errors.Wrap(err, "reading compile-env config")
	}
	var entries []varPlacementEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return types.CompileEnv{}, errors.Wrap(err, "parsing compile-env config YAML")
	}

	env := types.NewCompileEnv()
	for _, e := range entries {
		dtype, ok := types.ParseTypeName(e.DType)
		if !ok {
			return types.CompileEnv{}, errors.Errorf("variable %q: unknown dtype %q", e.Name, e.DType)
		}
		shape := make(sizes.Shape, len(e.Shape))
		for i, dim := range e.Shape {
			shape[i] = parseDim(dim)
		}
		placement, err := parsePlacement(e.Placement)
		if err != nil {
			return types.CompileEnv{}, errors.Wrapf(err, "variable %q", e.Name)
		}
		vs := types.VarSpec{Name: e.Name, Shape: shape, DType: dtype}
		env = env.With(vs, placement)
	}
	return env, nil
}

func parseDim(s string) sizes.SizeExpr {
	n, err := parseUint(s)
	if err != nil {
		return sizes.Sym(s)
	}
	return sizes.Fix(n)
}

func parseUint(s string) (uint64, error) {
	var n uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.Errorf("not a decimal literal: %q", s)
		}
		n = n*10 + uint64(c-'0')
	}
	if s == "" {
		return 0, errors.New("empty dimension")
	}
	return n, nil
}

func parsePlacement(s string) (types.Placement, error) {
	switch s {
	case "host", "Host", "":
		return types.Host, nil
	case "device", "Device":
		return types.Device, nil
	default:
		return types.Host, errors.Errorf("unknown placement %q", s)
	}
}
