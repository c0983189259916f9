package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressSourceRoundTrips(t *testing.T) {
	src := "#include \"Ops.cuh\"\n\nextern \"C\" void foo() {}\n"

	compressed, err := CompressSource(src)
	require.NoError(t, err)
	assert.NotEmpty(t, compressed)

	out, err := DecompressSource(compressed)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}
