package codegen

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// CompressSource zstd-compresses one of a Recipe's generated source
// strings, for callers that persist recipes to disk or ship them over a
// network rather than feeding them straight to a compiler toolchain.
func CompressSource(source string) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, errors.Wrap(err, "opening zstd writer")
	}
	if _, err := w.Write([]byte(source)); err != nil {
		w.Close()
		return nil, errors.Wrap(err, "compressing source")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "closing zstd writer")
	}
	return buf.Bytes(), nil
}

// DecompressSource reverses CompressSource.
func DecompressSource(compressed []byte) (string, error) {
	r, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return "", errors.Wrap(err, "opening zstd reader")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "decompressing source")
	}
	return string(out), nil
}
