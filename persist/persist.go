// Package persist writes and reads the serialized combined dataset object.
// The on-disk format is a four-byte magic, a format version byte, then a
// gzip-compressed gob stream. Writes go through a temp file and a rename so
// a failed run never leaves a partial artifact behind.
package persist

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/carbocation/pfx"

	"github.com/scgenomics/scintegrate/integrate"
)

// ErrPersist indicates the output could not be written or read back.
var ErrPersist = errors.New("persistence failed")

var magic = []byte("SCI1")

const formatVersion byte = 1

// Filename returns the strategy-namespaced object filename for a run.
func Filename(strategy string) string {
	return "integration." + strategy + ".bin.gz"
}

// Save serializes the combined object into outdir and returns the written
// path. An existing artifact for the same strategy is overwritten
// atomically; artifacts for other strategies are untouched.
func Save(outdir string, c *integrate.Combined) (string, error) {
	var buf bytes.Buffer
	buf.Write(magic)
	buf.WriteByte(formatVersion)

	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(c); err != nil {
		gz.Close()
		return "", fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersist, err)
	}

	final := filepath.Join(outdir, Filename(c.Strategy))

	tmp, err := os.CreateTemp(outdir, Filename(c.Strategy)+".tmp*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersist, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersist, err)
	}

	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersist, err)
	}

	return final, nil
}

// Load reads a combined object back, verifying the magic and the format
// version before decoding.
func Load(path string) (*integrate.Combined, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	defer f.Close()

	header := make([]byte, len(magic)+1)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, pfx.Err(err))
	}
	if !bytes.Equal(header[:len(magic)], magic) {
		return nil, fmt.Errorf("%w: %s is not a combined dataset file", ErrPersist, path)
	}
	if header[len(magic)] != formatVersion {
		return nil, fmt.Errorf("%w: %s has format version %d, expected %d", ErrPersist, path, header[len(magic)], formatVersion)
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	defer gz.Close()

	var c integrate.Combined
	if err := gob.NewDecoder(gz).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	return &c, nil
}
