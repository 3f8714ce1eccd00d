// Package filestore persists uploaded files on local disk.
package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
)

// Local writes files under a base directory. References are flat file names
// generated by the caller; anything resembling a path is rejected.
type Local struct {
	dir string
}

// NewLocal creates the base directory if needed and returns a Local store.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create upload dir")
	}
	return &Local{dir: dir}, nil
}

// Save writes r to the file named by ref.
func (l *Local) Save(_ context.Context, ref string, r io.Reader) error {
	if ref == "" || strings.ContainsAny(ref, `/\`) || ref != filepath.Base(ref) {
		return errors.Errorf("invalid file reference %q", ref)
	}

	f, err := os.Create(filepath.Join(l.dir, ref))
	if err != nil {
		return errors.Wrap(err, "create file")
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return errors.Wrap(err, "write file")
	}
	return f.Close()
}

// Open reads the file named by ref.
func (l *Local) Open(ref string) (io.ReadCloser, error) {
	if ref == "" || strings.ContainsAny(ref, `/\`) || ref != filepath.Base(ref) {
		return nil, errors.Errorf("invalid file reference %q", ref)
	}
	return os.Open(filepath.Join(l.dir, ref))
}
