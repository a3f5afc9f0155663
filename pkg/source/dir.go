package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/bft-labs/lazyload/internal/ports"
)

// ErrNotFound is matched by errors for files a source does not have.
var ErrNotFound = fs.ErrNotExist

// Dir reads files from a file system. Names are slash-separated and relative
// to the root of the file system.
type Dir struct {
	fsys fs.FS
}

// NewDir creates a source over fsys.
func NewDir(fsys fs.FS) *Dir {
	return &Dir{fsys: fsys}
}

// Fetch implements ports.Source.
func (d *Dir) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := path.Clean(strings.TrimPrefix(name, "/"))
	if !fs.ValidPath(clean) {
		return nil, fmt.Errorf("fetch %s: %w", name, fs.ErrInvalid)
	}
	data, err := fs.ReadFile(d.fsys, clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("fetch %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	return data, nil
}

var _ ports.Source = (*Dir)(nil)
