package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ignite/visitor-insights/internal/datanorm"
)

// File reads a CSV or XLSX export from disk on every fetch.
type File struct {
	path string
}

func NewFile(path string) *File { return &File{path: path} }

func (f *File) Name() string { return "file:" + filepath.Base(f.path) }

func (f *File) Fetch(ctx context.Context) ([]datanorm.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer fh.Close()

	rows, err := datanorm.ReadFile(f.path, fh)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return tag(rows, f.Name()), nil
}
