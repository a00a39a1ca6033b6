package source

import (
	"context"
	"fmt"

	"github.com/ignite/visitor-insights/internal/datanorm"
	"github.com/ignite/visitor-insights/internal/storage"
)

// Object reads a CSV or XLSX export from object storage, typically an S3
// bucket the marketing tools drop exports into.
type Object struct {
	store storage.Store
	key   string
}

func NewObject(store storage.Store, key string) *Object {
	return &Object{store: store, key: key}
}

func (o *Object) Name() string { return "object:" + o.key }

func (o *Object) Fetch(ctx context.Context) ([]datanorm.Row, error) {
	rc, err := o.store.Open(ctx, o.key)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", o.key, err)
	}
	defer rc.Close()

	rows, err := datanorm.ReadFile(o.key, rc)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", o.key, err)
	}
	return tag(rows, o.Name()), nil
}
