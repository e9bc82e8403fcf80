package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Source loads every record of one collection.
type Source[T any] interface {
	Load(ctx context.Context) ([]T, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func(ctx context.Context) ([]T, error)

func (f SourceFunc[T]) Load(ctx context.Context) ([]T, error) { return f(ctx) }

// StaticSource serves a fixed slice. Useful for tests and demos.
func StaticSource[T any](items ...T) Source[T] {
	return SourceFunc[T](func(context.Context) ([]T, error) {
		out := make([]T, len(items))
		copy(out, items)
		return out, nil
	})
}

// FileSource reads one collection out of a seed file: a JSON object whose
// keys are collection names and whose values are record arrays. The file is
// read on every Load so operators can edit it without a restart.
type FileSource[T any] struct {
	path string
	key  string
}

func NewFileSource[T any](path, key string) *FileSource[T] {
	return &FileSource[T]{path: path, key: key}
}

func (s *FileSource[T]) Load(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("directory: read seed file: %w", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("directory: decode seed file: %w", err)
	}
	raw, ok := doc[s.key]
	if !ok {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("directory: decode %s: %w", s.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
