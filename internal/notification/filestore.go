package notification

import (
	"context"
	"errors"
	"fmt"

	"PlannerEdu/pkg/jsonfile"
)

// FileStore keeps the snapshot in a single JSON file.
type FileStore struct {
	path   string
	writer jsonfile.Writer
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := NewSnapshot()
	if err := jsonfile.Read(s.path, snap); err != nil {
		if errors.Is(err, jsonfile.ErrNotExist) {
			return NewSnapshot(), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	snap.normalize()
	return snap, nil
}

func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.writer.Write(s.path, snap); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
