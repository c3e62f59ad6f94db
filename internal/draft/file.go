package draft

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	appLog "weekendbot/internal/log"
	"weekendbot/internal/model"
)

// FileStore keeps the draft set as JSON in <dir>/<key>.json.
type FileStore struct {
	dir string
	key string
}

// NewFileStore returns a store under dir. An empty key means DefaultKey.
func NewFileStore(dir, key string) *FileStore {
	if dir == "" {
		// Caller should set this explicitly; a relative dir keeps
		// development runs working without extra permissions.
		dir = "./var/draft"
	}
	if key == "" {
		key = DefaultKey
	}
	return &FileStore{dir: dir, key: key}
}

func (s *FileStore) path() string {
	return filepath.Join(s.dir, s.key+".json")
}

// Save writes the draft set atomically via a temp file and rename.
func (s *FileStore) Save(_ context.Context, events []model.Event) error {
	data, err := encode(events)
	if err != nil {
		return &PersistenceError{Op: "save", Key: s.key, Err: err}
	}
	if err := writeAtomic(s.path(), data); err != nil {
		return &PersistenceError{Op: "save", Key: s.key, Err: err}
	}
	appLog.Info("draft saved", "backend", "file", "path", s.path(), "event_count", len(events))
	return nil
}

// Load reads the draft set, or returns an empty list if none is stored.
func (s *FileStore) Load(_ context.Context) ([]model.Event, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []model.Event{}, nil
		}
		return nil, &PersistenceError{Op: "load", Key: s.key, Err: err}
	}

	events, err := decode(data)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Key: s.key, Err: err}
	}
	appLog.Info("draft loaded", "backend", "file", "path", s.path(), "event_count", len(events))
	return events, nil
}

// Clear removes the draft file; a missing file is not an error.
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &PersistenceError{Op: "clear", Key: s.key, Err: err}
	}
	appLog.Info("draft cleared", "backend", "file", "path", s.path())
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".weekendbot-draft-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
