package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/m3rciful/tripbot/core/logger"
)

// fileBackend keeps every user in one JSON object keyed by user id, the
// layout the bot has always written to disk.
type fileBackend struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a store backed by a single JSON document at path.
func NewFile(path string) (*DocStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return newDocStore("file", &fileBackend{path: path}), nil
}

// errCorruptFile refuses a write that would replace a document it cannot parse.
var errCorruptFile = errors.New("store file is corrupt; refusing to overwrite")

// readAll returns the document, or an empty one when the file is missing.
// An unparseable file also reads as empty but is reported through corrupt.
func (f *fileBackend) readAll() (doc map[string]json.RawMessage, corrupt bool, err error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	doc = map[string]json.RawMessage{}
	if len(data) == 0 {
		return doc, false, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Store.Warn("store file is corrupt; treating as empty",
			slog.String("event", "store.read"),
			slog.String("driver", "file"),
			slog.String("path", f.path),
			slog.String("err", err.Error()),
		)
		return map[string]json.RawMessage{}, true, nil
	}
	return doc, false, nil
}

func (f *fileBackend) get(_ context.Context, userID int64) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, _, err := f.readAll()
	if err != nil {
		return nil, false, err
	}
	p, ok := doc[userKey(userID)]
	return p, ok, nil
}

func (f *fileBackend) put(_ context.Context, userID int64, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, corrupt, err := f.readAll()
	if err != nil {
		return err
	}
	if corrupt {
		return fmt.Errorf("%s: %w", f.path, errCorruptFile)
	}
	doc[userKey(userID)] = payload

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *fileBackend) startingOn(_ context.Context, _ string) (map[int64][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, _, err := f.readAll()
	if err != nil {
		return nil, err
	}
	out := make(map[int64][]byte, len(doc))
	for key, p := range doc {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		out[id] = p
	}
	return out, nil
}

func (f *fileBackend) close() error { return nil }
