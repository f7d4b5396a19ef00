// Package store keeps the best time in a single-slot file that survives
// power loss. Writes go to a temp file that is synced and renamed over the
// old one, so a reader sees either the previous record or the new one.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comalice/reflex/internal/game"
)

var (
	ErrCorrupt       = errors.New("best time record corrupt")
	ErrUnknownFormat = errors.New("unknown store format")
)

// Store is the durable best-time slot. Load returns game.NoBestTime when
// nothing has been written yet.
type Store interface {
	Load(ctx context.Context) (uint16, error)
	Save(ctx context.Context, best uint16) error
}

// Record is the on-disk layout.
type Record struct {
	BestMS    uint16    `json:"best_ms" yaml:"best_ms"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

type codec struct {
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

var codecs = map[string]codec{
	"yaml": {marshal: yaml.Marshal, unmarshal: yaml.Unmarshal},
	"json": {
		marshal:   func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") },
		unmarshal: json.Unmarshal,
	},
}

// FileStore is a file-backed Store in YAML or JSON.
type FileStore struct {
	mu     sync.Mutex
	path   string
	format string
	codec  codec
	now    func() time.Time
}

// Open creates a FileStore at path, making the parent directory. An empty
// format is inferred from the extension: .json is JSON, anything else YAML.
func Open(path, format string) (*FileStore, error) {
	if format == "" {
		format = FormatFor(path)
	}
	c, ok := codecs[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &FileStore{path: path, format: format, codec: c, now: time.Now}, nil
}

func NewYAMLStore(path string) (*FileStore, error) { return Open(path, "yaml") }

func NewJSONStore(path string) (*FileStore, error) { return Open(path, "json") }

// FormatFor infers a store format from a file name.
func FormatFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "yaml"
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Format() string { return s.format }

func (s *FileStore) Load(ctx context.Context) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return game.NoBestTime, nil
		}
		return game.NoBestTime, fmt.Errorf("read %s: %w", s.path, err)
	}

	var rec Record
	if err := s.codec.unmarshal(data, &rec); err != nil {
		return game.NoBestTime, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	return rec.BestMS, nil
}

func (s *FileStore) Save(ctx context.Context, best uint16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.codec.marshal(Record{BestMS: best, UpdatedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("%s marshal: %w", s.format, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", s.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename to %s: %w", s.path, err)
	}
	return nil
}

// Memory is a volatile Store for tests and headless runs.
type Memory struct {
	mu   sync.Mutex
	best uint16
	set  bool
}

func (m *Memory) Load(ctx context.Context) (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return game.NoBestTime, nil
	}
	return m.best, nil
}

func (m *Memory) Save(ctx context.Context, best uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.best, m.set = best, true
	return nil
}

var (
	_ Store      = (*FileStore)(nil)
	_ Store      = (*Memory)(nil)
	_ game.Saver = (*FileStore)(nil)
)
