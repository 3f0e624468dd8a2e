package cookie

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/liuran001/MusicProxy-Go/proxy"
)

// Record maps provider names to cookie strings. On disk it is the JSON
// object {"netease": "...", "tencent": "..."}.
type Record map[string]string

func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Backend persists the whole cookie record.
type Backend interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
}

// FileBackend stores the record as an indented JSON document.
type FileBackend struct {
	path string
}

// NewFileBackend creates a backend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the JSON file location.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads the record. A missing file is an empty record.
func (b *FileBackend) Load(_ context.Context) (Record, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, nil
		}
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return Record{}, nil
	}
	rec := Record{}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse %s: %w", b.path, err)
	}
	return rec, nil
}

// Save replaces the file through a temp file and rename.
func (b *FileBackend) Save(_ context.Context, rec Record) error {
	if err := ensureParentDir(b.path); err != nil {
		return fmt.Errorf("create cookie directory: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// RepositoryBackend stores one row per provider through a CookieRepository.
type RepositoryBackend struct {
	repo proxy.CookieRepository
}

// NewRepositoryBackend wraps repo.
func NewRepositoryBackend(repo proxy.CookieRepository) *RepositoryBackend {
	return &RepositoryBackend{repo: repo}
}

func (b *RepositoryBackend) Load(ctx context.Context) (Record, error) {
	rows, err := b.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	return Record(rows), nil
}

func (b *RepositoryBackend) Save(ctx context.Context, rec Record) error {
	for provider, value := range rec {
		if err := b.repo.Upsert(ctx, provider, value); err != nil {
			return fmt.Errorf("save %s cookie: %w", provider, err)
		}
	}
	return nil
}
