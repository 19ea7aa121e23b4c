package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/varoOP/backlogdb/internal/domain"
	"gopkg.in/yaml.v3"
)

// LibraryVersion is written into every export
const LibraryVersion = 1

// FileRepository implements domain.LibraryRepository on a filesystem. Files ending in .yaml or
// .yml are YAML, everything else is JSON.
type FileRepository struct {
	log zerolog.Logger
	fs  afero.Fs
}

// NewFileRepository creates a new file-based repository
func NewFileRepository(log zerolog.Logger, fs afero.Fs) *FileRepository {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileRepository{
		log: log.With().Str("module", "repository").Logger(),
		fs:  fs,
	}
}

var _ domain.LibraryRepository = (*FileRepository)(nil)

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Get reads an exported library
func (r *FileRepository) Get(ctx context.Context, path string) (*domain.Library, error) {
	info, err := r.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	body, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	lib := &domain.Library{}
	if isYAML(path) {
		err = yaml.Unmarshal(body, lib)
	} else {
		err = json.Unmarshal(body, lib)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if lib.Version > LibraryVersion {
		return nil, fmt.Errorf("%s was written by a newer version (format %d)", path, lib.Version)
	}
	if lib.Kind != "" {
		if lib.Kind, err = domain.ParseKind(string(lib.Kind)); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	r.log.Debug().Str("path", path).Int("count", len(lib.Entries)).Msg("read library")
	return lib, nil
}

// Store writes lib to path, creating parent directories
func (r *FileRepository) Store(ctx context.Context, path string, lib *domain.Library) error {
	out := *lib
	out.Version = LibraryVersion
	if out.Entries == nil {
		out.Entries = []domain.Entry{}
	}

	var (
		b   []byte
		err error
	)
	if isYAML(path) {
		b, err = yaml.Marshal(&out)
	} else {
		b, err = json.MarshalIndent(&out, "", "   ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode library: %w", err)
	}

	dir := filepath.Dir(path)
	if err := r.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := afero.WriteFile(r.fs, path, b, 0644); err != nil {
		return fmt.Errorf("failed to write to file %s: %w", path, err)
	}

	r.log.Debug().Str("path", path).Int("count", len(out.Entries)).Msg("stored library")
	return nil
}
