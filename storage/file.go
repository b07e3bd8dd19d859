package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/audit-registry/interfaces"
)

// FileStore implements a record store using the local file system.
// Each record is one file named after its hex address.
type FileStore struct {
	baseDir     string
	recordsDir  string
	log         *slog.Logger
	locationURI string
}

// NewFileStore creates a new file record store in the specified base directory.
// It creates the records subdirectory if it doesn't exist.
func NewFileStore(baseDir string, log *slog.Logger) (*FileStore, error) {
	recordsDir := filepath.Join(baseDir, "records")
	if err := os.MkdirAll(recordsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create records directory: %w", err)
	}

	return &FileStore{
		baseDir:     baseDir,
		recordsDir:  recordsDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Get reads and decodes the record file for addr.
// Returns ErrNotFound if the file doesn't exist.
func (s *FileStore) Get(ctx context.Context, addr interfaces.RecordAddress) (*interfaces.Record, error) {
	filePath := s.getFilePath(addr)

	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, interfaces.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	s.log.Debug("Fetched record from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return DecodeRecord(addr, data)
}

// Create writes the record to a temporary file and hard-links it into place,
// so the record either appears complete or not at all. The link fails if the
// record file already exists.
func (s *FileStore) Create(ctx context.Context, rec *interfaces.Record) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}

	tmpPath, err := s.writeTemp(data)
	if err != nil {
		return err
	}
	defer os.Remove(tmpPath)

	filePath := s.getFilePath(rec.Address)
	if err := os.Link(tmpPath, filePath); err != nil {
		if errors.Is(err, os.ErrExist) {
			return interfaces.ErrAlreadyExists
		}
		return fmt.Errorf("failed to link record file: %w", err)
	}

	s.log.Debug("Created record file", slog.String("path", filePath))
	return nil
}

// Put replaces the record file atomically via rename.
func (s *FileStore) Put(ctx context.Context, rec *interfaces.Record) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}

	tmpPath, err := s.writeTemp(data)
	if err != nil {
		return err
	}

	filePath := s.getFilePath(rec.Address)
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace record file: %w", err)
	}

	s.log.Debug("Stored record file", slog.String("path", filePath))
	return nil
}

// Available checks if the file store is accessible by verifying the records directory exists.
func (s *FileStore) Available(ctx context.Context) bool {
	_, err := os.Stat(s.recordsDir)
	if err != nil {
		s.log.Debug("File store unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this store.
func (s *FileStore) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.baseDir))
}

// LocationURI returns the URI that identifies this store.
func (s *FileStore) LocationURI() string {
	return s.locationURI
}

func (s *FileStore) getFilePath(addr interfaces.RecordAddress) string {
	return filepath.Join(s.recordsDir, addr.String())
}

func (s *FileStore) writeTemp(data []byte) (string, error) {
	f, err := os.CreateTemp(s.recordsDir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return f.Name(), nil
}
