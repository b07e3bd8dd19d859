package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ruteri/audit-registry/interfaces"
)

// MemoryStore keeps records in process memory. Records are copied on the way
// in and out so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[interfaces.RecordAddress]*interfaces.Record
	log     *slog.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(log *slog.Logger) *MemoryStore {
	if log == nil {
		log = slog.Default()
	}
	return &MemoryStore{
		records: make(map[interfaces.RecordAddress]*interfaces.Record),
		log:     log,
	}
}

func (s *MemoryStore) Get(ctx context.Context, addr interfaces.RecordAddress) (*interfaces.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[addr]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Create(ctx context.Context, rec *interfaces.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.Address]; ok {
		return interfaces.ErrAlreadyExists
	}
	s.records[rec.Address] = rec.Clone()

	s.log.Debug("Created record in memory", slog.String("address", rec.Address.String()))
	return nil
}

func (s *MemoryStore) Put(ctx context.Context, rec *interfaces.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.Address] = rec.Clone()
	return nil
}

func (s *MemoryStore) Available(ctx context.Context) bool {
	return true
}

func (s *MemoryStore) Name() string {
	return "memory"
}

func (s *MemoryStore) LocationURI() string {
	return "memory://"
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
