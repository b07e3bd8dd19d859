package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/audit-registry/interfaces"
)

// MultiStore writes records to a primary store and mirrors them to
// secondary stores. The primary is authoritative: Create and Put succeed or
// fail with it, mirror failures are only logged. Reads go to the primary and
// fall back to available mirrors when it fails.
type MultiStore struct {
	primary interfaces.RecordStore
	mirrors []interfaces.RecordStore
	log     *slog.Logger
}

// NewMultiStore creates a new multi-store with the first store as primary.
func NewMultiStore(stores []interfaces.RecordStore, logger *slog.Logger) (*MultiStore, error) {
	if len(stores) == 0 {
		return nil, errors.New("multi-store requires at least one store")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStore{
		primary: stores[0],
		mirrors: stores[1:],
		log:     logger,
	}, nil
}

// Get reads from the primary. Mirrors are consulted, if available, only when
// the primary fails with anything other than ErrNotFound.
func (m *MultiStore) Get(ctx context.Context, addr interfaces.RecordAddress) (*interfaces.Record, error) {
	start := time.Now()

	rec, err := m.primary.Get(ctx, addr)
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}

	errs := []error{fmt.Errorf("%s: %w", m.primary.Name(), err)}
	for _, store := range m.mirrors {
		if !store.Available(ctx) {
			m.log.Debug("Mirror unavailable",
				slog.String("store_name", store.Name()),
				slog.String("address", addr.String()))
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), interfaces.ErrBackendUnavailable))
			continue
		}

		rec, err := store.Get(ctx, addr)
		if err == nil {
			m.log.Warn("Fetched record from mirror",
				slog.String("store_name", store.Name()),
				slog.String("address", addr.String()),
				slog.Duration("duration", time.Since(start)))
			return rec, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
	}

	m.log.Error("All stores failed to fetch record",
		slog.String("address", addr.String()),
		slog.Int("failed_stores", len(errs)),
		slog.Duration("duration", time.Since(start)))
	return nil, fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, errors.Join(errs...))
}

func (m *MultiStore) Create(ctx context.Context, rec *interfaces.Record) error {
	if err := m.primary.Create(ctx, rec); err != nil {
		return err
	}
	m.mirror(ctx, rec)
	return nil
}

func (m *MultiStore) Put(ctx context.Context, rec *interfaces.Record) error {
	if err := m.primary.Put(ctx, rec); err != nil {
		return err
	}
	m.mirror(ctx, rec)
	return nil
}

func (m *MultiStore) mirror(ctx context.Context, rec *interfaces.Record) {
	for _, store := range m.mirrors {
		if !store.Available(ctx) {
			m.log.Warn("Mirror unavailable, skipping", slog.String("store_name", store.Name()))
			continue
		}
		if err := store.Put(ctx, rec); err != nil {
			m.log.Warn("Failed to mirror record",
				slog.String("store_name", store.Name()),
				slog.String("address", rec.Address.String()),
				"err", err)
		}
	}
}

// Available reports whether the primary store is available.
func (m *MultiStore) Available(ctx context.Context) bool {
	return m.primary.Available(ctx)
}

func (m *MultiStore) Name() string {
	return "multi-store"
}

func (m *MultiStore) LocationURI() string {
	var locations []string
	for _, store := range m.all() {
		locations = append(locations, store.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}

func (m *MultiStore) all() []interfaces.RecordStore {
	return append([]interfaces.RecordStore{m.primary}, m.mirrors...)
}
