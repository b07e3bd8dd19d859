package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/audit-registry/interfaces"
	"github.com/ruteri/audit-registry/metrics"
)

const (
	opCreate = "create"
	opUpdate = "update"
	opGet    = "get"
)

// Service implements interfaces.RecordRegistry on top of a RecordStore.
// Operations on the same record address are serialized; the caller identity
// is trusted and must be authenticated by the host.
type Service struct {
	store   interfaces.RecordStore
	deriver interfaces.AddressDeriver
	log     *slog.Logger
	metrics *metrics.Metrics
	locks   *addressLocks
}

// NewService creates a registry service backed by store, deriving record
// addresses with deriver.
func NewService(store interfaces.RecordStore, deriver interfaces.AddressDeriver, log *slog.Logger) *Service {
	return &Service{
		store:   store,
		deriver: deriver,
		log:     log,
		locks:   newAddressLocks(),
	}
}

// SetMetrics enables operation metrics.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// DeriveAddress returns the record address and bump for owner.
func (s *Service) DeriveAddress(owner interfaces.OwnerID) (interfaces.RecordAddress, uint8, error) {
	return s.deriver.Derive(owner)
}

// CreateRecord allocates the caller's record with the given version and an
// empty metadata URI. A record can be created once per owner.
func (s *Service) CreateRecord(ctx context.Context, caller interfaces.OwnerID, version uint64) (*interfaces.Record, error) {
	start := time.Now()
	rec, err := s.createRecord(ctx, caller, version)
	s.observe(opCreate, err, start)
	if err != nil {
		s.log.Debug("record creation rejected", "owner", caller.String(), "version", version, "err", err)
		return nil, err
	}

	s.log.Info("record created", "owner", caller.String(), "address", rec.Address.String(), "bump", rec.Bump, "version", rec.Version)
	return rec, nil
}

func (s *Service) createRecord(ctx context.Context, caller interfaces.OwnerID, version uint64) (*interfaces.Record, error) {
	if version == 0 {
		return nil, interfaces.ErrInvalidVersion
	}

	addr, bump, err := s.deriver.Derive(caller)
	if err != nil {
		return nil, fmt.Errorf("failed to derive record address: %w", err)
	}

	unlock := s.locks.lock(addr)
	defer unlock()

	rec := &interfaces.Record{
		Owner:   caller,
		Address: addr,
		Bump:    bump,
		Version: version,
	}

	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, interfaces.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to store record: %w", err)
	}

	return rec.Clone(), nil
}

// UpdateRecord replaces the metadata of the caller's own record.
func (s *Service) UpdateRecord(ctx context.Context, caller interfaces.OwnerID, payload interfaces.MetadataInput) error {
	return s.UpdateRecordOf(ctx, caller, caller, payload)
}

// UpdateRecordOf replaces the metadata URI and checksum of owner's record.
// Preconditions are checked in order, before anything is written: the record
// exists, caller is its authority, the stored bump reproduces the address,
// and the URI fits in URILimit bytes.
func (s *Service) UpdateRecordOf(ctx context.Context, caller, owner interfaces.OwnerID, payload interfaces.MetadataInput) error {
	start := time.Now()
	err := s.updateRecordOf(ctx, caller, owner, payload)
	s.observe(opUpdate, err, start)
	if err != nil {
		if errors.Is(err, interfaces.ErrAddressBindingInvalid) {
			s.log.Warn("stored record does not match its derivation", "owner", owner.String(), "err", err)
		} else {
			s.log.Debug("record update rejected", "caller", caller.String(), "owner", owner.String(), "err", err)
		}
		return err
	}

	s.log.Info("record metadata updated", "owner", owner.String(), "uri", payload.URI, "checksum", payload.Checksum.String())
	return nil
}

func (s *Service) updateRecordOf(ctx context.Context, caller, owner interfaces.OwnerID, payload interfaces.MetadataInput) error {
	addr, _, err := s.deriver.Derive(owner)
	if err != nil {
		return fmt.Errorf("failed to derive record address: %w", err)
	}

	unlock := s.locks.lock(addr)
	defer unlock()

	rec, err := s.store.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to load record: %w", err)
	}

	if !rec.Owner.Equal(caller) {
		return interfaces.ErrUnauthorized
	}

	if err := s.deriver.Verify(caller, rec.Bump, addr); err != nil {
		return fmt.Errorf("record %s: %w", addr.String(), interfaces.ErrAddressBindingInvalid)
	}

	if len(payload.URI) > interfaces.URILimit {
		return interfaces.ErrURITooLong
	}

	updated := rec.Clone()
	updated.Address = addr
	updated.MetadataURI = payload.URI
	updated.MetadataChecksum = payload.Checksum

	if err := s.store.Put(ctx, updated); err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}
	return nil
}

// GetRecord returns owner's record after checking that it is bound to its
// derived address.
func (s *Service) GetRecord(ctx context.Context, owner interfaces.OwnerID) (*interfaces.Record, error) {
	start := time.Now()
	rec, err := s.getRecord(ctx, owner)
	s.observe(opGet, err, start)
	return rec, err
}

func (s *Service) getRecord(ctx context.Context, owner interfaces.OwnerID) (*interfaces.Record, error) {
	addr, _, err := s.deriver.Derive(owner)
	if err != nil {
		return nil, fmt.Errorf("failed to derive record address: %w", err)
	}

	rec, err := s.store.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}

	if !rec.Owner.Equal(owner) {
		return nil, fmt.Errorf("record %s has a foreign owner: %w", addr.String(), interfaces.ErrAddressBindingInvalid)
	}
	if err := s.deriver.Verify(owner, rec.Bump, addr); err != nil {
		return nil, fmt.Errorf("record %s: %w", addr.String(), interfaces.ErrAddressBindingInvalid)
	}

	rec.Address = addr
	return rec, nil
}

func (s *Service) observe(op string, err error, start time.Time) {
	result := "ok"
	if err != nil {
		result = interfaces.ErrorKind(err)
	}
	s.metrics.ObserveOperation(op, result, time.Since(start))
}
