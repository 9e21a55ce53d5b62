package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"licenser/pkg/contracts/domain"
)

// ErrInvalidProductName is returned when a caller supplies a blank
// product name. This is a configuration error on the caller's side,
// not a persistence error.
var ErrInvalidProductName = errors.New("product name is empty")

// Service is the single source of truth for license validity and
// upsert semantics.
type Service struct {
	store    Store
	requests RequestStore
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a license service over the given stores. The
// clock defaults to time.Now and is injectable for tests.
func NewService(store Store, requests RequestStore, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		requests: requests,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "license_service")),
	}
}

// WithClock replaces the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Check looks up the unique license for the triple and decides its
// status at the current time. The decision is recomputed on every
// call and never cached.
func (s *Service) Check(ctx context.Context, key Key) (domain.LicenseStatus, error) {
	if strings.TrimSpace(key.ProductName) == "" {
		return domain.LicenseInvalid, ErrInvalidProductName
	}

	lic, err := s.store.FindByKey(ctx, key)
	if err != nil {
		return domain.LicenseInvalid, fmt.Errorf("license lookup failed: %w", err)
	}

	status := StatusOf(lic, s.now())

	s.logger.DebugContext(ctx, "license checked",
		slog.String("machine_id", key.MachineID),
		slog.String("owner_id", key.OwnerID),
		slog.String("product", key.ProductName),
		slog.String("status", status.String()),
	)

	return status, nil
}

// Upsert inserts a new license for the triple, or, when one already
// exists, updates only its expiry date. Machine, owner and product
// identity of an issued license are immutable: re-activation extends
// or renews, it never silently changes ownership bindings.
//
// Issuing a license also deletes any pending activation request for
// the same triple; the deletion is idempotent.
func (s *Service) Upsert(ctx context.Context, lic *domain.License) error {
	if lic == nil {
		return errors.New("license must not be nil")
	}
	if strings.TrimSpace(lic.ProductName) == "" {
		return ErrInvalidProductName
	}

	existing, err := s.store.FindByKey(ctx, KeyOf(lic))
	if err != nil {
		return fmt.Errorf("license lookup failed: %w", err)
	}

	if existing == nil {
		if lic.ID == "" {
			lic.ID = uuid.NewString()
		}
		if lic.IssueDate == nil {
			now := s.now()
			lic.IssueDate = &now
		}
		if err := s.store.Insert(ctx, lic); err != nil {
			return fmt.Errorf("license insert failed: %w", err)
		}
		s.logger.InfoContext(ctx, "license issued",
			slog.String("license_id", lic.ID),
			slog.String("machine_id", lic.MachineID),
			slog.String("owner_id", lic.OwnerID),
			slog.String("product", lic.ProductName),
		)
	} else {
		// Existing license: only the expiry date may change.
		if err := s.store.UpdateExpiry(ctx, existing.ID, lic.ExpiryDate); err != nil {
			return fmt.Errorf("license expiry update failed: %w", err)
		}
		s.logger.InfoContext(ctx, "license renewed",
			slog.String("license_id", existing.ID),
			slog.String("product", existing.ProductName),
		)
	}

	// Keep pending requests consistent with licensed state. There is
	// no transaction spanning both writes; the delete is idempotent so
	// a retry converges.
	if err := s.requests.DeleteByKey(ctx, KeyOf(lic)); err != nil {
		return fmt.Errorf("activation request cleanup failed: %w", err)
	}

	return nil
}

// Get returns the license with the given id, or (nil, nil).
func (s *Service) Get(ctx context.Context, id string) (*domain.License, error) {
	return s.store.FindByID(ctx, id)
}

// List returns all stored licenses.
func (s *Service) List(ctx context.Context) ([]domain.License, error) {
	return s.store.List(ctx)
}

// Delete removes the license with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteByID(ctx, id)
}

// DeletedUserID is the sentinel owner a license is reassigned to when
// the owning user account disappears. History is preserved; ownership
// is parked rather than deleted.
const DeletedUserID = "deleted-user"

// ReleaseOwner reassigns all licenses of the given owner to the
// sentinel deleted-user record.
func (s *Service) ReleaseOwner(ctx context.Context, ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return errors.New("owner id is empty")
	}
	return s.store.ReassignOwner(ctx, ownerID, DeletedUserID)
}
