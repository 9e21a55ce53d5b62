package license

import (
	"context"
	"time"

	"licenser/pkg/contracts/domain"
)

// Key is the natural key identifying a license or activation request.
// Matching is exact and case-sensitive on all three fields.
type Key struct {
	MachineID   string
	OwnerID     string
	ProductName string
}

// KeyOf builds the natural key of a license record.
func KeyOf(lic *domain.License) Key {
	return Key{
		MachineID:   lic.MachineID,
		OwnerID:     lic.OwnerID,
		ProductName: lic.ProductName,
	}
}

// RequestKeyOf builds the natural key of an activation request; the
// activation ID is the requesting machine's fingerprint.
func RequestKeyOf(req *domain.ActivationRequest) Key {
	return Key{
		MachineID:   req.ActivationID,
		OwnerID:     req.RequestedClientID,
		ProductName: req.ProductName,
	}
}

// Store is the persistence seam for license records. A lookup miss is
// (nil, nil), not an error.
type Store interface {
	FindByKey(ctx context.Context, key Key) (*domain.License, error)
	FindByID(ctx context.Context, id string) (*domain.License, error)
	List(ctx context.Context) ([]domain.License, error)
	Insert(ctx context.Context, lic *domain.License) error
	UpdateExpiry(ctx context.Context, id string, expiry *time.Time) error
	DeleteByID(ctx context.Context, id string) error
	ReassignOwner(ctx context.Context, fromOwnerID, toOwnerID string) error
}

// RequestStore is the persistence seam for activation requests.
// DeleteByKey must be idempotent: deleting an absent request is not an
// error.
type RequestStore interface {
	FindByKey(ctx context.Context, key Key) (*domain.ActivationRequest, error)
	List(ctx context.Context) ([]domain.ActivationRequest, error)
	Insert(ctx context.Context, req *domain.ActivationRequest) error
	DeleteByKey(ctx context.Context, key Key) error
	DeleteByID(ctx context.Context, id string) error
}
