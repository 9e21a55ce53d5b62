package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"licenser/internal/license"
	"licenser/pkg/contracts/domain"
)

// activationRequestRecord is the gorm model for a pending activation
// request. At most one outstanding request exists per triple.
type activationRequestRecord struct {
	ID                      string    `gorm:"primaryKey"`
	ActivationID            string    `gorm:"not null;uniqueIndex:idx_activation_key"`
	RequestedClientID       string    `gorm:"not null;uniqueIndex:idx_activation_key"`
	RequestedClientUserName string
	ProductName             string    `gorm:"not null;uniqueIndex:idx_activation_key"`
	Timestamp               time.Time
	CreatedAt               time.Time
}

func (activationRequestRecord) TableName() string { return "activation_requests" }

func (r *activationRequestRecord) toDomain() *domain.ActivationRequest {
	return &domain.ActivationRequest{
		ID:                      r.ID,
		ActivationID:            r.ActivationID,
		RequestedClientID:       r.RequestedClientID,
		RequestedClientUserName: r.RequestedClientUserName,
		ProductName:             r.ProductName,
		Timestamp:               r.Timestamp,
	}
}

// ActivationRequestStore is the gorm-backed implementation of
// license.RequestStore.
type ActivationRequestStore struct {
	db *gorm.DB
}

// NewActivationRequestStore creates an activation request store over
// the given database.
func NewActivationRequestStore(db *gorm.DB) *ActivationRequestStore {
	return &ActivationRequestStore{db: db}
}

// FindByKey looks up the outstanding request for the triple. A miss
// yields (nil, nil).
func (s *ActivationRequestStore) FindByKey(ctx context.Context, key license.Key) (*domain.ActivationRequest, error) {
	var rec activationRequestRecord
	err := s.db.WithContext(ctx).
		Where("activation_id = ? AND requested_client_id = ? AND product_name = ?",
			key.MachineID, key.OwnerID, key.ProductName).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("activation request query failed: %w", err)
	}
	return rec.toDomain(), nil
}

// List returns all outstanding activation requests.
func (s *ActivationRequestStore) List(ctx context.Context) ([]domain.ActivationRequest, error) {
	var recs []activationRequestRecord
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("activation request query failed: %w", err)
	}

	requests := make([]domain.ActivationRequest, 0, len(recs))
	for i := range recs {
		requests = append(requests, *recs[i].toDomain())
	}
	return requests, nil
}

// Insert stores a new activation request row.
func (s *ActivationRequestStore) Insert(ctx context.Context, req *domain.ActivationRequest) error {
	rec := activationRequestRecord{
		ID:                      req.ID,
		ActivationID:            req.ActivationID,
		RequestedClientID:       req.RequestedClientID,
		RequestedClientUserName: req.RequestedClientUserName,
		ProductName:             req.ProductName,
		Timestamp:               req.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("activation request insert failed: %w", err)
	}
	return nil
}

// DeleteByKey removes the request for the triple. Deleting an absent
// request is not an error.
func (s *ActivationRequestStore) DeleteByKey(ctx context.Context, key license.Key) error {
	err := s.db.WithContext(ctx).
		Where("activation_id = ? AND requested_client_id = ? AND product_name = ?",
			key.MachineID, key.OwnerID, key.ProductName).
		Delete(&activationRequestRecord{}).Error
	if err != nil {
		return fmt.Errorf("activation request delete failed: %w", err)
	}
	return nil
}

// DeleteByID removes the request with the given id.
func (s *ActivationRequestStore) DeleteByID(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&activationRequestRecord{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("activation request delete failed: %w", err)
	}
	return nil
}
