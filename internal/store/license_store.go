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

// licenseRecord is the gorm model for a license row. The natural key
// triple carries a composite unique index.
type licenseRecord struct {
	ID            string     `gorm:"primaryKey"`
	MachineID     string     `gorm:"not null;uniqueIndex:idx_license_key"`
	OwnerID       string     `gorm:"not null;uniqueIndex:idx_license_key"`
	OwnerUserName string
	OwnerEmail    string
	ObjectName    string
	ProductName   string     `gorm:"not null;uniqueIndex:idx_license_key"`
	IssueDate     *time.Time
	ExpiryDate    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (licenseRecord) TableName() string { return "licenses" }

func (r *licenseRecord) toDomain() *domain.License {
	return &domain.License{
		ID:            r.ID,
		MachineID:     r.MachineID,
		OwnerID:       r.OwnerID,
		OwnerUserName: r.OwnerUserName,
		OwnerEmail:    r.OwnerEmail,
		ObjectName:    r.ObjectName,
		ProductName:   r.ProductName,
		IssueDate:     r.IssueDate,
		ExpiryDate:    r.ExpiryDate,
	}
}

// LicenseStore is the gorm-backed implementation of license.Store.
type LicenseStore struct {
	db *gorm.DB
}

// NewLicenseStore creates a license store over the given database.
func NewLicenseStore(db *gorm.DB) *LicenseStore {
	return &LicenseStore{db: db}
}

// FindByKey looks up the unique license for the natural key triple.
// A miss yields (nil, nil).
func (s *LicenseStore) FindByKey(ctx context.Context, key license.Key) (*domain.License, error) {
	var rec licenseRecord
	err := s.db.WithContext(ctx).
		Where("machine_id = ? AND owner_id = ? AND product_name = ?",
			key.MachineID, key.OwnerID, key.ProductName).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("license query failed: %w", err)
	}
	return rec.toDomain(), nil
}

// FindByID looks up a license by its id. A miss yields (nil, nil).
func (s *LicenseStore) FindByID(ctx context.Context, id string) (*domain.License, error) {
	var rec licenseRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("license query failed: %w", err)
	}
	return rec.toDomain(), nil
}

// List returns all stored licenses.
func (s *LicenseStore) List(ctx context.Context) ([]domain.License, error) {
	var recs []licenseRecord
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("license query failed: %w", err)
	}

	licenses := make([]domain.License, 0, len(recs))
	for i := range recs {
		licenses = append(licenses, *recs[i].toDomain())
	}
	return licenses, nil
}

// Insert stores a new license row.
func (s *LicenseStore) Insert(ctx context.Context, lic *domain.License) error {
	rec := licenseRecord{
		ID:            lic.ID,
		MachineID:     lic.MachineID,
		OwnerID:       lic.OwnerID,
		OwnerUserName: lic.OwnerUserName,
		OwnerEmail:    lic.OwnerEmail,
		ObjectName:    lic.ObjectName,
		ProductName:   lic.ProductName,
		IssueDate:     lic.IssueDate,
		ExpiryDate:    lic.ExpiryDate,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("license insert failed: %w", err)
	}
	return nil
}

// UpdateExpiry updates only the expiry date of an existing license.
func (s *LicenseStore) UpdateExpiry(ctx context.Context, id string, expiry *time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&licenseRecord{}).
		Where("id = ?", id).
		Update("expiry_date", expiry)
	if result.Error != nil {
		return fmt.Errorf("license update failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("license %s not found", id)
	}
	return nil
}

// DeleteByID removes the license with the given id.
func (s *LicenseStore) DeleteByID(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&licenseRecord{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("license delete failed: %w", err)
	}
	return nil
}

// ReassignOwner moves all licenses of one owner to another. Used to
// park licenses on the sentinel deleted-user record when an account
// disappears.
func (s *LicenseStore) ReassignOwner(ctx context.Context, fromOwnerID, toOwnerID string) error {
	err := s.db.WithContext(ctx).
		Model(&licenseRecord{}).
		Where("owner_id = ?", fromOwnerID).
		Updates(map[string]any{
			"owner_id":        toOwnerID,
			"owner_user_name": toOwnerID,
			"owner_email":     "",
		}).Error
	if err != nil {
		return fmt.Errorf("license owner reassignment failed: %w", err)
	}
	return nil
}
