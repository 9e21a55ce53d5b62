package domain

import (
	"time"

	"github.com/google/uuid"
)

// LicenseStatus is the outcome of a license check for a
// (machineID, ownerID, productName) triple.
type LicenseStatus int

const (
	LicenseInvalid LicenseStatus = iota
	LicenseValid
	LicenseExpired
)

// String returns the human-readable form of the status.
func (s LicenseStatus) String() string {
	switch s {
	case LicenseValid:
		return "valid"
	case LicenseExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// License is a machine-bound license record. At most one license exists
// per (MachineID, OwnerID, ProductName) triple; that triple is the
// natural key used for every lookup.
type License struct {
	ID            string     `json:"id"`
	MachineID     string     `json:"machineId" validate:"required"`
	OwnerID       string     `json:"ownerId" validate:"required"`
	OwnerUserName string     `json:"ownerUserName"`
	OwnerEmail    string     `json:"ownerEmail"`
	ObjectName    string     `json:"objectName"`
	ProductName   string     `json:"productName" validate:"required"`
	IssueDate     *time.Time `json:"issueDate"`
	ExpiryDate    *time.Time `json:"expiryDate"`
}

// NewLicense returns a license with a fresh identity and issue date.
func NewLicense() *License {
	now := time.Now()
	return &License{
		ID:        uuid.NewString(),
		IssueDate: &now,
	}
}

// ActivationRequestStatus is the outcome of submitting an activation
// request.
type ActivationRequestStatus int

const (
	RequestCreated ActivationRequestStatus = iota
	RequestAlreadyMade
	AlreadyHaveValidLicense
)

// String returns the human-readable form of the status.
func (s ActivationRequestStatus) String() string {
	switch s {
	case RequestAlreadyMade:
		return "request_already_made"
	case AlreadyHaveValidLicense:
		return "already_have_valid_license"
	default:
		return "request_created"
	}
}

// ActivationRequest is a pending claim by a (machine, user, product)
// triple for a license, awaiting administrative approval. ActivationID
// is the requesting machine's device fingerprint. At most one
// outstanding request exists per
// (ActivationID, RequestedClientID, ProductName) triple.
type ActivationRequest struct {
	ID                      string    `json:"id"`
	ActivationID            string    `json:"activationId" validate:"required"`
	RequestedClientID       string    `json:"requestedClientId" validate:"required"`
	RequestedClientUserName string    `json:"requestedClientUserName"`
	ProductName             string    `json:"productName" validate:"required"`
	Timestamp               time.Time `json:"timestamp"`
}

// NewActivationRequest returns an activation request with a fresh
// identity and timestamp.
func NewActivationRequest() *ActivationRequest {
	return &ActivationRequest{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
	}
}
