package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"licenser/internal/license"
	"licenser/pkg/contracts/domain"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	return db
}

func TestLicenseStoreRoundTrip(t *testing.T) {
	db := testDB(t)
	s := NewLicenseStore(db)
	ctx := context.Background()

	issue := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expiry := issue.AddDate(1, 0, 0)
	lic := &domain.License{
		ID:            "lic-1",
		MachineID:     "m-1",
		OwnerID:       "u-1",
		OwnerUserName: "alice",
		OwnerEmail:    "alice@example.com",
		ObjectName:    "workstation-7",
		ProductName:   "analyzer",
		IssueDate:     &issue,
		ExpiryDate:    &expiry,
	}
	require.NoError(t, s.Insert(ctx, lic))

	got, err := s.FindByKey(ctx, license.KeyOf(lic))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "lic-1", got.ID)
	assert.Equal(t, "alice", got.OwnerUserName)
	require.NotNil(t, got.ExpiryDate)
	assert.True(t, expiry.Equal(*got.ExpiryDate))

	byID, err := s.FindByID(ctx, "lic-1")
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "m-1", byID.MachineID)
}

func TestLicenseStoreMissIsNil(t *testing.T) {
	s := NewLicenseStore(testDB(t))
	ctx := context.Background()

	got, err := s.FindByKey(ctx, license.Key{MachineID: "m-x", OwnerID: "u-x", ProductName: "nope"})
	require.NoError(t, err)
	assert.Nil(t, got)

	byID, err := s.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, byID)
}

func TestLicenseStoreUniqueTriple(t *testing.T) {
	s := NewLicenseStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &domain.License{
		ID: "lic-1", MachineID: "m-1", OwnerID: "u-1", ProductName: "analyzer",
	}))

	err := s.Insert(ctx, &domain.License{
		ID: "lic-2", MachineID: "m-1", OwnerID: "u-1", ProductName: "analyzer",
	})
	assert.Error(t, err, "second license for the same triple must be rejected")

	// Same machine, different product is fine.
	require.NoError(t, s.Insert(ctx, &domain.License{
		ID: "lic-3", MachineID: "m-1", OwnerID: "u-1", ProductName: "reporter",
	}))
}

func TestLicenseStoreUpdateExpiry(t *testing.T) {
	s := NewLicenseStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &domain.License{
		ID: "lic-1", MachineID: "m-1", OwnerID: "u-1", ProductName: "analyzer",
	}))

	expiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateExpiry(ctx, "lic-1", &expiry))

	got, err := s.FindByID(ctx, "lic-1")
	require.NoError(t, err)
	require.NotNil(t, got.ExpiryDate)
	assert.True(t, expiry.Equal(*got.ExpiryDate))

	// Back to perpetual.
	require.NoError(t, s.UpdateExpiry(ctx, "lic-1", nil))
	got, err = s.FindByID(ctx, "lic-1")
	require.NoError(t, err)
	assert.Nil(t, got.ExpiryDate)

	assert.Error(t, s.UpdateExpiry(ctx, "missing", &expiry))
}

func TestLicenseStoreDeleteAndList(t *testing.T) {
	s := NewLicenseStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &domain.License{
		ID: "lic-1", MachineID: "m-1", OwnerID: "u-1", ProductName: "analyzer",
	}))
	require.NoError(t, s.Insert(ctx, &domain.License{
		ID: "lic-2", MachineID: "m-2", OwnerID: "u-1", ProductName: "analyzer",
	}))

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.DeleteByID(ctx, "lic-1"))
	require.NoError(t, s.DeleteByID(ctx, "lic-1"), "delete is idempotent")

	all, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLicenseStoreReassignOwner(t *testing.T) {
	s := NewLicenseStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &domain.License{
		ID: "lic-1", MachineID: "m-1", OwnerID: "u-1", OwnerUserName: "alice",
		OwnerEmail: "alice@example.com", ProductName: "analyzer",
	}))

	require.NoError(t, s.ReassignOwner(ctx, "u-1", "deleted-user"))

	got, err := s.FindByID(ctx, "lic-1")
	require.NoError(t, err)
	assert.Equal(t, "deleted-user", got.OwnerID)
	assert.Equal(t, "deleted-user", got.OwnerUserName)
	assert.Empty(t, got.OwnerEmail)
}

func TestActivationRequestStoreRoundTrip(t *testing.T) {
	s := NewActivationRequestStore(testDB(t))
	ctx := context.Background()

	ts := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Insert(ctx, &domain.ActivationRequest{
		ID:                      "req-1",
		ActivationID:            "m-1",
		RequestedClientID:       "u-1",
		RequestedClientUserName: "alice",
		ProductName:             "analyzer",
		Timestamp:               ts,
	}))

	key := license.Key{MachineID: "m-1", OwnerID: "u-1", ProductName: "analyzer"}
	got, err := s.FindByKey(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "req-1", got.ID)
	assert.True(t, ts.Equal(got.Timestamp))

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestActivationRequestStoreDeleteByKeyIdempotent(t *testing.T) {
	s := NewActivationRequestStore(testDB(t))
	ctx := context.Background()

	key := license.Key{MachineID: "m-1", OwnerID: "u-1", ProductName: "analyzer"}

	// Deleting an absent request is not an error.
	require.NoError(t, s.DeleteByKey(ctx, key))

	require.NoError(t, s.Insert(ctx, &domain.ActivationRequest{
		ID: "req-1", ActivationID: "m-1", RequestedClientID: "u-1", ProductName: "analyzer",
	}))

	require.NoError(t, s.DeleteByKey(ctx, key))
	got, err := s.FindByKey(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.DeleteByKey(ctx, key))
}

func TestActivationRequestStoreUniqueTriple(t *testing.T) {
	s := NewActivationRequestStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &domain.ActivationRequest{
		ID: "req-1", ActivationID: "m-1", RequestedClientID: "u-1", ProductName: "analyzer",
	}))

	err := s.Insert(ctx, &domain.ActivationRequest{
		ID: "req-2", ActivationID: "m-1", RequestedClientID: "u-1", ProductName: "analyzer",
	})
	assert.Error(t, err, "second pending request for the same triple must be rejected")
}
