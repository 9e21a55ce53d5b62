package license

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licenser/pkg/contracts/domain"
)

func newTestWorkflow(t *testing.T, now time.Time) (*Workflow, *memLicenseStore, *memRequestStore) {
	t.Helper()
	licenses := newMemLicenseStore()
	requests := newMemRequestStore()
	svc := NewService(licenses, requests, testLogger()).WithClock(fixedClock(now))
	wf := NewWorkflow(svc, requests, testLogger()).WithClock(fixedClock(now))
	return wf, licenses, requests
}

func TestWorkflowSubmitCreatesRequest(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	wf, _, requests := newTestWorkflow(t, now)

	status, err := wf.Submit(context.Background(), &domain.ActivationRequest{
		ActivationID:            "m-1",
		RequestedClientID:       "u-1",
		RequestedClientUserName: "alice",
		ProductName:             "analyzer",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RequestCreated, status)

	stored, err := requests.FindByKey(context.Background(),
		Key{MachineID: "m-1", OwnerID: "u-1", ProductName: "analyzer"})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, now, stored.Timestamp)
	assert.Equal(t, "alice", stored.RequestedClientUserName)
}

func TestWorkflowSubmitDuplicate(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	wf, _, _ := newTestWorkflow(t, now)

	req := &domain.ActivationRequest{
		ActivationID: "m-1", RequestedClientID: "u-1", ProductName: "analyzer",
	}

	status, err := wf.Submit(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, domain.RequestCreated, status)

	status, err = wf.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestAlreadyMade, status)
}

func TestWorkflowSubmitWithValidLicense(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	wf, licenses, requests := newTestWorkflow(t, now)

	require.NoError(t, licenses.Insert(context.Background(), &domain.License{
		ID: "lic-1", MachineID: "m-1", OwnerID: "u-1", ProductName: "analyzer",
	}))

	// Even with a stale pending request in place, a valid license wins:
	// the license check runs before the duplicate check.
	require.NoError(t, requests.Insert(context.Background(), &domain.ActivationRequest{
		ID: "req-stale", ActivationID: "m-1", RequestedClientID: "u-1", ProductName: "analyzer",
	}))

	status, err := wf.Submit(context.Background(), &domain.ActivationRequest{
		ActivationID: "m-1", RequestedClientID: "u-1", ProductName: "analyzer",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.AlreadyHaveValidLicense, status)
}

func TestWorkflowSubmitExpiredLicenseAllowsRequest(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	wf, licenses, _ := newTestWorkflow(t, now)

	expired := now.Add(-time.Minute)
	require.NoError(t, licenses.Insert(context.Background(), &domain.License{
		ID: "lic-1", MachineID: "m-1", OwnerID: "u-1", ProductName: "analyzer",
		ExpiryDate: &expired,
	}))

	status, err := wf.Submit(context.Background(), &domain.ActivationRequest{
		ActivationID: "m-1", RequestedClientID: "u-1", ProductName: "analyzer",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RequestCreated, status)
}

func TestWorkflowSubmitBlankProduct(t *testing.T) {
	wf, _, _ := newTestWorkflow(t, time.Now())

	_, err := wf.Submit(context.Background(), &domain.ActivationRequest{
		ActivationID: "m-1", RequestedClientID: "u-1", ProductName: "",
	})

	assert.ErrorIs(t, err, ErrInvalidProductName)
}

func TestWorkflowSubmitNilRequest(t *testing.T) {
	wf, _, _ := newTestWorkflow(t, time.Now())

	_, err := wf.Submit(context.Background(), nil)
	assert.Error(t, err)
}

func TestWorkflowPendingAndDiscard(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	wf, _, _ := newTestWorkflow(t, now)

	_, err := wf.Submit(context.Background(), &domain.ActivationRequest{
		ActivationID: "m-1", RequestedClientID: "u-1", ProductName: "analyzer",
	})
	require.NoError(t, err)

	pending, err := wf.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, wf.Discard(context.Background(), pending[0].ID))

	pending, err = wf.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}
