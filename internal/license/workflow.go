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

// Workflow decides the outcome of an activation request submission.
//
// The transition order is fixed: check for a valid license first, then
// for a duplicate request, then create. A valid license must always
// win over a stale pending request, so the order must never be
// reversed.
type Workflow struct {
	licenses *Service
	requests RequestStore
	now      func() time.Time
	logger   *slog.Logger
}

// NewWorkflow creates the activation workflow over the license service
// and the request store.
func NewWorkflow(licenses *Service, requests RequestStore, logger *slog.Logger) *Workflow {
	return &Workflow{
		licenses: licenses,
		requests: requests,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "activation_workflow")),
	}
}

// WithClock replaces the workflow clock. Test hook.
func (w *Workflow) WithClock(now func() time.Time) *Workflow {
	w.now = now
	return w
}

// Submit runs the activation state machine for the request's triple.
func (w *Workflow) Submit(ctx context.Context, req *domain.ActivationRequest) (domain.ActivationRequestStatus, error) {
	if req == nil {
		return domain.RequestCreated, errors.New("activation request must not be nil")
	}
	if strings.TrimSpace(req.ProductName) == "" {
		return domain.RequestCreated, ErrInvalidProductName
	}

	key := RequestKeyOf(req)

	status, err := w.licenses.Check(ctx, key)
	if err != nil {
		return domain.RequestCreated, fmt.Errorf("license check failed: %w", err)
	}
	if status == domain.LicenseValid {
		w.logger.InfoContext(ctx, "activation request short-circuited",
			slog.String("activation_id", req.ActivationID),
			slog.String("product", req.ProductName),
			slog.String("outcome", domain.AlreadyHaveValidLicense.String()),
		)
		return domain.AlreadyHaveValidLicense, nil
	}

	existing, err := w.requests.FindByKey(ctx, key)
	if err != nil {
		return domain.RequestCreated, fmt.Errorf("activation request lookup failed: %w", err)
	}
	if existing != nil {
		w.logger.InfoContext(ctx, "duplicate activation request",
			slog.String("activation_id", req.ActivationID),
			slog.String("product", req.ProductName),
		)
		return domain.RequestAlreadyMade, nil
	}

	record := &domain.ActivationRequest{
		ID:                      uuid.NewString(),
		ActivationID:            req.ActivationID,
		RequestedClientID:       req.RequestedClientID,
		RequestedClientUserName: req.RequestedClientUserName,
		ProductName:             req.ProductName,
		Timestamp:               w.now(),
	}
	if err := w.requests.Insert(ctx, record); err != nil {
		return domain.RequestCreated, fmt.Errorf("activation request insert failed: %w", err)
	}

	w.logger.InfoContext(ctx, "activation request created",
		slog.String("request_id", record.ID),
		slog.String("activation_id", record.ActivationID),
		slog.String("owner_id", record.RequestedClientID),
		slog.String("product", record.ProductName),
	)

	return domain.RequestCreated, nil
}

// Pending returns all outstanding activation requests.
func (w *Workflow) Pending(ctx context.Context) ([]domain.ActivationRequest, error) {
	return w.requests.List(ctx)
}

// Discard removes the activation request with the given id.
func (w *Workflow) Discard(ctx context.Context, id string) error {
	return w.requests.DeleteByID(ctx, id)
}
