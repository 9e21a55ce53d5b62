package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"licenser/internal/infrastructure"
	"licenser/internal/license"
	"licenser/internal/middleware"
	"licenser/pkg/contracts/domain"
)

// LicenseHandler handles license-related HTTP requests.
type LicenseHandler struct {
	service  *license.Service
	workflow *license.Workflow
	validate *validator.Validate
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// NewLicenseHandler creates a new license handler. Metrics may be nil
// in tests.
func NewLicenseHandler(service *license.Service, workflow *license.Workflow, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service:  service,
		workflow: workflow,
		validate: validator.New(),
		metrics:  metrics,
		logger:   logger.With(slog.String("handler", "license")),
	}
}

// Routes returns the chi router for license endpoints. The admin
// middleware guards the management surface; check and activation
// submission are open to any authenticated client.
func (h *LicenseHandler) Routes(adminOnly func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Timeout(30*time.Second, h.logger))

	// Client operations
	r.Post("/check", h.Check)
	r.Post("/sendActivationRequest", h.SendActivationRequest)

	// Management operations
	r.Group(func(r chi.Router) {
		r.Use(adminOnly)
		r.Get("/", h.List)
		r.Post("/", h.Issue)
		r.Get("/activationRequests", h.ListActivationRequests)
		r.Delete("/activationRequest/{id}", h.DeleteActivationRequest)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})

	return r
}

// Check handles POST /v1/licenses/check. The body carries the license
// triple; the reply data is the license status at the current time.
func (h *LicenseHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var lic domain.License
	if err := render.DecodeJSON(r.Body, &lic); err != nil {
		h.renderError(w, r, http.StatusBadRequest, domain.ErrKindInvalidArgument, "invalid request body")
		return
	}

	status, err := h.service.Check(ctx, license.KeyOf(&lic))
	if err != nil {
		h.renderServiceError(w, r, err, "license check failed")
		return
	}

	if h.metrics != nil {
		infrastructure.RecordLicenseCheck(ctx, h.metrics, status.String())
	}

	h.logger.InfoContext(ctx, "license checked",
		slog.String("machine_id", lic.MachineID),
		slog.String("owner_id", lic.OwnerID),
		slog.String("product", lic.ProductName),
		slog.String("status", status.String()),
	)

	render.JSON(w, r, domain.OK("Returned license status", status))
}

// SendActivationRequest handles POST /v1/licenses/sendActivationRequest.
func (h *LicenseHandler) SendActivationRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.ActivationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderError(w, r, http.StatusBadRequest, domain.ErrKindInvalidArgument, "invalid request body")
		return
	}
	if err := h.validate.StructCtx(ctx, &req); err != nil {
		h.renderError(w, r, http.StatusBadRequest, domain.ErrKindInvalidArgument, err.Error())
		return
	}

	status, err := h.workflow.Submit(ctx, &req)
	if err != nil {
		h.renderServiceError(w, r, err, "activation request failed")
		return
	}

	if h.metrics != nil {
		infrastructure.RecordActivationRequest(ctx, h.metrics, status.String())
	}

	render.JSON(w, r, domain.OK("Returned activation request status", status))
}

// List handles GET /v1/licenses.
func (h *LicenseHandler) List(w http.ResponseWriter, r *http.Request) {
	licenses, err := h.service.List(r.Context())
	if err != nil {
		h.renderServiceError(w, r, err, "license list failed")
		return
	}
	render.JSON(w, r, domain.OK("Returned licenses", licenses))
}

// Get handles GET /v1/licenses/{id}.
func (h *LicenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lic, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, r, err, "license lookup failed")
		return
	}
	if lic == nil {
		h.renderError(w, r, http.StatusNotFound, domain.ErrKindInvalidArgument, "license not found")
		return
	}
	render.JSON(w, r, domain.OK("Returned license", lic))
}

// Issue handles POST /v1/licenses. Creates a license for a new triple
// or renews the expiry of an existing one; either way any pending
// activation request for the triple is cleared.
func (h *LicenseHandler) Issue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var lic domain.License
	if err := render.DecodeJSON(r.Body, &lic); err != nil {
		h.renderError(w, r, http.StatusBadRequest, domain.ErrKindInvalidArgument, "invalid request body")
		return
	}
	if err := h.validate.StructCtx(ctx, &lic); err != nil {
		h.renderError(w, r, http.StatusBadRequest, domain.ErrKindInvalidArgument, err.Error())
		return
	}

	if err := h.service.Upsert(ctx, &lic); err != nil {
		h.renderServiceError(w, r, err, "license issue failed")
		return
	}

	if h.metrics != nil {
		h.metrics.LicensesIssuedTotal.Add(ctx, 1)
	}

	render.JSON(w, r, domain.OK("License issued", &lic))
}

// Update handles PUT /v1/licenses/{id}. Only the expiry date of the
// stored license changes; the ownership triple is immutable.
func (h *LicenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var payload domain.License
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		h.renderError(w, r, http.StatusBadRequest, domain.ErrKindInvalidArgument, "invalid request body")
		return
	}

	existing, err := h.service.Get(ctx, id)
	if err != nil {
		h.renderServiceError(w, r, err, "license lookup failed")
		return
	}
	if existing == nil {
		h.renderError(w, r, http.StatusNotFound, domain.ErrKindInvalidArgument, "license not found")
		return
	}

	existing.ExpiryDate = payload.ExpiryDate
	if err := h.service.Upsert(ctx, existing); err != nil {
		h.renderServiceError(w, r, err, "license update failed")
		return
	}

	render.JSON(w, r, domain.OK("License updated", existing))
}

// Delete handles DELETE /v1/licenses/{id}.
func (h *LicenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.renderServiceError(w, r, err, "license delete failed")
		return
	}
	render.JSON(w, r, domain.OK("License deleted", domain.Unit{}))
}

// ListActivationRequests handles GET /v1/licenses/activationRequests.
func (h *LicenseHandler) ListActivationRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := h.workflow.Pending(r.Context())
	if err != nil {
		h.renderServiceError(w, r, err, "activation request list failed")
		return
	}
	render.JSON(w, r, domain.OK("Returned activation requests", pending))
}

// DeleteActivationRequest handles DELETE /v1/licenses/activationRequest/{id}.
func (h *LicenseHandler) DeleteActivationRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.workflow.Discard(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.renderServiceError(w, r, err, "activation request delete failed")
		return
	}
	render.JSON(w, r, domain.OK("Activation request deleted", domain.Unit{}))
}

func (h *LicenseHandler) renderError(w http.ResponseWriter, r *http.Request, status int, kind domain.ErrorKind, message string) {
	render.Status(r, status)
	render.JSON(w, r, domain.Err[domain.Unit](kind, message))
}

// renderServiceError classifies a service error: caller mistakes map
// to 400 envelopes, everything else to 500.
func (h *LicenseHandler) renderServiceError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	ctx := r.Context()

	if errors.Is(err, license.ErrInvalidProductName) {
		h.renderError(w, r, http.StatusBadRequest, domain.ErrKindInvalidArgument, err.Error())
		return
	}

	h.logger.ErrorContext(ctx, logMsg,
		slog.String("error", err.Error()),
		slog.String("trace_id", infrastructure.GetTraceID(ctx)),
	)
	h.renderError(w, r, http.StatusInternalServerError, domain.ErrKindServer, "Server Internal Error: "+err.Error())
}
