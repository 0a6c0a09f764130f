package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	regmodels "reliefcore/internal/registration/models"
	"reliefcore/pkg/domain"
	dErrors "reliefcore/pkg/domain-errors"
	"reliefcore/pkg/platform/httputil"
	"reliefcore/pkg/requestcontext"
)

// RegistrationService defines the registration operations the HTTP layer exposes.
type RegistrationService interface {
	Register(ctx context.Context, req regmodels.RegisterRequest) (regmodels.Registration, error)
	Lookup(ctx context.Context, ref string) (regmodels.RegistrationRecord, error)
	Deactivate(ctx context.Context, id domain.URID) error
}

type registrationHandler struct {
	svc    RegistrationService
	logger *slog.Logger
}

func newRegistrationHandler(svc RegistrationService, logger *slog.Logger) *registrationHandler {
	return &registrationHandler{svc: svc, logger: logger}
}

func (h *registrationHandler) register(r chi.Router) {
	r.Post("/households", h.handleRegister)
	r.Get("/households/{ref}", h.handleLookup)
	r.Post("/households/{urid}/deactivate", h.handleDeactivate)
}

type registerRequest struct {
	IdentityHash  string `json:"identity_hash"`
	Location      string `json:"location"`
	HouseholdSize int    `json:"household_size"`
	Contact       string `json:"contact,omitempty"`
}

type registerResponse struct {
	URID      string `json:"urid"`
	LookupKey string `json:"lookup_key"`
}

func (h *registrationHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	reg, err := h.svc.Register(ctx, regmodels.RegisterRequest{
		IdentityHash:  req.IdentityHash,
		Location:      req.Location,
		HouseholdSize: req.HouseholdSize,
		Contact:       req.Contact,
	})
	if err != nil {
		h.logFailure(ctx, "registration rejected", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, registerResponse{
		URID:      string(reg.URID),
		LookupKey: string(reg.LookupKey),
	})
}

type householdResponse struct {
	URID          string    `json:"urid"`
	LookupKey     string    `json:"lookup_key"`
	HouseholdSize int       `json:"household_size"`
	Location      string    `json:"location"`
	Contact       string    `json:"contact,omitempty"`
	RegisteredAt  time.Time `json:"registered_at"`
	Active        bool      `json:"active"`
}

func (h *registrationHandler) handleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, err := h.svc.Lookup(ctx, chi.URLParam(r, "ref"))
	if err != nil {
		h.logFailure(ctx, "household lookup failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, householdResponse{
		URID:          string(rec.URID),
		LookupKey:     string(rec.LookupKey),
		HouseholdSize: rec.HouseholdSize,
		Location:      rec.Location,
		Contact:       rec.Contact,
		RegisteredAt:  rec.RegisteredAt,
		Active:        rec.Active,
	})
}

func (h *registrationHandler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseURID(chi.URLParam(r, "urid"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.svc.Deactivate(ctx, id); err != nil {
		h.logFailure(ctx, "household deactivation failed", err)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// logFailure logs caller mistakes at warn and infrastructure failures at error.
func (h *registrationHandler) logFailure(ctx context.Context, msg string, err error) {
	attrs := []any{
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}
