package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	distmodels "reliefcore/internal/distribution/models"
	dErrors "reliefcore/pkg/domain-errors"
	"reliefcore/pkg/platform/httputil"
	"reliefcore/pkg/requestcontext"
)

// DistributionService defines the distribution operations the HTTP layer exposes.
type DistributionService interface {
	Record(ctx context.Context, req distmodels.RecordRequest) (distmodels.DistributionEvent, error)
	CheckEligibility(ctx context.Context, lookupKey, category string) (distmodels.EligibilityResult, error)
	EligibilitySummary(ctx context.Context, lookupKey string) (map[distmodels.AidCategory]distmodels.EligibilityResult, error)
	History(ctx context.Context, lookupKey, category string) ([]distmodels.DistributionEvent, error)
}

type distributionHandler struct {
	svc    DistributionService
	logger *slog.Logger
}

func newDistributionHandler(svc DistributionService, logger *slog.Logger) *distributionHandler {
	return &distributionHandler{svc: svc, logger: logger}
}

func (h *distributionHandler) register(r chi.Router) {
	r.Post("/distributions", h.handleRecord)
	r.Get("/distributions/{lookupKey}", h.handleHistory)
	r.Get("/eligibility", h.handleEligibility)
}

type recordRequest struct {
	LookupKey string `json:"lookup_key"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
	Location  string `json:"location"`
}

type eventResponse struct {
	ID        string    `json:"id"`
	LookupKey string    `json:"lookup_key"`
	AgentID   string    `json:"agent_id"`
	Category  string    `json:"category"`
	Quantity  int       `json:"quantity"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
	Confirmed bool      `json:"confirmed"`
}

func toEventResponse(ev distmodels.DistributionEvent) eventResponse {
	return eventResponse{
		ID:        ev.ID.String(),
		LookupKey: string(ev.LookupKey),
		AgentID:   ev.AgentID.String(),
		Category:  string(ev.Category),
		Quantity:  ev.Quantity,
		Location:  ev.Location,
		Timestamp: ev.Timestamp,
		Confirmed: ev.Confirmed,
	}
}

func (h *distributionHandler) handleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	// The authenticated agent records the event; the body cannot speak for
	// someone else.
	event, err := h.svc.Record(ctx, distmodels.RecordRequest{
		LookupKey: req.LookupKey,
		Category:  req.Category,
		Quantity:  req.Quantity,
		Location:  req.Location,
		AgentRef:  requestcontext.AgentID(ctx),
	})
	if err != nil {
		h.logFailure(ctx, "distribution rejected", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toEventResponse(event))
}

type eligibilityResponse struct {
	Eligible          bool           `json:"eligible"`
	CooldownRemaining string         `json:"cooldown_remaining,omitempty"`
	LastEvent         *eventResponse `json:"last_event,omitempty"`
}

func toEligibilityResponse(result distmodels.EligibilityResult) eligibilityResponse {
	resp := eligibilityResponse{Eligible: result.Eligible}
	if result.CooldownRemaining > 0 {
		resp.CooldownRemaining = result.CooldownRemaining.Round(time.Second).String()
	}
	if result.LastEvent != nil {
		ev := toEventResponse(*result.LastEvent)
		resp.LastEvent = &ev
	}
	return resp
}

// handleEligibility answers ?lookup_key=...&category=... for one category, or
// every category at once when category is omitted.
func (h *distributionHandler) handleEligibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lookupKey := r.URL.Query().Get("lookup_key")
	category := r.URL.Query().Get("category")

	if category == "" {
		summary, err := h.svc.EligibilitySummary(ctx, lookupKey)
		if err != nil {
			h.logFailure(ctx, "eligibility summary failed", err)
			httputil.WriteError(w, err)
			return
		}
		out := make(map[string]eligibilityResponse, len(summary))
		for cat, result := range summary {
			out[string(cat)] = toEligibilityResponse(result)
		}
		httputil.WriteJSON(w, http.StatusOK, out)
		return
	}

	result, err := h.svc.CheckEligibility(ctx, lookupKey, category)
	if err != nil {
		h.logFailure(ctx, "eligibility check failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEligibilityResponse(result))
}

func (h *distributionHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	events, err := h.svc.History(ctx, chi.URLParam(r, "lookupKey"), r.URL.Query().Get("category"))
	if err != nil {
		h.logFailure(ctx, "distribution history failed", err)
		httputil.WriteError(w, err)
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventResponse(ev))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (h *distributionHandler) logFailure(ctx context.Context, msg string, err error) {
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
