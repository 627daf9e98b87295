/*
handlers.go - HTTP API handlers for the achievement engine

PURPOSE:
  Exposes the achievement engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the engine.

ENDPOINTS:
  Affiliates:
    GET    /api/affiliates                        List affiliates
    POST   /api/affiliates                        Create affiliate
    GET    /api/affiliates/{id}                   Get affiliate
    GET    /api/affiliates/{id}/statuses          Status log
    PUT    /api/affiliates/{id}/statuses/{date}   Set one day's status
    DELETE /api/affiliates/{id}/statuses/{date}   Clear one day's status
    GET    /api/affiliates/{id}/awards            Current awards
    GET    /api/affiliates/{id}/points            Point total

  Rules:
    GET    /api/rules                             List catalog rules
    POST   /api/rules                             Create/update rule
    DELETE /api/rules/{id}                        Delete rule

  Admin:
    POST   /api/admin/recheck                     Manual re-evaluation
    POST   /api/scenarios/load                    Seed demo data

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call engine (status mutation -> evaluation pass -> award diff)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors

SECURITY NOTE:
  No authentication middleware. Route guarding lives in the enclosing
  dashboard, outside this engine.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Scheduled re-evaluation sweep
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/warp/achievement-engine/catalog"
	"github.com/warp/achievement-engine/engine"
	"github.com/warp/achievement-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers. It also implements
// engine.RuleSource: the parsed catalog is cached here and snapshotted per
// evaluation pass.
type Handler struct {
	Store  *sqlite.Store
	Engine *engine.Service
	Cache  *engine.Cache
	Log    logrus.FieldLogger

	mu    sync.RWMutex
	rules []engine.Rule
}

var _ engine.RuleSource = (*Handler)(nil)

// NewHandler creates a new handler over the given store.
func NewHandler(store *sqlite.Store, log logrus.FieldLogger) *Handler {
	h := &Handler{Store: store, Log: log}
	h.Cache = engine.NewCache(store)

	svc := engine.NewService(store, store, h)
	svc.Cache = h.Cache
	svc.Notifier = &changeNotifier{log: log}
	h.Engine = svc
	return h
}

// ActiveRules returns a snapshot of the parsed catalog. The snapshot is
// immutable for the duration of one evaluation pass.
func (h *Handler) ActiveRules() []engine.Rule {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rules := make([]engine.Rule, len(h.rules))
	copy(rules, h.rules)
	return rules
}

// LoadRules loads and parses all rule configs from the database into the
// catalog cache. Rows that no longer parse are skipped with a warning so
// one bad config cannot take the engine down.
func (h *Handler) LoadRules(ctx context.Context) error {
	records, err := h.Store.ListRules(ctx)
	if err != nil {
		return err
	}

	rules := make([]engine.Rule, 0, len(records))
	for _, r := range records {
		rule, err := catalog.Parse(r.ConfigJSON)
		if err != nil {
			h.Log.WithField("rule", r.ID).WithError(err).Warn("skipping invalid rule config")
			continue
		}
		rules = append(rules, rule)
	}

	h.mu.Lock()
	h.rules = rules
	h.mu.Unlock()
	return nil
}

// =============================================================================
// AFFILIATE HANDLERS
// =============================================================================

// ListAffiliates returns all affiliates.
func (h *Handler) ListAffiliates(w http.ResponseWriter, r *http.Request) {
	affiliates, err := h.Store.ListAffiliates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list affiliates", err)
		return
	}

	dtos := make([]AffiliateDTO, len(affiliates))
	for i, a := range affiliates {
		dtos[i] = toAffiliateDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAffiliate returns a single affiliate.
func (h *Handler) GetAffiliate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	affiliate, err := h.Store.GetAffiliate(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get affiliate", err)
		return
	}
	if affiliate == nil {
		writeError(w, http.StatusNotFound, "Affiliate not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toAffiliateDTO(*affiliate))
}

// CreateAffiliate creates a new affiliate.
func (h *Handler) CreateAffiliate(w http.ResponseWriter, r *http.Request) {
	var req CreateAffiliateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	joinedAt := time.Now().UTC()
	if req.JoinedAt != "" {
		parsed, err := time.Parse("2006-01-02", req.JoinedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid joined_at format (use YYYY-MM-DD)", err)
			return
		}
		joinedAt = parsed
	}

	affiliate := sqlite.Affiliate{ID: req.ID, Name: req.Name, Email: req.Email, JoinedAt: joinedAt}
	if err := h.Store.SaveAffiliate(r.Context(), affiliate); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create affiliate", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAffiliateDTO(affiliate))
}

// =============================================================================
// STATUS LOG HANDLERS - Mutations trigger the evaluation pass
// =============================================================================

// GetStatuses returns the affiliate's full status log.
func (h *Handler) GetStatuses(w http.ResponseWriter, r *http.Request) {
	id := engine.AffiliateID(chi.URLParam(r, "id"))

	entries, err := h.Store.Entries(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load statuses", err)
		return
	}

	dtos := make([]StatusEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = StatusEntryDTO{Date: e.Date.String(), StatusKey: string(e.Status)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SetStatus records one day's status and returns what the resulting
// evaluation pass changed.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := engine.AffiliateID(chi.URLParam(r, "id"))

	date, err := engine.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.StatusKey == "" {
		writeError(w, http.StatusBadRequest, "status_key is required", nil)
		return
	}

	if !h.affiliateExists(ctx, w, string(id)) {
		return
	}

	delta, err := h.Engine.MarkDay(ctx, id, date, engine.StatusKey(req.StatusKey))
	if err != nil {
		h.writeEngineError(w, id, err)
		return
	}
	h.writeDelta(ctx, w, id, delta)
}

// ClearStatus removes one day's status and returns what the resulting
// evaluation pass changed (typically revocations).
func (h *Handler) ClearStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := engine.AffiliateID(chi.URLParam(r, "id"))

	date, err := engine.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	if !h.affiliateExists(ctx, w, string(id)) {
		return
	}

	delta, err := h.Engine.ClearDay(ctx, id, date)
	if err != nil {
		h.writeEngineError(w, id, err)
		return
	}
	h.writeDelta(ctx, w, id, delta)
}

// =============================================================================
// AWARD / POINTS HANDLERS
// =============================================================================

// GetAwards returns the affiliate's current awards.
func (h *Handler) GetAwards(w http.ResponseWriter, r *http.Request) {
	id := engine.AffiliateID(chi.URLParam(r, "id"))

	awards, err := h.Cache.Awards(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load awards", err)
		return
	}
	writeJSON(w, http.StatusOK, toAwardDTOs(awards))
}

// GetPoints returns the affiliate's current point total, derived from the
// award ledger at read time.
func (h *Handler) GetPoints(w http.ResponseWriter, r *http.Request) {
	id := engine.AffiliateID(chi.URLParam(r, "id"))

	total, err := h.Engine.TotalPoints(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute points", err)
		return
	}
	writeJSON(w, http.StatusOK, PointsDTO{AffiliateID: string(id), TotalPoints: total})
}

// =============================================================================
// RULE HANDLERS - Catalog administration
// =============================================================================

// ListRules returns the parsed catalog in admin order.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules := h.ActiveRules()
	dtos := make([]catalog.RuleJSON, len(rules))
	for i, rule := range rules {
		dtos[i] = catalog.ToJSON(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRule creates or updates a rule from its JSON definition. The
// definition is validated before it is stored; malformed rules are
// rejected here rather than silently never-met at evaluation time.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var rj catalog.RuleJSON
	if err := json.NewDecoder(r.Body).Decode(&rj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule, err := catalog.FromJSON(rj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule definition", err)
		return
	}

	configJSON, err := json.Marshal(rj)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode rule", err)
		return
	}

	record := sqlite.RuleRecord{
		ID:         string(rule.ID),
		ConfigJSON: string(configJSON),
		Position:   len(h.ActiveRules()),
	}
	if err := h.Store.SaveRule(ctx, record); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rule", err)
		return
	}
	if err := h.LoadRules(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload rules", err)
		return
	}
	writeJSON(w, http.StatusCreated, catalog.ToJSON(rule))
}

// DeleteRule removes a rule from the catalog. Awards already granted under
// the rule are left standing.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteRule(ctx, id); err != nil {
		if errors.Is(err, engine.ErrRuleNotFound) {
			writeError(w, http.StatusNotFound, "Rule not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete rule", err)
		return
	}
	if err := h.LoadRules(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload rules", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// Recheck triggers a manual evaluation pass for one affiliate, or for all
// affiliates when no id is given.
func (h *Handler) Recheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RecheckRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	var ids []engine.AffiliateID
	if req.AffiliateID != "" {
		ids = []engine.AffiliateID{engine.AffiliateID(req.AffiliateID)}
	} else {
		affiliates, err := h.Store.ListAffiliates(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list affiliates", err)
			return
		}
		for _, a := range affiliates {
			ids = append(ids, engine.AffiliateID(a.ID))
		}
	}

	resp := RecheckResponse{}
	today := engine.Today()
	for _, id := range ids {
		delta, err := h.Engine.Recheck(ctx, id, today)
		if err != nil {
			h.Log.WithField("affiliate", string(id)).WithError(err).Error("recheck failed")
			continue
		}
		resp.Checked++
		if !delta.Empty() {
			resp.Changed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) affiliateExists(ctx context.Context, w http.ResponseWriter, id string) bool {
	affiliate, err := h.Store.GetAffiliate(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get affiliate", err)
		return false
	}
	if affiliate == nil {
		writeError(w, http.StatusNotFound, "Affiliate not found", nil)
		return false
	}
	return true
}

func (h *Handler) writeDelta(ctx context.Context, w http.ResponseWriter, id engine.AffiliateID, delta engine.Delta) {
	total, err := h.Engine.TotalPoints(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute points", err)
		return
	}
	writeJSON(w, http.StatusOK, toDeltaDTO(delta, total))
}

func (h *Handler) writeEngineError(w http.ResponseWriter, id engine.AffiliateID, err error) {
	h.Log.WithField("affiliate", string(id)).WithError(err).Error("evaluation pass failed")
	writeError(w, http.StatusInternalServerError, "Evaluation pass failed", err)
}

func toAffiliateDTO(a sqlite.Affiliate) AffiliateDTO {
	dto := AffiliateDTO{
		ID:       a.ID,
		Name:     a.Name,
		Email:    a.Email,
		JoinedAt: a.JoinedAt.UTC().Format("2006-01-02"),
	}
	if !a.CreatedAt.IsZero() {
		dto.CreatedAt = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
