/*
handlers_test.go - End-to-end tests for the HTTP API

Exercises the full path: HTTP request -> handler -> engine pass -> SQLite
store, using an in-memory database and the real router.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/achievement-engine/engine"
	"github.com/warp/achievement-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) (*Handler, http.Handler) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	h := NewHandler(store, log)
	require.NoError(t, h.LoadRules(context.Background()))
	return h, NewRouter(h, []string{"*"})
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func createAffiliate(t *testing.T, router http.Handler, id, name string) {
	t.Helper()
	rr := do(t, router, http.MethodPost, "/api/affiliates", CreateAffiliateRequest{ID: id, Name: name})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func createRule(t *testing.T, router http.Handler, rule map[string]any) {
	t.Helper()
	rr := do(t, router, http.MethodPost, "/api/rules", rule)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func statusPath(id string, d engine.CalendarDate) string {
	return fmt.Sprintf("/api/affiliates/%s/statuses/%s", id, d)
}

// =============================================================================
// STATUS MUTATIONS DRIVE THE EVALUATION PASS
// =============================================================================

func TestSetStatus_GrantsAwardAndPoints(t *testing.T) {
	// GIVEN: A 2-count total threshold rule and one completed day
	// WHEN: Completing a second day
	// THEN: The response delta carries the new award and the running total

	_, router := newTestRouter(t)
	createAffiliate(t, router, "aff-1", "Ada")
	createRule(t, router, map[string]any{
		"id": "two-days", "title": "Two Days", "xp_points": 30,
		"valid_statuses": []string{"completed"}, "count_threshold": 2,
	})

	today := engine.Today()
	rr := do(t, router, http.MethodPut, statusPath("aff-1", today.AddDays(-1)), SetStatusRequest{StatusKey: "completed"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Empty(t, decode[DeltaDTO](t, rr).Added)

	rr = do(t, router, http.MethodPut, statusPath("aff-1", today), SetStatusRequest{StatusKey: "completed"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	delta := decode[DeltaDTO](t, rr)
	require.Len(t, delta.Added, 1)
	assert.Equal(t, "two-days", delta.Added[0].RuleID)
	assert.Equal(t, 30, delta.TotalPoints)

	points := decode[PointsDTO](t, do(t, router, http.MethodGet, "/api/affiliates/aff-1/points", nil))
	assert.Equal(t, 30, points.TotalPoints)

	awards := decode[[]AwardDTO](t, do(t, router, http.MethodGet, "/api/affiliates/aff-1/awards", nil))
	require.Len(t, awards, 1)
	assert.NotEmpty(t, awards[0].ID)
}

func TestSetStatus_RepeatIsIdempotent(t *testing.T) {
	// GIVEN: A day already completed and its award granted
	// WHEN: Re-submitting the same status for the same day
	// THEN: The pass changes nothing

	_, router := newTestRouter(t)
	createAffiliate(t, router, "aff-1", "Ada")
	createRule(t, router, map[string]any{"id": "one-day", "title": "One", "xp_points": 10, "count_threshold": 1})

	today := engine.Today()
	rr := do(t, router, http.MethodPut, statusPath("aff-1", today), SetStatusRequest{StatusKey: "completed"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, decode[DeltaDTO](t, rr).Added, 1)

	rr = do(t, router, http.MethodPut, statusPath("aff-1", today), SetStatusRequest{StatusKey: "completed"})
	require.Equal(t, http.StatusOK, rr.Code)
	delta := decode[DeltaDTO](t, rr)
	assert.Empty(t, delta.Added)
	assert.Empty(t, delta.Removed)
	assert.Equal(t, 10, delta.TotalPoints)
}

func TestClearStatus_RevokesAward(t *testing.T) {
	// GIVEN: An award earned from a single completed day
	// WHEN: Clearing that day
	// THEN: The award is revoked and points drop to zero

	_, router := newTestRouter(t)
	createAffiliate(t, router, "aff-1", "Ada")
	createRule(t, router, map[string]any{"id": "one-day", "title": "One", "xp_points": 10, "count_threshold": 1})

	today := engine.Today()
	rr := do(t, router, http.MethodPut, statusPath("aff-1", today), SetStatusRequest{StatusKey: "completed"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodDelete, statusPath("aff-1", today), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	delta := decode[DeltaDTO](t, rr)
	require.Len(t, delta.Removed, 1)
	assert.Equal(t, 0, delta.TotalPoints)

	points := decode[PointsDTO](t, do(t, router, http.MethodGet, "/api/affiliates/aff-1/points", nil))
	assert.Equal(t, 0, points.TotalPoints)
}

func TestSetStatus_UnknownAffiliate(t *testing.T) {
	_, router := newTestRouter(t)
	rr := do(t, router, http.MethodPut, statusPath("ghost", engine.Today()), SetStatusRequest{StatusKey: "completed"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSetStatus_BadDate(t *testing.T) {
	_, router := newTestRouter(t)
	createAffiliate(t, router, "aff-1", "Ada")
	rr := do(t, router, http.MethodPut, "/api/affiliates/aff-1/statuses/not-a-date", SetStatusRequest{StatusKey: "completed"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// =============================================================================
// CATALOG ADMINISTRATION
// =============================================================================

func TestCreateRule_InvalidRejected(t *testing.T) {
	// A rule with neither requirement field is rejected at authoring time.
	_, router := newTestRouter(t)
	rr := do(t, router, http.MethodPost, "/api/rules", map[string]any{"id": "empty", "title": "Empty"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRules_CreateListDelete(t *testing.T) {
	_, router := newTestRouter(t)
	createRule(t, router, map[string]any{"id": "rule-1", "title": "R1", "xp_points": 5, "count_threshold": 1})
	createRule(t, router, map[string]any{"id": "rule-2", "title": "R2", "xp_points": 5, "streak_days": 2})

	rules := decode[[]map[string]any](t, do(t, router, http.MethodGet, "/api/rules", nil))
	assert.Len(t, rules, 2)

	rr := do(t, router, http.MethodDelete, "/api/rules/rule-1", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, router, http.MethodDelete, "/api/rules/rule-1", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rules = decode[[]map[string]any](t, do(t, router, http.MethodGet, "/api/rules", nil))
	assert.Len(t, rules, 1)
}

func TestDeleteRule_AwardsStand(t *testing.T) {
	// GIVEN: An award granted under a rule
	// WHEN: The rule is deleted and the affiliate rechecked
	// THEN: The award stands; no evaluation matches it anymore

	_, router := newTestRouter(t)
	createAffiliate(t, router, "aff-1", "Ada")
	createRule(t, router, map[string]any{"id": "one-day", "title": "One", "xp_points": 10, "count_threshold": 1})

	rr := do(t, router, http.MethodPut, statusPath("aff-1", engine.Today()), SetStatusRequest{StatusKey: "completed"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodDelete, "/api/rules/one-day", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, router, http.MethodPost, "/api/admin/recheck", RecheckRequest{AffiliateID: "aff-1"})
	require.Equal(t, http.StatusOK, rr.Code)

	points := decode[PointsDTO](t, do(t, router, http.MethodGet, "/api/affiliates/aff-1/points", nil))
	assert.Equal(t, 10, points.TotalPoints)
}

// =============================================================================
// ADMIN / SCENARIOS
// =============================================================================

func TestRecheck_AllAffiliates(t *testing.T) {
	_, router := newTestRouter(t)
	createAffiliate(t, router, "aff-1", "Ada")
	createAffiliate(t, router, "aff-2", "Lin")

	rr := do(t, router, http.MethodPost, "/api/admin/recheck", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[RecheckResponse](t, rr)
	assert.Equal(t, 2, resp.Checked)
	assert.Equal(t, 0, resp.Changed, "no statuses, no rules, nothing changes")
}

func TestLoadDemoScenario(t *testing.T) {
	// GIVEN: An empty database
	// WHEN: Loading the demo scenario
	// THEN: Affiliates, rules, and at least one earned award exist

	_, router := newTestRouter(t)

	rr := do(t, router, http.MethodPost, "/api/scenarios/load", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[RecheckResponse](t, rr)
	assert.Equal(t, 2, resp.Checked)

	affiliates := decode[[]AffiliateDTO](t, do(t, router, http.MethodGet, "/api/affiliates", nil))
	assert.Len(t, affiliates, 2)

	rules := decode[[]map[string]any](t, do(t, router, http.MethodGet, "/api/rules", nil))
	assert.NotEmpty(t, rules)

	// Ada completed the last six days straight, which at minimum satisfies
	// the first-checkin and 5-day streak rules.
	points := decode[PointsDTO](t, do(t, router, http.MethodGet, "/api/affiliates/aff-ada/points", nil))
	assert.GreaterOrEqual(t, points.TotalPoints, 60)
}
