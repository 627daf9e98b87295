/*
scenarios.go - Demo data seeding

PURPOSE:
  Loads a small demo catalog and a couple of affiliates with recent status
  history so the dashboard has something to show. Dates are generated
  relative to today so the streak examples stay current.

SEE ALSO:
  - handlers.go: LoadDemoScenario endpoint
  - catalog/catalog.go: Rule definitions
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/warp/achievement-engine/catalog"
	"github.com/warp/achievement-engine/engine"
	"github.com/warp/achievement-engine/store/sqlite"
)

// demoCatalog is the rule set loaded by the demo scenario.
var demoCatalog = []catalog.RuleJSON{
	{
		ID:             "first-checkin",
		Title:          "First Check-In",
		XPPoints:       10,
		ValidStatuses:  []string{"completed"},
		CountThreshold: 1,
		TimeWindow:     "total",
	},
	{
		ID:             "weekday-streak-5",
		Title:          "Five Workdays Straight",
		XPPoints:       50,
		ValidStatuses:  []string{"completed"},
		StreakDays:     5,
		IgnoreWeekdays: []int{0, 6}, // streak skips over weekends
		TimeWindow:     "total",
	},
	{
		ID:            "monthly-streak-3",
		Title:         "Three-Day Run This Month",
		XPPoints:      25,
		ValidStatuses: []string{"completed"},
		StreakDays:    3,
		TimeWindow:    "month",
	},
	{
		ID:             "weekly-grind",
		Title:          "Weekly Grind",
		XPPoints:       15,
		ValidStatuses:  []string{"completed", "partial"},
		CountThreshold: 3,
		TimeWindow:     "week",
	},
	{
		ID:             "twenty-total",
		Title:          "Twenty Days Logged",
		XPPoints:       100,
		CountThreshold: 20,
		TimeWindow:     "total",
	},
}

// LoadDemoScenario seeds the demo catalog, two affiliates, and recent
// status history, then runs an evaluation pass for each affiliate.
func (h *Handler) LoadDemoScenario(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	for i, rj := range demoCatalog {
		configJSON, err := json.Marshal(rj)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to encode demo rule", err)
			return
		}
		record := sqlite.RuleRecord{ID: rj.ID, ConfigJSON: string(configJSON), Position: i}
		if err := h.Store.SaveRule(ctx, record); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save demo rule", err)
			return
		}
	}
	if err := h.LoadRules(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload rules", err)
		return
	}

	affiliates := []sqlite.Affiliate{
		{ID: "aff-ada", Name: "Ada", Email: "ada@example.com", JoinedAt: time.Now().AddDate(0, -3, 0)},
		{ID: "aff-lin", Name: "Lin", Email: "lin@example.com", JoinedAt: time.Now().AddDate(0, -1, 0)},
	}
	for _, a := range affiliates {
		if err := h.Store.SaveAffiliate(ctx, a); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save demo affiliate", err)
			return
		}
	}

	// Ada: the last six days completed. Lin: three of the last five.
	today := engine.Today()
	for i := 1; i <= 6; i++ {
		if err := h.Store.SetEntry(ctx, "aff-ada", today.AddDays(-i), "completed"); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed statuses", err)
			return
		}
	}
	for _, offset := range []int{-1, -3, -5} {
		if err := h.Store.SetEntry(ctx, "aff-lin", today.AddDays(offset), "completed"); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed statuses", err)
			return
		}
	}

	resp := RecheckResponse{}
	for _, a := range affiliates {
		delta, err := h.Engine.Recheck(ctx, engine.AffiliateID(a.ID), today)
		if err != nil {
			h.Log.WithField("affiliate", a.ID).WithError(err).Error("demo recheck failed")
			continue
		}
		resp.Checked++
		if !delta.Empty() {
			resp.Changed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
