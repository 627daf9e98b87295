package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/achievement-engine/engine"
	"github.com/warp/achievement-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func jan(day int) engine.CalendarDate {
	return engine.NewDate(2024, time.January, day)
}

// =============================================================================
// STATUS LOG
// =============================================================================

func TestStore_StatusLog_UpsertAndOrder(t *testing.T) {
	// GIVEN: Statuses written out of order, with one day overwritten
	// WHEN: Reading the log
	// THEN: One row per day, sorted ascending by date

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetEntry(ctx, "aff-1", jan(12), "completed"))
	require.NoError(t, store.SetEntry(ctx, "aff-1", jan(10), "completed"))
	require.NoError(t, store.SetEntry(ctx, "aff-1", jan(10), "skipped"))

	entries, err := store.Entries(ctx, "aff-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, jan(10), entries[0].Date)
	assert.Equal(t, engine.StatusKey("skipped"), entries[0].Status)
	assert.Equal(t, jan(12), entries[1].Date)
}

func TestStore_ClearEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetEntry(ctx, "aff-1", jan(10), "completed"))
	require.NoError(t, store.ClearEntry(ctx, "aff-1", jan(10)))
	require.NoError(t, store.ClearEntry(ctx, "aff-1", jan(11)), "clearing an unrecorded day is a no-op")

	entries, err := store.Entries(ctx, "aff-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_StatusLog_IsolatedPerAffiliate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetEntry(ctx, "aff-1", jan(10), "completed"))
	require.NoError(t, store.SetEntry(ctx, "aff-2", jan(10), "completed"))
	require.NoError(t, store.ClearEntry(ctx, "aff-2", jan(10)))

	entries, err := store.Entries(ctx, "aff-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// =============================================================================
// AWARD LEDGER
// =============================================================================

func TestStore_InsertAwards_UniqueConstraintSkipsDuplicates(t *testing.T) {
	// GIVEN: An award held under (affiliate, rule, period tag)
	// WHEN: A racing pass inserts the same key
	// THEN: The duplicate row is skipped; the ledger holds one record

	store := newTestStore(t)
	ctx := context.Background()

	rec := engine.AwardRecord{
		AffiliateID: "aff-1",
		RuleID:      "rule-1",
		PeriodTag:   "2024-01",
		Points:      25,
		AwardedAt:   time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC),
	}

	first, err := store.InsertAwards(ctx, []engine.AwardRecord{rec})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.NotEmpty(t, first[0].ID)

	second, err := store.InsertAwards(ctx, []engine.AwardRecord{rec})
	require.NoError(t, err)
	assert.Empty(t, second)

	awards, err := store.Awards(ctx, "aff-1")
	require.NoError(t, err)
	require.Len(t, awards, 1)
	assert.Equal(t, first[0].ID, awards[0].ID)
	assert.Equal(t, 25, awards[0].Points)
}

func TestStore_TotalWindow_EmptyTagIsUnique(t *testing.T) {
	// Total-window awards store '' (not NULL) so the unique index holds:
	// a second lifetime award for the same rule must be rejected.

	store := newTestStore(t)
	ctx := context.Background()

	rec := engine.AwardRecord{AffiliateID: "aff-1", RuleID: "rule-1", PeriodTag: "", Points: 10, AwardedAt: time.Now()}
	first, err := store.InsertAwards(ctx, []engine.AwardRecord{rec})
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := store.InsertAwards(ctx, []engine.AwardRecord{rec})
	require.NoError(t, err)
	assert.Empty(t, second, "one total-window award ever")
}

func TestStore_DeleteAwards(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := engine.AwardRecord{AffiliateID: "aff-1", RuleID: "rule-1", PeriodTag: "", Points: 10, AwardedAt: time.Now()}
	inserted, err := store.InsertAwards(ctx, []engine.AwardRecord{rec})
	require.NoError(t, err)
	require.Len(t, inserted, 1)

	require.NoError(t, store.DeleteAwards(ctx, []engine.AwardID{inserted[0].ID, "no-such-id"}))

	awards, err := store.Awards(ctx, "aff-1")
	require.NoError(t, err)
	assert.Empty(t, awards)

	// The key is free again after deletion.
	again, err := store.InsertAwards(ctx, []engine.AwardRecord{rec})
	require.NoError(t, err)
	assert.Len(t, again, 1)
}

// =============================================================================
// AFFILIATES
// =============================================================================

func TestStore_Affiliates_SaveGetList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	joined := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveAffiliate(ctx, sqlite.Affiliate{ID: "aff-b", Name: "Beth", JoinedAt: joined}))
	require.NoError(t, store.SaveAffiliate(ctx, sqlite.Affiliate{ID: "aff-a", Name: "Ada", Email: "ada@example.com", JoinedAt: joined}))

	got, err := store.GetAffiliate(ctx, "aff-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.True(t, got.JoinedAt.Equal(joined))

	missing, err := store.GetAffiliate(ctx, "aff-z")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := store.ListAffiliates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ada", list[0].Name, "listed by name")

	// Upsert keeps the id stable.
	require.NoError(t, store.SaveAffiliate(ctx, sqlite.Affiliate{ID: "aff-a", Name: "Ada Prime", JoinedAt: joined}))
	list, err = store.ListAffiliates(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

// =============================================================================
// RULES
// =============================================================================

func TestStore_Rules_SaveListDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRule(ctx, sqlite.RuleRecord{ID: "rule-b", ConfigJSON: `{"id":"rule-b"}`, Position: 1}))
	require.NoError(t, store.SaveRule(ctx, sqlite.RuleRecord{ID: "rule-a", ConfigJSON: `{"id":"rule-a"}`, Position: 0}))

	rules, err := store.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "rule-a", rules[0].ID, "listed in admin position order")

	require.NoError(t, store.DeleteRule(ctx, "rule-a"))

	err = store.DeleteRule(ctx, "rule-a")
	assert.ErrorIs(t, err, engine.ErrRuleNotFound)

	rules, err = store.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}
