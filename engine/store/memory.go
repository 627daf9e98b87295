// Package store provides in-memory StatusLog and AwardLedger implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/warp/achievement-engine/engine"
)

// =============================================================================
// MEMORY - In-memory status log + award ledger
// =============================================================================

// Memory implements engine.StatusLog and engine.AwardLedger in memory.
// It backs the in-process call site of the dashboard and the engine tests,
// and enforces the same (affiliate, rule, period tag) uniqueness constraint
// the SQLite adapter enforces with an index.
type Memory struct {
	mu       sync.RWMutex
	statuses map[engine.AffiliateID][]engine.StatusEntry
	awards   map[engine.AffiliateID][]engine.AwardRecord
	keys     map[awardKey]engine.AwardID
}

type awardKey struct {
	AffiliateID engine.AffiliateID
	RuleID      engine.RuleID
	PeriodTag   string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		statuses: make(map[engine.AffiliateID][]engine.StatusEntry),
		awards:   make(map[engine.AffiliateID][]engine.AwardRecord),
		keys:     make(map[awardKey]engine.AwardID),
	}
}

var (
	_ engine.StatusLog   = (*Memory)(nil)
	_ engine.AwardLedger = (*Memory)(nil)
)

// =============================================================================
// STATUS LOG
// =============================================================================

// Entries returns the affiliate's statuses sorted ascending by date.
func (m *Memory) Entries(_ context.Context, id engine.AffiliateID) ([]engine.StatusEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]engine.StatusEntry, len(m.statuses[id]))
	copy(result, m.statuses[id])
	return result, nil
}

// SetEntry records or overwrites the status for one day, keeping the slice
// date-sorted via binary-search insertion.
func (m *Memory) SetEntry(_ context.Context, id engine.AffiliateID, date engine.CalendarDate, status engine.StatusKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.statuses[id]
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].Date.AfterOrEqual(date)
	})

	entry := engine.StatusEntry{AffiliateID: id, Date: date, Status: status}
	if i < len(entries) && entries[i].Date.Equal(date) {
		// Overwrite: one entry per day at most.
		entries[i] = entry
		return nil
	}

	entries = append(entries, engine.StatusEntry{})
	copy(entries[i+1:], entries[i:])
	entries[i] = entry
	m.statuses[id] = entries
	return nil
}

// ClearEntry removes the entry for one day. Clearing an unrecorded day is a
// no-op.
func (m *Memory) ClearEntry(_ context.Context, id engine.AffiliateID, date engine.CalendarDate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.statuses[id]
	for i, e := range entries {
		if e.Date.Equal(date) {
			m.statuses[id] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

// =============================================================================
// AWARD LEDGER
// =============================================================================

// Awards returns the affiliate's current award records.
func (m *Memory) Awards(_ context.Context, id engine.AffiliateID) ([]engine.AwardRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]engine.AwardRecord, len(m.awards[id]))
	copy(result, m.awards[id])
	return result, nil
}

// InsertAwards persists new records, issuing ids. Records colliding with the
// uniqueness constraint are skipped so a redundant concurrent pass
// degenerates to a no-op.
func (m *Memory) InsertAwards(_ context.Context, records []engine.AwardRecord) ([]engine.AwardRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var inserted []engine.AwardRecord
	for _, rec := range records {
		k := awardKey{AffiliateID: rec.AffiliateID, RuleID: rec.RuleID, PeriodTag: rec.PeriodTag}
		if _, exists := m.keys[k]; exists {
			continue
		}
		rec.ID = engine.AwardID(uuid.NewString())
		m.keys[k] = rec.ID
		m.awards[rec.AffiliateID] = append(m.awards[rec.AffiliateID], rec)
		inserted = append(inserted, rec)
	}
	return inserted, nil
}

// DeleteAwards removes records by ledger id. Unknown ids are ignored.
func (m *Memory) DeleteAwards(_ context.Context, ids []engine.AwardID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	drop := make(map[engine.AwardID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	for affiliate, records := range m.awards {
		kept := records[:0]
		for _, rec := range records {
			if drop[rec.ID] {
				delete(m.keys, awardKey{AffiliateID: rec.AffiliateID, RuleID: rec.RuleID, PeriodTag: rec.PeriodTag})
				continue
			}
			kept = append(kept, rec)
		}
		m.awards[affiliate] = kept
	}
	return nil
}
