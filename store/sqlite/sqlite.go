/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the engine's persistence interfaces (StatusLog, AwardLedger)
  plus the affiliate registry and rule config storage behind the admin
  panel. In production the same patterns apply to PostgreSQL - only minor
  SQL dialect differences.

INTERFACES IMPLEMENTED:
  engine.StatusLog:   daily status entries, one per (affiliate, date)
  engine.AwardLedger: granted awards, insert/delete only

KEY TABLES:
  affiliates: Registry of tracked affiliates
  statuses:   Sparse status log, primary key (affiliate_id, date)
  awards:     Current award ledger
  rules:      Achievement rule configs as JSON rows, ordered by position

IDEMPOTENCY ENFORCEMENT:
  idx_awards_unique on (affiliate_id, rule_id, period_tag) is the engine's
  idempotency key. Inserts use ON CONFLICT DO NOTHING so a racing redundant
  evaluation pass degenerates to a no-op instead of producing a duplicate
  award; the reconciler is not the only line of defense.

  period_tag is stored as '' (never NULL) for total-window awards: SQLite
  treats NULLs as distinct in unique indexes, which would break the
  one-award-ever invariant.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/achievements.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := engine.NewService(store, store, rules)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for the other call site
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/achievement-engine/engine"
)

// Store implements the engine storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

var (
	_ engine.StatusLog   = (*Store)(nil)
	_ engine.AwardLedger = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Affiliates (registry of tracked subjects)
	CREATE TABLE IF NOT EXISTS affiliates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		joined_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Statuses (sparse daily log; one row per affiliate+day at most)
	CREATE TABLE IF NOT EXISTS statuses (
		affiliate_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status_key TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (affiliate_id, date)
	);

	-- Awards (current ledger of granted achievements)
	CREATE TABLE IF NOT EXISTS awards (
		id TEXT PRIMARY KEY,
		affiliate_id TEXT NOT NULL,
		rule_id TEXT NOT NULL,
		period_tag TEXT NOT NULL DEFAULT '',
		points INTEGER NOT NULL,
		awarded_at TEXT NOT NULL
	);

	-- CRITICAL: the engine's idempotency key. One award per
	-- (affiliate, rule, period tag), enforced here rather than trusting
	-- the reconciler alone.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_awards_unique
		ON awards(affiliate_id, rule_id, period_tag);

	CREATE INDEX IF NOT EXISTS idx_awards_affiliate
		ON awards(affiliate_id);

	-- Rules (achievement catalog, JSON config per rule, admin-ordered)
	CREATE TABLE IF NOT EXISTS rules (
		id TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_position
		ON rules(position);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STATUS LOG
// =============================================================================

// Entries returns all statuses for an affiliate, sorted ascending by date.
func (s *Store) Entries(ctx context.Context, id engine.AffiliateID) ([]engine.StatusEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, status_key FROM statuses
		WHERE affiliate_id = ?
		ORDER BY date ASC`, string(id))
	if err != nil {
		return nil, fmt.Errorf("query statuses: %w", err)
	}
	defer rows.Close()

	var entries []engine.StatusEntry
	for rows.Next() {
		var dateStr, statusKey string
		if err := rows.Scan(&dateStr, &statusKey); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		date, err := engine.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse status date %q: %w", dateStr, err)
		}
		entries = append(entries, engine.StatusEntry{
			AffiliateID: id,
			Date:        date,
			Status:      engine.StatusKey(statusKey),
		})
	}
	return entries, rows.Err()
}

// SetEntry records or overwrites the status for one day.
func (s *Store) SetEntry(ctx context.Context, id engine.AffiliateID, date engine.CalendarDate, status engine.StatusKey) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO statuses (affiliate_id, date, status_key, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(affiliate_id, date) DO UPDATE SET
			status_key = excluded.status_key,
			updated_at = excluded.updated_at`,
		string(id), date.String(), string(status), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// ClearEntry deletes the status row for one day. Clearing an unrecorded day
// is a no-op.
func (s *Store) ClearEntry(ctx context.Context, id engine.AffiliateID, date engine.CalendarDate) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM statuses WHERE affiliate_id = ? AND date = ?`,
		string(id), date.String())
	if err != nil {
		return fmt.Errorf("clear status: %w", err)
	}
	return nil
}

// =============================================================================
// AWARD LEDGER
// =============================================================================

// Awards returns all current award records for an affiliate.
func (s *Store) Awards(ctx context.Context, id engine.AffiliateID) ([]engine.AwardRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_id, period_tag, points, awarded_at FROM awards
		WHERE affiliate_id = ?
		ORDER BY awarded_at ASC, id ASC`, string(id))
	if err != nil {
		return nil, fmt.Errorf("query awards: %w", err)
	}
	defer rows.Close()

	var records []engine.AwardRecord
	for rows.Next() {
		var rec engine.AwardRecord
		var awardID, ruleID, awardedAt string
		if err := rows.Scan(&awardID, &ruleID, &rec.PeriodTag, &rec.Points, &awardedAt); err != nil {
			return nil, fmt.Errorf("scan award: %w", err)
		}
		rec.ID = engine.AwardID(awardID)
		rec.AffiliateID = id
		rec.RuleID = engine.RuleID(ruleID)
		rec.AwardedAt, err = time.Parse(time.RFC3339, awardedAt)
		if err != nil {
			return nil, fmt.Errorf("parse awarded_at %q: %w", awardedAt, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// InsertAwards bulk-inserts award records in one transaction, issuing ids.
// Rows colliding with idx_awards_unique are skipped (ON CONFLICT DO
// NOTHING); the returned slice holds only the records actually inserted.
func (s *Store) InsertAwards(ctx context.Context, records []engine.AwardRecord) ([]engine.AwardRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert awards: %w", err)
	}
	defer tx.Rollback()

	var inserted []engine.AwardRecord
	for _, rec := range records {
		rec.ID = engine.AwardID(uuid.NewString())
		res, err := tx.ExecContext(ctx, `
			INSERT INTO awards (id, affiliate_id, rule_id, period_tag, points, awarded_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(affiliate_id, rule_id, period_tag) DO NOTHING`,
			string(rec.ID), string(rec.AffiliateID), string(rec.RuleID),
			rec.PeriodTag, rec.Points, rec.AwardedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return nil, fmt.Errorf("insert award %s: %w", rec.Key(), err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// Lost a race with a concurrent pass; the award already exists.
			continue
		}
		inserted = append(inserted, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert awards: %w", err)
	}
	return inserted, nil
}

// DeleteAwards bulk-deletes award records by ledger id in one transaction.
// Unknown ids are ignored.
func (s *Store) DeleteAwards(ctx context.Context, ids []engine.AwardID) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete awards: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM awards WHERE id = ?`, string(id)); err != nil {
			return fmt.Errorf("delete award %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete awards: %w", err)
	}
	return nil
}

// =============================================================================
// AFFILIATES
// =============================================================================

// Affiliate is a registry record for one tracked subject.
type Affiliate struct {
	ID        string
	Name      string
	Email     string
	JoinedAt  time.Time
	CreatedAt time.Time
}

// SaveAffiliate inserts or updates an affiliate record.
func (s *Store) SaveAffiliate(ctx context.Context, a Affiliate) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO affiliates (id, name, email, joined_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			joined_at = excluded.joined_at`,
		a.ID, a.Name, a.Email,
		a.JoinedAt.UTC().Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save affiliate: %w", err)
	}
	return nil
}

// GetAffiliate returns one affiliate, or nil if it doesn't exist.
func (s *Store) GetAffiliate(ctx context.Context, id string) (*Affiliate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, joined_at, created_at FROM affiliates WHERE id = ?`, id)

	var a Affiliate
	var joinedAt, createdAt string
	err := row.Scan(&a.ID, &a.Name, &a.Email, &joinedAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get affiliate: %w", err)
	}
	a.JoinedAt, _ = time.Parse(time.RFC3339, joinedAt)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

// ListAffiliates returns all affiliates ordered by name.
func (s *Store) ListAffiliates(ctx context.Context) ([]Affiliate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, joined_at, created_at FROM affiliates ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list affiliates: %w", err)
	}
	defer rows.Close()

	var result []Affiliate
	for rows.Next() {
		var a Affiliate
		var joinedAt, createdAt string
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &joinedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan affiliate: %w", err)
		}
		a.JoinedAt, _ = time.Parse(time.RFC3339, joinedAt)
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		result = append(result, a)
	}
	return result, rows.Err()
}

// =============================================================================
// RULES - Achievement catalog persistence
// =============================================================================

// RuleRecord is one stored rule config row.
type RuleRecord struct {
	ID         string
	ConfigJSON string
	Position   int
}

// SaveRule inserts or updates a rule config row.
func (s *Store) SaveRule(ctx context.Context, r RuleRecord) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (id, config_json, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			config_json = excluded.config_json,
			position = excluded.position,
			updated_at = excluded.updated_at`,
		r.ID, r.ConfigJSON, r.Position, now, now)
	if err != nil {
		return fmt.Errorf("save rule: %w", err)
	}
	return nil
}

// ListRules returns all rule config rows in admin-defined order.
func (s *Store) ListRules(ctx context.Context) ([]RuleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, config_json, position FROM rules ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var result []RuleRecord
	for rows.Next() {
		var r RuleRecord
		if err := rows.Scan(&r.ID, &r.ConfigJSON, &r.Position); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// DeleteRule removes a rule config row. Returns engine.ErrRuleNotFound when
// no row matched. Existing awards for the rule are left standing; the
// reconciler never revokes awards without a matching evaluation.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.ErrRuleNotFound
	}
	return nil
}
