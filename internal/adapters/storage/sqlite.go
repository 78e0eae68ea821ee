package storage

// sqlite.go: raw input snapshots for offline replay.
//
// Layout:
//   - `snapshots`: one row per capture (region, type, captured_at).
//   - `history_points` / `orders`: the captured inputs, keyed by snapshot and
//     an ordinal that preserves the order they were fetched in.
//   - In-memory fingerprint cache: a capture identical to the last one stored
//     for the same market is skipped, so an idle market does not grow the DB.
//   - Prune on open: snapshots older than the retention window are dropped.
//
// Only inputs are stored. Analysis results are always recomputed.

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/flipscan/internal/domain"
	"github.com/alejandrodnm/flipscan/internal/ports"
)

var (
	_ ports.SnapshotStore = (*SnapshotStore)(nil)
	_ ports.MarketData    = (*SnapshotStore)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id          TEXT PRIMARY KEY,
    region_id   INTEGER NOT NULL,
    type_id     INTEGER NOT NULL,
    captured_at INTEGER NOT NULL, -- unix millis, UTC
    fingerprint TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS history_points (
    snapshot_id   TEXT    NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
    seq           INTEGER NOT NULL,
    day           TEXT    NOT NULL, -- YYYY-MM-DD
    traded_volume INTEGER NOT NULL,
    average_price REAL    NOT NULL,
    high_price    REAL    NOT NULL,
    low_price     REAL    NOT NULL,
    order_count   INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (snapshot_id, seq)
);

CREATE TABLE IF NOT EXISTS orders (
    snapshot_id      TEXT    NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
    seq              INTEGER NOT NULL,
    order_id         INTEGER NOT NULL,
    is_buy           INTEGER NOT NULL,
    price            REAL    NOT NULL,
    remaining_volume INTEGER NOT NULL,
    PRIMARY KEY (snapshot_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_market ON snapshots(region_id, type_id, captured_at DESC);
`

const (
	defaultRetention = 30 * 24 * time.Hour
	dayLayout        = "2006-01-02"
)

// ErrSnapshotNotFound is returned when no snapshot exists for a market.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore implements ports.SnapshotStore on SQLite (pure Go, no CGo).
// It also replays the latest snapshot as a ports.MarketData provider.
type SnapshotStore struct {
	db        *sql.DB
	retention time.Duration
	now       func() time.Time
	cache     map[domain.MarketKey]string // market → last stored fingerprint
	mu        sync.Mutex
}

// Option tunes a SnapshotStore.
type Option func(*SnapshotStore)

// WithRetention sets how long snapshots are kept. Zero or negative keeps them forever.
func WithRetention(d time.Duration) Option {
	return func(s *SnapshotStore) { s.retention = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *SnapshotStore) { s.now = now }
}

// NewSnapshotStore opens (or creates) the database at path, applies the
// schema, prunes expired snapshots and warms the fingerprint cache.
func NewSnapshotStore(path string, opts ...Option) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSnapshotStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSnapshotStore: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSnapshotStore: apply schema: %w", err)
	}

	s := &SnapshotStore{
		db:        db,
		retention: defaultRetention,
		now:       time.Now,
		cache:     make(map[domain.MarketKey]string),
	}
	for _, o := range opts {
		o(s)
	}

	ctx := context.Background()
	if n, err := s.Prune(ctx); err != nil {
		slog.Warn("snapshot prune failed", "err", err)
	} else if n > 0 {
		slog.Info("pruned expired snapshots", "count", n)
	}
	s.warmCache(ctx)
	return s, nil
}

// RecordSnapshot stores snap unless it is identical to the last snapshot
// stored for the same market. snap.ID and snap.CapturedAt must be set.
func (s *SnapshotStore) RecordSnapshot(ctx context.Context, snap domain.Snapshot) error {
	if snap.ID == "" {
		return errors.New("storage.RecordSnapshot: empty snapshot id")
	}

	fp, err := fingerprint(snap)
	if err != nil {
		return fmt.Errorf("storage.RecordSnapshot: fingerprint: %w", err)
	}
	if s.unchanged(snap.Key, fp) {
		slog.Debug("snapshot unchanged, skipping", "region", snap.Key.RegionID, "type_id", snap.Key.TypeID)
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.RecordSnapshot: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, region_id, type_id, captured_at, fingerprint) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.Key.RegionID, snap.Key.TypeID, snap.CapturedAt.UTC().UnixMilli(), fp,
	); err != nil {
		return fmt.Errorf("storage.RecordSnapshot: insert snapshot: %w", err)
	}

	if err := insertHistory(ctx, tx, snap.ID, snap.History); err != nil {
		return fmt.Errorf("storage.RecordSnapshot: %w", err)
	}
	if err := insertOrders(ctx, tx, snap.ID, snap.Orders); err != nil {
		return fmt.Errorf("storage.RecordSnapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.RecordSnapshot: commit: %w", err)
	}

	s.mu.Lock()
	s.cache[snap.Key] = fp
	s.mu.Unlock()
	return nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, id string, points []domain.HistoryPoint) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO history_points
			(snapshot_id, seq, day, traded_volume, average_price, high_price, low_price, order_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare history: %w", err)
	}
	defer stmt.Close()

	for i, p := range points {
		if _, err := stmt.ExecContext(ctx,
			id, i, p.Date.UTC().Format(dayLayout),
			p.TradedVolume, p.AveragePrice, p.HighPrice, p.LowPrice, p.OrderCount,
		); err != nil {
			return fmt.Errorf("insert history[%d]: %w", i, err)
		}
	}
	return nil
}

func insertOrders(ctx context.Context, tx *sql.Tx, id string, orders []domain.OrderBookEntry) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO orders (snapshot_id, seq, order_id, is_buy, price, remaining_volume)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare orders: %w", err)
	}
	defer stmt.Close()

	for i, o := range orders {
		isBuy := 0
		if o.IsBuySide {
			isBuy = 1
		}
		if _, err := stmt.ExecContext(ctx, id, i, o.OrderID, isBuy, o.Price, o.RemainingVolume); err != nil {
			return fmt.Errorf("insert orders[%d]: %w", i, err)
		}
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot for key, or
// ErrSnapshotNotFound.
func (s *SnapshotStore) LatestSnapshot(ctx context.Context, key domain.MarketKey) (domain.Snapshot, error) {
	snap := domain.Snapshot{Key: key}
	var capturedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, captured_at FROM snapshots
		WHERE region_id = ? AND type_id = ?
		ORDER BY captured_at DESC, rowid DESC
		LIMIT 1`, key.RegionID, key.TypeID,
	).Scan(&snap.ID, &capturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, fmt.Errorf("storage.LatestSnapshot: %s: %w", key, ErrSnapshotNotFound)
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("storage.LatestSnapshot: %s: %w", key, err)
	}
	snap.CapturedAt = time.UnixMilli(capturedAt).UTC()

	if snap.History, err = s.loadHistory(ctx, snap.ID); err != nil {
		return domain.Snapshot{}, fmt.Errorf("storage.LatestSnapshot: %w", err)
	}
	if snap.Orders, err = s.loadOrders(ctx, snap.ID); err != nil {
		return domain.Snapshot{}, fmt.Errorf("storage.LatestSnapshot: %w", err)
	}
	return snap, nil
}

func (s *SnapshotStore) loadHistory(ctx context.Context, id string) ([]domain.HistoryPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, traded_volume, average_price, high_price, low_price, order_count
		FROM history_points WHERE snapshot_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	points := make([]domain.HistoryPoint, 0)
	for rows.Next() {
		var p domain.HistoryPoint
		var day string
		if err := rows.Scan(&day, &p.TradedVolume, &p.AveragePrice, &p.HighPrice, &p.LowPrice, &p.OrderCount); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if p.Date, err = time.ParseInLocation(dayLayout, day, time.UTC); err != nil {
			return nil, fmt.Errorf("parse day %q: %w", day, err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *SnapshotStore) loadOrders(ctx context.Context, id string) ([]domain.OrderBookEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, is_buy, price, remaining_volume
		FROM orders WHERE snapshot_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.OrderBookEntry, 0)
	for rows.Next() {
		var o domain.OrderBookEntry
		var isBuy int
		if err := rows.Scan(&o.OrderID, &isBuy, &o.Price, &o.RemainingVolume); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		o.IsBuySide = isBuy == 1
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// FetchHistory replays the history of the latest snapshot for key.
func (s *SnapshotStore) FetchHistory(ctx context.Context, key domain.MarketKey) ([]domain.HistoryPoint, error) {
	snap, err := s.LatestSnapshot(ctx, key)
	if err != nil {
		return nil, err
	}
	return snap.History, nil
}

// FetchOrderBook replays the order book of the latest snapshot for key.
func (s *SnapshotStore) FetchOrderBook(ctx context.Context, key domain.MarketKey) ([]domain.OrderBookEntry, error) {
	snap, err := s.LatestSnapshot(ctx, key)
	if err != nil {
		return nil, err
	}
	return snap.Orders, nil
}

// Prune deletes snapshots older than the retention window and returns how
// many were removed.
func (s *SnapshotStore) Prune(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().Add(-s.retention).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE captured_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("storage.Prune: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// --- internal helpers ---

func (s *SnapshotStore) unchanged(key domain.MarketKey, fp string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache[key] == fp
}

// warmCache loads the newest fingerprint per market so the first capture
// after a restart is deduplicated too.
func (s *SnapshotStore) warmCache(ctx context.Context) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT region_id, type_id, fingerprint FROM snapshots
		ORDER BY captured_at, rowid`)
	if err != nil {
		return
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var key domain.MarketKey
		var fp string
		if rows.Scan(&key.RegionID, &key.TypeID, &fp) == nil {
			s.cache[key] = fp
		}
	}
}

// fingerprint hashes the captured inputs, ignoring id and capture time.
func fingerprint(snap domain.Snapshot) (string, error) {
	b, err := json.Marshal(struct {
		H []domain.HistoryPoint
		O []domain.OrderBookEntry
	}{snap.History, snap.Orders})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
