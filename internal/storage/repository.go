package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jb49088/riven-sniper/internal/normalizer"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	createListingsSQL = `CREATE TABLE IF NOT EXISTS listings (
        id         TEXT PRIMARY KEY,
        seller     TEXT NOT NULL,
        source     TEXT NOT NULL,
        weapon     TEXT NOT NULL,
        stat1      TEXT NOT NULL DEFAULT '',
        stat2      TEXT NOT NULL DEFAULT '',
        stat3      TEXT NOT NULL DEFAULT '',
        stat4      TEXT NOT NULL DEFAULT '',
        price      BIGINT NOT NULL,
        scraped_at TIMESTAMPTZ NOT NULL
    );`

	createListingsIndexSQL = `CREATE INDEX IF NOT EXISTS idx_listings_lookup
    ON listings (weapon, stat1, stat2, stat3, stat4, price);`

	createGodrollsSQL = `CREATE TABLE IF NOT EXISTS godrolls (
        weapon            TEXT NOT NULL,
        stat1             TEXT NOT NULL DEFAULT '',
        stat2             TEXT NOT NULL DEFAULT '',
        stat3             TEXT NOT NULL DEFAULT '',
        stat4             TEXT NOT NULL DEFAULT '',
        median_price      NUMERIC NOT NULL,
        sample_count      INTEGER NOT NULL,
        sample_percentile DOUBLE PRECISION NOT NULL,
        PRIMARY KEY (weapon, stat1, stat2, stat3, stat4)
    );`

	createAlertedSQL = `CREATE TABLE IF NOT EXISTS alerted_listings (
        listing_id TEXT PRIMARY KEY
    );`

	insertListingSQL = `INSERT INTO listings (
        id, seller, source, weapon, stat1, stat2, stat3, stat4, price, scraped_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    )
    ON CONFLICT (id) DO NOTHING;`

	listListingsSQL = `SELECT
        id, seller, source, weapon, stat1, stat2, stat3, stat4, price, scraped_at
    FROM listings;`

	listRecentBelowSQL = `SELECT
        id, seller, source, weapon, stat1, stat2, stat3, stat4, price, scraped_at
    FROM listings
    WHERE weapon = $1 AND stat1 = $2 AND stat2 = $3 AND stat3 = $4 AND stat4 = $5
      AND price > 0
      AND price <= $6::numeric
    ORDER BY scraped_at DESC
    LIMIT $7;`

	listWeaponListingsSQL = `SELECT
        id, seller, source, weapon, stat1, stat2, stat3, stat4, price, scraped_at
    FROM listings
    WHERE weapon = $1
    ORDER BY scraped_at
    LIMIT $2;`

	countListingsSQL = `SELECT COUNT(*) FROM listings;`

	deleteGodrollsSQL = `DELETE FROM godrolls;`

	insertGodrollSQL = `INSERT INTO godrolls (
        weapon, stat1, stat2, stat3, stat4, median_price, sample_count, sample_percentile
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    );`

	listGodrollsSQL = `SELECT
        weapon, stat1, stat2, stat3, stat4, median_price, sample_count, sample_percentile
    FROM godrolls
    ORDER BY weapon, median_price DESC;`

	listAlertedSQL = `SELECT listing_id FROM alerted_listings;`

	insertAlertedSQL = `INSERT INTO alerted_listings (listing_id)
    VALUES ($1)
    ON CONFLICT (listing_id) DO NOTHING;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ListingStore defines operations for listing persistence.
type ListingStore interface {
	UpsertListings(ctx context.Context, listings []Listing) (int64, error)
	ListListings(ctx context.Context) ([]Listing, error)
	CountListings(ctx context.Context) (int64, error)
}

// GodrollStore defines operations for godroll baselines. ReplaceGodrolls must
// swap the entire set atomically so readers never observe a partial rebuild.
type GodrollStore interface {
	ReplaceGodrolls(ctx context.Context, godrolls []Godroll) error
	ListGodrolls(ctx context.Context) ([]Godroll, error)
	RecentListingsBelow(ctx context.Context, key normalizer.ProfileKey, maxPrice decimal.Decimal, limit int) ([]Listing, error)
}

// AlertStore tracks which listing ids have already been surfaced as deals.
// The set is append only.
type AlertStore interface {
	AlertedIDs(ctx context.Context) (map[string]struct{}, error)
	MarkAlerted(ctx context.Context, ids []string) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to listings, godrolls, and alerted markers.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	for _, stmt := range []string{createListingsSQL, createListingsIndexSQL, createGodrollsSQL, createAlertedSQL} {
		if _, execErr := pool.Exec(ctx, stmt); execErr != nil {
			return fmt.Errorf("ensure schema: %w", execErr)
		}
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Best-effort unlock; the session release drops the lock anyway.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertListings inserts a batch of listings, skipping ids already stored.
// It returns the number of newly inserted rows.
func (s *Store) UpsertListings(ctx context.Context, listings []Listing) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	if len(listings) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, l := range listings {
		batch.Queue(insertListingSQL,
			l.ID,
			l.Seller,
			string(l.Source),
			l.Weapon,
			l.Stat1,
			l.Stat2,
			l.Stat3,
			l.Stat4,
			l.Price,
			l.ScrapedAt,
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range listings {
		tag, execErr := results.Exec()
		if execErr != nil {
			return inserted, fmt.Errorf("insert listing: %w", execErr)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// ListListings returns every stored listing.
func (s *Store) ListListings(ctx context.Context) ([]Listing, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listListingsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list listings: %w", queryErr)
	}
	defer rows.Close()

	return collectListings(rows)
}

// RecentListingsBelow returns the most recent listings for a profile priced
// between zero (exclusive) and maxPrice (inclusive).
func (s *Store) RecentListingsBelow(ctx context.Context, key normalizer.ProfileKey, maxPrice decimal.Decimal, limit int) ([]Listing, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentBelowSQL,
		key.Weapon, key.Stat1, key.Stat2, key.Stat3, key.Stat4, maxPrice.String(), limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent listings below: %w", queryErr)
	}
	defer rows.Close()

	return collectListings(rows)
}

// ListingsForWeapon returns price history for one weapon in scrape order.
func (s *Store) ListingsForWeapon(ctx context.Context, weapon string, limit int) ([]Listing, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listWeaponListingsSQL, weapon, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list weapon listings: %w", queryErr)
	}
	defer rows.Close()

	return collectListings(rows)
}

// CountListings counts stored listings.
func (s *Store) CountListings(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countListingsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count listings: %w", scanErr)
	}
	return count, nil
}

// ReplaceGodrolls swaps the entire godroll set inside one transaction.
// Readers see either the previous set or the new one, never a mix.
func (s *Store) ReplaceGodrolls(ctx context.Context, godrolls []Godroll) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin godroll rebuild: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, execErr := tx.Exec(ctx, deleteGodrollsSQL); execErr != nil {
		return fmt.Errorf("clear godrolls: %w", execErr)
	}

	for _, g := range godrolls {
		if _, execErr := tx.Exec(ctx, insertGodrollSQL,
			g.Weapon,
			g.Stat1,
			g.Stat2,
			g.Stat3,
			g.Stat4,
			g.MedianPrice.String(),
			g.SampleCount,
			g.SamplePercentile,
		); execErr != nil {
			return fmt.Errorf("insert godroll: %w", execErr)
		}
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("commit godroll rebuild: %w", commitErr)
	}
	return nil
}

// ListGodrolls returns the current godroll set.
func (s *Store) ListGodrolls(ctx context.Context) ([]Godroll, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listGodrollsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list godrolls: %w", queryErr)
	}
	defer rows.Close()

	godrolls := make([]Godroll, 0)
	for rows.Next() {
		var g Godroll
		var medianStr string
		if err := rows.Scan(
			&g.Weapon,
			&g.Stat1,
			&g.Stat2,
			&g.Stat3,
			&g.Stat4,
			&medianStr,
			&g.SampleCount,
			&g.SamplePercentile,
		); err != nil {
			return nil, err
		}

		median, convErr := decimal.NewFromString(medianStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse median price: %w", convErr)
		}
		g.MedianPrice = median

		godrolls = append(godrolls, g)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return godrolls, nil
}

// AlertedIDs loads the full set of already-alerted listing ids.
func (s *Store) AlertedIDs(ctx context.Context) (map[string]struct{}, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAlertedSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerted ids: %w", queryErr)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

// MarkAlerted records listing ids as alerted inside one transaction; either
// the whole batch commits or none of it does.
func (s *Store) MarkAlerted(ctx context.Context, ids []string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin mark alerted: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, id := range ids {
		if _, execErr := tx.Exec(ctx, insertAlertedSQL, id); execErr != nil {
			return fmt.Errorf("mark alerted: %w", execErr)
		}
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("commit mark alerted: %w", commitErr)
	}
	return nil
}

func collectListings(rows pgx.Rows) ([]Listing, error) {
	listings := make([]Listing, 0)
	for rows.Next() {
		var l Listing
		var source string
		if err := rows.Scan(
			&l.ID,
			&l.Seller,
			&source,
			&l.Weapon,
			&l.Stat1,
			&l.Stat2,
			&l.Stat3,
			&l.Stat4,
			&l.Price,
			&l.ScrapedAt,
		); err != nil {
			return nil, err
		}
		l.Source = normalizer.Source(source)
		listings = append(listings, l)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return listings, nil
}
