package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// Register the pure-Go SQLite driver.
	_ "modernc.org/sqlite"
)

// schema keeps the order document as JSON and the metadata bag as rows so
// the host's key/value view survives untouched.
const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id          TEXT    PRIMARY KEY,
    version     INTEGER NOT NULL,
    document    TEXT    NOT NULL,
    updated_at  TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS order_meta (
    order_id    TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    meta_key    TEXT NOT NULL,
    meta_value  TEXT NOT NULL,
    PRIMARY KEY (order_id, meta_key)
);

-- Rows are never deleted so cancelled parcels still resolve to their order.
CREATE TABLE IF NOT EXISTS parcel_orders (
    parcel_id   TEXT PRIMARY KEY,
    order_id    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_parcel_orders_order_id ON parcel_orders(order_id);
`

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
//
//	store, err := orders.OpenSQLite("./data/lockerlink.db")
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get loads the order document and its metadata rows.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Order, error) {
	const q = `SELECT version, document FROM orders WHERE id = ?`

	var (
		version  int64
		document string
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(&version, &document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get order %q: %w", id, err)
	}

	var o Order
	if err := json.Unmarshal([]byte(document), &o); err != nil {
		return nil, fmt.Errorf("sqlite: decode order %q: %w", id, err)
	}
	o.Version = version

	bag, err := s.loadMeta(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Meta, err = MetadataFromBag(bag)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Save writes the order in one transaction, guarded by its version.
func (s *SQLiteStore) Save(ctx context.Context, o *Order) error {
	document, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("sqlite: encode order %q: %w", o.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	next := o.Version + 1
	updatedAt := s.now().UTC().Format(time.RFC3339Nano)

	if o.Version == 0 {
		const insert = `INSERT INTO orders (id, version, document, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`
		res, err := tx.ExecContext(ctx, insert, o.ID, next, string(document), updatedAt)
		if err != nil {
			return fmt.Errorf("sqlite: insert order %q: %w", o.ID, err)
		}
		if err := expectOneRow(res, o); err != nil {
			return err
		}
	} else {
		const update = `UPDATE orders SET version = ?, document = ?, updated_at = ? WHERE id = ? AND version = ?`
		res, err := tx.ExecContext(ctx, update, next, string(document), updatedAt, o.ID, o.Version)
		if err != nil {
			return fmt.Errorf("sqlite: update order %q: %w", o.ID, err)
		}
		if err := expectOneRow(res, o); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_meta WHERE order_id = ?`, o.ID); err != nil {
		return fmt.Errorf("sqlite: clear meta for %q: %w", o.ID, err)
	}
	for key, value := range o.Meta.Bag() {
		const q = `INSERT INTO order_meta (order_id, meta_key, meta_value) VALUES (?, ?, ?)`
		if _, err := tx.ExecContext(ctx, q, o.ID, key, value); err != nil {
			return fmt.Errorf("sqlite: save meta %q for %q: %w", key, o.ID, err)
		}
	}

	for _, parcelID := range o.Meta.ParcelIDs {
		const q = `INSERT INTO parcel_orders (parcel_id, order_id) VALUES (?, ?)
			ON CONFLICT(parcel_id) DO UPDATE SET order_id = excluded.order_id`
		if _, err := tx.ExecContext(ctx, q, parcelID, o.ID); err != nil {
			return fmt.Errorf("sqlite: index parcel %q: %w", parcelID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit order %q: %w", o.ID, err)
	}
	o.Version = next
	return nil
}

// FindOrderByParcel looks up the parcel index.
func (s *SQLiteStore) FindOrderByParcel(ctx context.Context, parcelID string) (string, error) {
	var orderID string
	err := s.db.QueryRowContext(ctx, `SELECT order_id FROM parcel_orders WHERE parcel_id = ?`, parcelID).Scan(&orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: parcel %s", ErrNotFound, parcelID)
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: find parcel %q: %w", parcelID, err)
	}
	return orderID, nil
}

func (s *SQLiteStore) loadMeta(ctx context.Context, id string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT meta_key, meta_value FROM order_meta WHERE order_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load meta for %q: %w", id, err)
	}
	defer rows.Close()

	bag := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("sqlite: scan meta for %q: %w", id, err)
		}
		bag[key] = value
	}
	return bag, rows.Err()
}

func expectOneRow(res sql.Result, o *Order) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for %q: %w", o.ID, err)
	}
	if n != 1 {
		return fmt.Errorf("%w: %s at version %d", ErrVersionConflict, o.ID, o.Version)
	}
	return nil
}

// applySchema runs the DDL statements once. Idempotent due to IF NOT EXISTS.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
