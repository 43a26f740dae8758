package rtdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SQLiteStore persists the tree in two tables: leaves flattened to
// (path, data) rows and per-node revisions. The root revision row doubles
// as the global change counter. Schema lives in internal/migrations.
type SQLiteStore struct {
	db  *sql.DB
	hub *hub
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	s := &SQLiteStore{db: db}
	s.hub = newHub(func(ctx context.Context, path string) (any, uint64, error) {
		return s.read(ctx, s.db, path)
	})
	return s
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) Read(ctx context.Context, path string) (json.RawMessage, uint64, error) {
	if err := validPath(path); err != nil {
		return nil, 0, err
	}
	v, rev, err := s.read(ctx, s.db, path)
	if err != nil {
		return nil, 0, err
	}
	raw, err := encodeValue(v)
	return raw, rev, err
}

func (s *SQLiteStore) Write(ctx context.Context, path string, value any) error {
	return s.write(ctx, path, value, nil)
}

func (s *SQLiteStore) CompareAndSwap(ctx context.Context, path string, expectedRev uint64, value any) error {
	return s.write(ctx, path, value, &expectedRev)
}

func (s *SQLiteStore) Delete(ctx context.Context, path string) error {
	return s.Write(ctx, path, nil)
}

func (s *SQLiteStore) Push(ctx context.Context, path string, value any) (string, error) {
	key := NewKey()
	if err := s.Write(ctx, path+"/"+key, value); err != nil {
		return "", err
	}
	return key, nil
}

func (s *SQLiteStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := validPath(path); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	normalized := make(map[string]any, len(fields))
	for k, v := range fields {
		if err := validPath(path + "/" + k); err != nil {
			return err
		}
		nv, err := normalize(v)
		if err != nil {
			return err
		}
		normalized[k] = nv
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rtdb: begin: %w", err)
	}
	defer tx.Rollback()

	changed := false
	for k, v := range normalized {
		c, err := s.writeTx(ctx, tx, path+"/"+k, v)
		if err != nil {
			return err
		}
		changed = changed || c
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rtdb: commit: %w", err)
	}
	if changed {
		s.hub.notify(path)
	}
	return nil
}

func (s *SQLiteStore) Subscribe(path string, fn func(Event)) func() {
	return s.hub.subscribe(path, fn)
}

func (s *SQLiteStore) Close() error {
	s.hub.close()
	return nil
}

func (s *SQLiteStore) write(ctx context.Context, path string, value any, expectedRev *uint64) error {
	if err := validPath(path); err != nil {
		return err
	}
	v, err := normalize(value)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rtdb: begin: %w", err)
	}
	defer tx.Rollback()

	if expectedRev != nil {
		rev, err := s.nodeRev(ctx, tx, path)
		if err != nil {
			return err
		}
		if rev != *expectedRev {
			return fmt.Errorf("%w: %s at rev %d, expected %d", ErrConflict, path, rev, *expectedRev)
		}
	}

	changed, err := s.writeTx(ctx, tx, path, v)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rtdb: commit: %w", err)
	}
	if changed {
		s.hub.notify(path)
	}
	return nil
}

// writeTx replaces the subtree at path inside tx and reports whether
// anything changed. Revision bookkeeping mirrors MemoryStore: descendants
// fall back to this node's new revision, ancestors advance with it.
func (s *SQLiteStore) writeTx(ctx context.Context, tx *sql.Tx, path string, v any) (bool, error) {
	// Descendants are matched by range, not LIKE: valid paths may contain
	// '_', which LIKE treats as a wildcard. Under BINARY collation every
	// descendant of p sorts in [p||'/', p||'0') since '0' follows '/'.
	res, err := tx.ExecContext(ctx,
		`DELETE FROM tree_leaves WHERE path = ? OR (path >= ? || '/' AND path < ? || '0')`,
		path, path, path)
	if err != nil {
		return false, fmt.Errorf("rtdb: clearing subtree: %w", err)
	}
	deleted, _ := res.RowsAffected()
	changed := deleted > 0

	next := make(map[string]any)
	flatten(path, v, next)
	if len(next) > 0 {
		for _, anc := range selfAndAncestors(path)[1:] {
			if anc == "" {
				break
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM tree_leaves WHERE path = ?`, anc); err != nil {
				return false, fmt.Errorf("rtdb: clearing ancestor leaf: %w", err)
			}
		}
		for p, lv := range next {
			data, err := json.Marshal(lv)
			if err != nil {
				return false, fmt.Errorf("rtdb: encoding leaf %s: %w", p, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO tree_leaves (path, data) VALUES (?, ?)
				 ON CONFLICT(path) DO UPDATE SET data = excluded.data`,
				p, string(data)); err != nil {
				return false, fmt.Errorf("rtdb: inserting leaf %s: %w", p, err)
			}
		}
		changed = true
	}

	if !changed {
		return false, nil
	}

	var global uint64
	err = tx.QueryRowContext(ctx, `SELECT rev FROM tree_revs WHERE path = ''`).Scan(&global)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("rtdb: reading global rev: %w", err)
	}
	global++

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tree_revs WHERE path >= ? || '/' AND path < ? || '0'`,
		path, path); err != nil {
		return false, fmt.Errorf("rtdb: clearing descendant revs: %w", err)
	}
	for _, p := range selfAndAncestors(path) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tree_revs (path, rev) VALUES (?, ?)
			 ON CONFLICT(path) DO UPDATE SET rev = excluded.rev`,
			p, global); err != nil {
			return false, fmt.Errorf("rtdb: bumping rev %s: %w", p, err)
		}
	}
	return true, nil
}

func (s *SQLiteStore) read(ctx context.Context, q querier, path string) (any, uint64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT path, data FROM tree_leaves WHERE path = ? OR (path >= ? || '/' AND path < ? || '0')`,
		path, path, path)
	if err != nil {
		return nil, 0, fmt.Errorf("rtdb: reading subtree: %w", err)
	}
	defer rows.Close()

	leaves := make(map[string]any)
	for rows.Next() {
		var p, data string
		if err := rows.Scan(&p, &data); err != nil {
			return nil, 0, fmt.Errorf("rtdb: scanning leaf: %w", err)
		}
		var v any
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, 0, fmt.Errorf("rtdb: decoding leaf %s: %w", p, err)
		}
		leaves[p] = v
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	rev, err := s.nodeRev(ctx, q, path)
	if err != nil {
		return nil, 0, err
	}
	return assemble(path, leaves), rev, nil
}

func (s *SQLiteStore) nodeRev(ctx context.Context, q querier, path string) (uint64, error) {
	for _, p := range selfAndAncestors(path) {
		var rev uint64
		err := q.QueryRowContext(ctx, `SELECT rev FROM tree_revs WHERE path = ?`, p).Scan(&rev)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("rtdb: reading rev: %w", err)
		}
		return rev, nil
	}
	return 0, nil
}
