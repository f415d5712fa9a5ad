package todostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS buckets (
	name TEXT NOT NULL PRIMARY KEY
) WITHOUT ROWID;
CREATE TABLE IF NOT EXISTS kv (
	bucket TEXT NOT NULL,
	k      BLOB NOT NULL,
	v      BLOB NOT NULL,
	PRIMARY KEY (bucket, k)
) WITHOUT ROWID;
`

// sqliteStorage keeps every bucket in a single kv table. BLOB comparison in
// SQLite is memcmp, so ORDER BY k matches Bolt's key order.
type sqliteStorage struct {
	sdb *sql.DB
	ctx context.Context

	// SQLite allows a single writer; serialize writers in-process instead of
	// spinning on SQLITE_BUSY.
	writeLock sync.Mutex
}

func openSQLiteStorage(path string, opt Options) (storage, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	if opt.IsTesting {
		dsn += "&_pragma=synchronous(OFF)"
	} else {
		dsn += "&_pragma=synchronous(NORMAL)"
	}
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	s := &sqliteStorage{sdb: sdb, ctx: context.Background()}
	if _, err := sdb.ExecContext(s.ctx, sqliteSchema); err != nil {
		sdb.Close()
		return nil, fmt.Errorf("sqlite: creating schema: %w", err)
	}
	return s, nil
}

func (s *sqliteStorage) BeginTx(writable bool) (storageTx, error) {
	if writable {
		s.writeLock.Lock()
	}
	// Read-only mode is enforced by sqliteTx.exec rather than the driver.
	stx, err := s.sdb.BeginTx(s.ctx, nil)
	if err != nil {
		if writable {
			s.writeLock.Unlock()
		}
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	return &sqliteTx{s: s, stx: stx, writable: writable}, nil
}

func (s *sqliteStorage) Close() error {
	return s.sdb.Close()
}

type sqliteTx struct {
	s        *sqliteStorage
	stx      *sql.Tx
	writable bool
	done     bool
}

func (tx *sqliteTx) Writable() bool { return tx.writable }

func (tx *sqliteTx) finish() {
	if tx.done {
		return
	}
	tx.done = true
	if tx.writable {
		tx.s.writeLock.Unlock()
	}
}

func (tx *sqliteTx) query(dest []any, query string, args ...any) bool {
	err := tx.stx.QueryRowContext(tx.s.ctx, query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		panic(fmt.Errorf("sqlite: %w", err))
	}
	return true
}

func (tx *sqliteTx) exec(query string, args ...any) (int64, error) {
	if !tx.writable {
		return 0, errTxReadOnly
	}
	res, err := tx.stx.ExecContext(tx.s.ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: %w", err)
	}
	return res.RowsAffected()
}

func (tx *sqliteTx) Bucket(name string) storageBucket {
	var one int
	if !tx.query([]any{&one}, `SELECT 1 FROM buckets WHERE name = ?`, name) {
		return nil
	}
	return sqliteBucket{tx: tx, name: name}
}

func (tx *sqliteTx) CreateBucket(name string) (storageBucket, error) {
	_, err := tx.exec(`INSERT OR IGNORE INTO buckets (name) VALUES (?)`, name)
	if err != nil {
		return nil, err
	}
	return sqliteBucket{tx: tx, name: name}, nil
}

func (tx *sqliteTx) DeleteBucket(name string) error {
	n, err := tx.exec(`DELETE FROM buckets WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBucketNotFound
	}
	_, err = tx.exec(`DELETE FROM kv WHERE bucket = ?`, name)
	return err
}

func (tx *sqliteTx) Commit() error {
	if tx.done {
		return nil
	}
	defer tx.finish()
	return tx.stx.Commit()
}

func (tx *sqliteTx) Rollback() error {
	if tx.done {
		return nil
	}
	defer tx.finish()
	err := tx.stx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (tx *sqliteTx) Size() int64 {
	var pages, pageSize int64
	if !tx.query([]any{&pages}, `PRAGMA page_count`) {
		return 0
	}
	if !tx.query([]any{&pageSize}, `PRAGMA page_size`) {
		return 0
	}
	return pages * pageSize
}

type sqliteBucket struct {
	tx   *sqliteTx
	name string
}

func (b sqliteBucket) Get(key []byte) []byte {
	var v []byte
	if !b.tx.query([]any{&v}, `SELECT v FROM kv WHERE bucket = ? AND k = ?`, b.name, key) {
		return nil
	}
	return v
}

func (b sqliteBucket) Put(key, value []byte) error {
	_, err := b.tx.exec(`INSERT INTO kv (bucket, k, v) VALUES (?, ?, ?)
		ON CONFLICT (bucket, k) DO UPDATE SET v = excluded.v`, b.name, key, value)
	return err
}

func (b sqliteBucket) Delete(key []byte) error {
	_, err := b.tx.exec(`DELETE FROM kv WHERE bucket = ? AND k = ?`, b.name, key)
	return err
}

func (b sqliteBucket) Cursor() storageCursor {
	return &sqliteCursor{b: b}
}

func (b sqliteBucket) Stats() bucketStats {
	var n, inuse int64
	b.tx.query([]any{&n, &inuse}, `SELECT COUNT(*), COALESCE(SUM(length(k) + length(v)), 0) FROM kv WHERE bucket = ?`, b.name)
	return bucketStats{
		KeyN:      int(n),
		LeafInuse: inuse,
	}
}

func (b sqliteBucket) KeyCount() int {
	var n int
	b.tx.query([]any{&n}, `SELECT COUNT(*) FROM kv WHERE bucket = ?`, b.name)
	return n
}

// sqliteCursor remembers the current key and re-queries relative to it, so
// deleting the current row keeps Next and Prev well-defined.
type sqliteCursor struct {
	b   sqliteBucket
	cur []byte
}

func (c *sqliteCursor) fetch(query string, args ...any) ([]byte, []byte) {
	var k, v []byte
	if !c.b.tx.query([]any{&k, &v}, query, append([]any{c.b.name}, args...)...) {
		return nil, nil
	}
	c.cur = k
	return k, v
}

func (c *sqliteCursor) First() ([]byte, []byte) {
	return c.fetch(`SELECT k, v FROM kv WHERE bucket = ? ORDER BY k LIMIT 1`)
}

func (c *sqliteCursor) Last() ([]byte, []byte) {
	return c.fetch(`SELECT k, v FROM kv WHERE bucket = ? ORDER BY k DESC LIMIT 1`)
}

func (c *sqliteCursor) Seek(seek []byte) ([]byte, []byte) {
	return c.fetch(`SELECT k, v FROM kv WHERE bucket = ? AND k >= ? ORDER BY k LIMIT 1`, seek)
}

func (c *sqliteCursor) Next() ([]byte, []byte) {
	if c.cur == nil {
		return c.First()
	}
	return c.fetch(`SELECT k, v FROM kv WHERE bucket = ? AND k > ? ORDER BY k LIMIT 1`, c.cur)
}

func (c *sqliteCursor) Prev() ([]byte, []byte) {
	if c.cur == nil {
		return nil, nil
	}
	return c.fetch(`SELECT k, v FROM kv WHERE bucket = ? AND k < ? ORDER BY k DESC LIMIT 1`, c.cur)
}

func (c *sqliteCursor) Delete() error {
	if c.cur == nil {
		return nil
	}
	return c.b.Delete(c.cur)
}
