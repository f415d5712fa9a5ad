package todostore

import (
	"fmt"
	"runtime/debug"
	"time"
)

type Tx struct {
	db  *DB
	stx storageTx

	written   bool
	committed bool
	closed    bool

	startTime time.Time
	stack     string

	keyBuf [idKeySize]byte
}

func (db *DB) newTx(stx storageTx) *Tx {
	tx := &Tx{
		db:        db,
		stx:       stx,
		startTime: time.Now(),
	}
	if trackTxns {
		tx.stack = string(debug.Stack())
	}
	if stx.Writable() {
		db.WriterCount.Add(1)
		db.WriteCount.Add(1)
	} else {
		db.ReaderCount.Add(1)
		db.ReadCount.Add(1)
	}
	db.addTx(tx)
	return tx
}

func (tx *Tx) DB() *DB {
	return tx.db
}

func (tx *Tx) IsWritable() bool {
	return tx.stx.Writable()
}

// Tx runs f inside a transaction. Writable transactions are committed when f
// returns nil and rolled back otherwise, so a failed call leaves no partial
// changes behind. Panics inside f are returned as errors.
func (db *DB) Tx(writable bool, f func(tx *Tx) error) error {
	stx, err := db.stor.BeginTx(writable)
	if err != nil {
		return fmt.Errorf("todostore: begin: %w", err)
	}
	tx := db.newTx(stx)
	defer tx.Close()

	err = safelyCall(f, tx)
	if err != nil {
		return err
	}
	if writable && tx.written {
		err = tx.Commit()
		if err != nil {
			return fmt.Errorf("todostore: commit: %w", err)
		}
	}
	return nil
}

type panicked struct {
	reason any
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

func (p panicked) Unwrap() error {
	err, _ := p.reason.(error)
	return err
}

func safelyCall(fn func(*Tx) error, tx *Tx) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return fn(tx)
}

func (db *DB) BeginRead() *Tx {
	stx, err := db.stor.BeginTx(false)
	if err != nil {
		panic(fmt.Errorf("failed to start reading: %w", err))
	}
	return db.newTx(stx)
}

func (db *DB) BeginUpdate() *Tx {
	stx, err := db.stor.BeginTx(true)
	if err != nil {
		panic(fmt.Errorf("failed to start writing: %w", err))
	}
	return db.newTx(stx)
}

func (db *DB) Read(f func(tx *Tx)) {
	tx := db.BeginRead()
	defer tx.Close()
	f(tx)
}

func (db *DB) Write(f func(tx *Tx)) {
	tx := db.BeginUpdate()
	defer tx.Close()
	f(tx)
	err := tx.Commit()
	if err != nil {
		panic(fmt.Errorf("commit: %w", err))
	}
}

func (tx *Tx) markWritten() {
	if !tx.stx.Writable() {
		panic("write inside a read-only transaction")
	}
	tx.written = true
}

func (tx *Tx) Commit() error {
	tx.db.lastSize.Store(tx.stx.Size())
	tx.committed = true
	return tx.stx.Commit()
}

// Close rolls back the transaction unless it has been committed. Safe to
// call more than once.
func (tx *Tx) Close() {
	if tx.closed {
		return
	}
	tx.closed = true
	if !tx.committed {
		tx.db.lastSize.Store(tx.stx.Size())
	}
	// Rollback after Commit is a no-op for every backend.
	err := tx.stx.Rollback()
	if err != nil {
		panic(err)
	}
	if tx.stx.Writable() {
		tx.db.WriterCount.Add(-1)
	} else {
		tx.db.ReaderCount.Add(-1)
	}
	tx.db.removeTx(tx)
}
