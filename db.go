package todostore

import (
	"fmt"
	"log"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"
)

const trackTxns = true

// InMemory can be passed to Open instead of a file path to get a transient
// database that lives until Close.
const InMemory = ":memory:"

type Backend int

const (
	Bolt Backend = iota
	SQLite
	Memory
)

func (b Backend) String() string {
	switch b {
	case Bolt:
		return "bolt"
	case SQLite:
		return "sqlite"
	case Memory:
		return "memory"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(s) {
	case "", "bolt", "bbolt":
		return Bolt, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "memory", "mem":
		return Memory, nil
	default:
		return 0, invalidArgf("unknown backend %q", s)
	}
}

type DB struct {
	stor         storage
	bdb          *bbolt.DB
	backend      Backend
	logf         func(format string, args ...any)
	logger       *slog.Logger
	verbose      bool
	maxValueSize int

	lastSize    atomic.Int64
	ReaderCount atomic.Int64
	WriterCount atomic.Int64
	ReadCount   atomic.Uint64
	WriteCount  atomic.Uint64

	txns     []*Tx
	txnsLock sync.Mutex
}

type Options struct {
	Backend Backend

	// Logf receives verbose operation traces; defaults to log.Printf.
	Logf func(format string, args ...any)
	// Logger receives low-level debug output; defaults to slog.Default().
	Logger  *slog.Logger
	Verbose bool

	IsTesting bool
	MmapSize  int

	// MaxValueSize bounds the encoded size of a single todo; 0 means
	// DefaultMaxValueSize. Negative values are rejected.
	MaxValueSize int
}

func Open(path string, opt Options) (*DB, error) {
	if opt.MaxValueSize < 0 {
		return nil, invalidArgf("negative MaxValueSize %d", opt.MaxValueSize)
	}
	if path == InMemory {
		opt.Backend = Memory
	}

	db := &DB{
		backend:      opt.Backend,
		logf:         opt.Logf,
		logger:       opt.Logger,
		verbose:      opt.Verbose,
		maxValueSize: opt.MaxValueSize,
	}
	if db.logf == nil {
		db.logf = log.Printf
	}
	if db.logger == nil {
		db.logger = slog.Default()
	}
	if db.maxValueSize == 0 {
		db.maxValueSize = DefaultMaxValueSize
	}

	switch opt.Backend {
	case Memory:
		db.stor = newMemStorage()
	case SQLite:
		stor, err := openSQLiteStorage(path, opt)
		if err != nil {
			return nil, err
		}
		db.stor = stor
	case Bolt:
		bopt := &bbolt.Options{}
		*bopt = *bbolt.DefaultOptions
		bopt.Timeout = 10 * time.Second
		if opt.IsTesting {
			bopt.NoSync = true
			bopt.NoFreelistSync = true
			bopt.InitialMmapSize = 1024 * 1024 * 5
		} else {
			bopt.InitialMmapSize = 1024 * 1024 * 64
			bopt.FreelistType = bbolt.FreelistMapType
		}
		if opt.MmapSize != 0 {
			bopt.InitialMmapSize = opt.MmapSize
		}
		bdb, err := bbolt.Open(path, 0666, bopt)
		if err != nil {
			return nil, fmt.Errorf("todostore: %w", err)
		}
		db.bdb = bdb
		db.stor = newBoltStorage(bdb)
	default:
		return nil, invalidArgf("unknown backend %v", opt.Backend)
	}

	err := db.Tx(true, prepareBuckets)
	if err != nil {
		db.stor.Close()
		return nil, fmt.Errorf("todostore: preparing %s: %w", path, err)
	}
	return db, nil
}

func (db *DB) Backend() Backend {
	return db.backend
}

// Bolt returns the underlying Bolt database, or nil for other backends.
func (db *DB) Bolt() *bbolt.DB {
	return db.bdb
}

func (db *DB) MaxValueSize() int {
	return db.maxValueSize
}

// Size returns the database size in bytes as of the last finished transaction.
func (db *DB) Size() int64 {
	return db.lastSize.Load()
}

func (db *DB) Close() {
	err := db.stor.Close()
	if err != nil {
		panic(fmt.Errorf("todostore: closing: %w", err))
	}
}

func (db *DB) addTx(tx *Tx) {
	if !trackTxns {
		return
	}
	db.txnsLock.Lock()
	defer db.txnsLock.Unlock()
	db.txns = append(db.txns, tx)
}

func (db *DB) removeTx(tx *Tx) {
	if !trackTxns {
		return
	}
	db.txnsLock.Lock()
	defer db.txnsLock.Unlock()

	found := slices.Index(db.txns, tx)
	if found < 0 {
		panic("tx not found in list")
	}

	n := len(db.txns)
	db.txns[found] = db.txns[n-1]
	db.txns[n-1] = nil // ensure it gets collected
	db.txns = db.txns[:n-1]
}

func (db *DB) DescribeOpenTxns() string {
	if !trackTxns {
		return "OPEN TX TRACKING DISABLED"
	}

	db.txnsLock.Lock()
	txns := slices.Clone(db.txns)
	db.txnsLock.Unlock()

	if len(txns) == 0 {
		return "NO OPEN TRANSACTIONS"
	}

	slices.SortFunc(txns, func(a, b *Tx) int {
		return a.startTime.Compare(b.startTime)
	})

	now := time.Now()

	var buf strings.Builder
	fmt.Fprintf(&buf, "%d OPEN TRANSACTIONS:\n", len(txns))
	for _, tx := range txns {
		ms := now.Sub(tx.startTime).Milliseconds()
		mode := "read"
		if tx.IsWritable() {
			mode = "write"
		}
		if ms < 100 {
			fmt.Fprintf(&buf, "\n---\n%s, open for %d ms\n", mode, ms)
		} else {
			fmt.Fprintf(&buf, "\n---\n%s, open for %d ms:\n%s", mode, ms, tx.stack)
		}
	}

	return buf.String()
}
