package todostore

// Service implements the todo operations on top of a DB it owns.
//
// Every call runs in its own transaction: reads see a consistent snapshot,
// and writes are serialized by the storage backend, so concurrent Create
// calls never hand out the same id.
type Service struct {
	db *DB
}

func NewService(db *DB) *Service {
	return &Service{db: nonNil(db)}
}

func (s *Service) DB() *DB {
	return s.db
}

// Create stores a new incomplete todo and returns its id.
func (s *Service) Create(title string) (uint64, error) {
	var id uint64
	err := s.db.Tx(true, func(tx *Tx) error {
		newID, err := tx.allocateID()
		if err != nil {
			return err
		}
		err = tx.Insert(&Todo{ID: newID, Title: title})
		if err != nil {
			return err
		}
		id = newID
		return nil
	})
	if err != nil {
		return 0, err
	}
	if s.db.verbose {
		s.db.logf("todos: created %d", id)
	}
	return id, nil
}

// Get returns the todo with the given id, failing with ErrNotFound if there
// is none.
func (s *Service) Get(id uint64) (*Todo, error) {
	var t *Todo
	err := s.db.Tx(false, func(tx *Tx) error {
		var err error
		t, err = tx.Get(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, recordErr(todosBucket, id, "get", ErrNotFound)
	}
	return t, nil
}

// ReadPage returns page pageNum (1-based) of todos ordered by id. An empty
// page, whether because the store is empty or the page is past the end, is
// returned as nil without an error.
func (s *Service) ReadPage(pageNum, pageSize int) ([]*Todo, error) {
	todos, _, err := s.Page(pageNum, pageSize)
	return todos, err
}

// Page is ReadPage that also returns the total number of todos, both read
// from the same snapshot.
func (s *Service) Page(pageNum, pageSize int) ([]*Todo, int, error) {
	var page []Entry[uint64, *Todo]
	var total int
	err := s.db.Tx(false, func(tx *Tx) error {
		var err error
		page, err = GetPage(tx.Iterate(), pageNum, pageSize)
		total = tx.Len()
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	if len(page) == 0 {
		if s.db.verbose {
			s.db.logf("todos: no todos found on page %d", pageNum)
		}
		return nil, total, nil
	}
	return PageValues(page), total, nil
}

// Patch lists the fields to change in Update; nil fields are left alone.
type Patch struct {
	Title     *string
	Completed *bool
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Completed == nil
}

func (p Patch) apply(t *Todo) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}

// Update applies patch to the todo with the given id. It fails with
// ErrNotFound if the todo doesn't exist, and with an *EncodingError if the
// new title doesn't fit; the stored todo is unchanged in both cases.
func (s *Service) Update(id uint64, patch Patch) error {
	return s.db.Tx(true, func(tx *Tx) error {
		t, err := tx.Get(id)
		if err != nil {
			return err
		}
		if t == nil {
			return recordErr(todosBucket, id, "update", ErrNotFound)
		}
		if patch.IsEmpty() {
			return nil
		}
		patch.apply(t)
		return tx.Insert(t)
	})
}

// Delete removes the todo with the given id. Deleting a missing todo is not
// an error.
func (s *Service) Delete(id uint64) error {
	return s.db.Tx(true, func(tx *Tx) error {
		_, err := tx.Remove(id)
		return err
	})
}

// Purge deletes every completed todo and returns how many were removed.
func (s *Service) Purge() (int, error) {
	var n int
	err := s.db.Tx(true, func(tx *Tx) error {
		var err error
		n, err = tx.RemoveWhere(AllIDs(), func(t *Todo) bool { return t.Completed })
		return err
	})
	if err != nil {
		return 0, err
	}
	if s.db.verbose {
		s.db.logf("todos: purged %d", n)
	}
	return n, nil
}

// Clear deletes all todos and returns how many there were. Ids keep counting
// from where they were.
func (s *Service) Clear() (int, error) {
	var n int
	err := s.db.Tx(true, func(tx *Tx) error {
		var err error
		n, err = tx.Clear()
		return err
	})
	return n, err
}

// Len returns the number of todos.
func (s *Service) Len() (int, error) {
	var n int
	err := s.db.Tx(false, func(tx *Tx) error {
		n = tx.Len()
		return nil
	})
	return n, err
}

// Stats returns storage statistics.
func (s *Service) Stats() (Stats, error) {
	var st Stats
	err := s.db.Tx(false, func(tx *Tx) error {
		st = tx.Stats()
		return nil
	})
	return st, err
}

// Dump renders the store contents for debugging; see Tx.Dump.
func (s *Service) Dump(f DumpFlags) (string, error) {
	var out string
	err := s.db.Tx(false, func(tx *Tx) error {
		out = tx.Dump(f)
		return nil
	})
	return out, err
}

func Ptr[T any](v T) *T {
	return &v
}
