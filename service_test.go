package todostore

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func setupService(t testing.TB) *Service {
	t.Helper()
	return NewService(setup(t))
}

func titles(todos []*Todo) []string {
	var out []string
	for _, t := range todos {
		out = append(out, t.Title)
	}
	return out
}

func TestService_HundredTasks(t *testing.T) {
	for _, b := range allBackends {
		t.Run(b.String(), func(t *testing.T) {
			svc := NewService(setupBackend(t, b))

			for i := 1; i <= 100; i++ {
				id := must(svc.Create(fmt.Sprintf("Task %d", i)))
				if id != uint64(i) {
					t.Fatalf("Create #%d returned id %d", i, id)
				}
			}

			for p := 1; p <= 10; p++ {
				page := must(svc.ReadPage(p, 10))
				if len(page) != 10 {
					t.Fatalf("page %d has %d todos, wanted 10", p, len(page))
				}
				for i, todo := range page {
					want := uint64((p-1)*10 + i + 1)
					if todo.ID != want || todo.Title != fmt.Sprintf("Task %d", want) || todo.Completed {
						t.Fatalf("page %d[%d] = %v, wanted task %d", p, i, todo, want)
					}
				}
			}
			if page := must(svc.ReadPage(11, 10)); page != nil {
				t.Fatalf("page 11 = %v, wanted nil", page)
			}

			ensure(svc.Update(55, Patch{Completed: Ptr(true)}))
			page6 := must(svc.ReadPage(6, 10))
			deepEqual(t, page6[4], &Todo{ID: 55, Title: "Task 55", Completed: true})

			ensure(svc.Delete(55))
			page6 = must(svc.ReadPage(6, 10))
			if len(page6) != 10 || page6[4].ID != 56 || page6[9].ID != 61 {
				t.Fatalf("page 6 after delete = %v", page6)
			}
			page10 := must(svc.ReadPage(10, 10))
			if len(page10) != 9 {
				t.Fatalf("page 10 after delete has %d todos, wanted 9", len(page10))
			}
		})
	}
}

func TestService_ReadPageEmptyStore(t *testing.T) {
	svc := setupService(t)
	if page := must(svc.ReadPage(1, 10)); page != nil {
		t.Fatalf("ReadPage on empty store = %v, wanted nil", page)
	}
	if page := must(svc.ReadPage(1, 0)); page != nil {
		t.Fatalf("ReadPage(1, 0) = %v, wanted nil", page)
	}
	_, err := svc.ReadPage(0, 10)
	iserr(t, err, ErrInvalidArgument)
}

func TestService_ReadPagePartial(t *testing.T) {
	svc := setupService(t)
	for _, s := range []string{"a", "b", "c"} {
		must(svc.Create(s))
	}
	deepEqual(t, titles(must(svc.ReadPage(1, 2))), []string{"a", "b"})
	deepEqual(t, titles(must(svc.ReadPage(2, 2))), []string{"c"})
	if page := must(svc.ReadPage(3, 2)); page != nil {
		t.Fatalf("page 3 = %v, wanted nil", page)
	}
}

func TestService_PageReturnsTotal(t *testing.T) {
	svc := setupService(t)
	for _, s := range []string{"a", "b", "c"} {
		must(svc.Create(s))
	}
	todos, total, err := svc.Page(2, 2)
	ensure(err)
	deepEqual(t, titles(todos), []string{"c"})
	deepEqual(t, total, 3)

	todos, total, err = svc.Page(5, 2)
	ensure(err)
	isnil(t, todos)
	deepEqual(t, total, 3)

	_, _, err = svc.Page(0, 2)
	iserr(t, err, ErrInvalidArgument)
}

func TestService_Update(t *testing.T) {
	svc := setupService(t)
	id := must(svc.Create("Buy milk"))

	ensure(svc.Update(id, Patch{Title: Ptr("Buy oat milk")}))
	deepEqual(t, must(svc.Get(id)), &Todo{ID: id, Title: "Buy oat milk"})

	ensure(svc.Update(id, Patch{Completed: Ptr(true)}))
	deepEqual(t, must(svc.Get(id)), &Todo{ID: id, Title: "Buy oat milk", Completed: true})

	ensure(svc.Update(id, Patch{Title: Ptr(""), Completed: Ptr(false)}))
	deepEqual(t, must(svc.Get(id)), &Todo{ID: id, Title: ""})

	// empty patch on an existing todo is a no-op
	ensure(svc.Update(id, Patch{}))
	deepEqual(t, must(svc.Get(id)), &Todo{ID: id, Title: ""})
}

func TestService_UpdateMissing(t *testing.T) {
	svc := setupService(t)

	err := svc.Update(42, Patch{Completed: Ptr(true)})
	iserr(t, err, ErrNotFound)
	var re *RecordError
	if !errors.As(err, &re) || re.ID != 42 || re.Op != "update" {
		t.Fatalf("Update(missing) err = %v", err)
	}

	// even an empty patch reports a missing todo
	iserr(t, svc.Update(42, Patch{}), ErrNotFound)

	// Update never creates
	if n := must(svc.Len()); n != 0 {
		t.Fatalf("Len() = %d after Update of missing todo", n)
	}
}

func TestService_UpdateTooLong(t *testing.T) {
	svc := setupService(t)
	id := must(svc.Create("short"))

	err := svc.Update(id, Patch{Title: Ptr(strings.Repeat("x", 200)), Completed: Ptr(true)})
	iserr(t, err, ErrEncoding)
	if !IsRecoverable(err) {
		t.Errorf("IsRecoverable(%v) = false", err)
	}
	deepEqual(t, must(svc.Get(id)), &Todo{ID: id, Title: "short"})
}

func TestService_CreateTooLong(t *testing.T) {
	svc := setupService(t)
	_, err := svc.Create(strings.Repeat("x", 200))
	iserr(t, err, ErrEncoding)

	if n := must(svc.Len()); n != 0 {
		t.Fatalf("Len() = %d after failed Create", n)
	}
	// the failed Create did not burn an id
	if id := must(svc.Create("ok")); id != 1 {
		t.Fatalf("Create = %d, wanted 1", id)
	}
}

func TestService_InvalidUTF8Title(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *DB) {
		svc := NewService(db)
		_, err := svc.Create("bad\xff\xfetitle")
		iserr(t, err, ErrInvalidArgument)
		if n := must(svc.Len()); n != 0 {
			t.Fatalf("Len() = %d after failed Create", n)
		}

		id := must(svc.Create("fine"))
		if id != 1 {
			t.Fatalf("Create = %d, wanted 1", id)
		}
		err = svc.Update(id, Patch{Title: Ptr("bad\xfe"), Completed: Ptr(true)})
		iserr(t, err, ErrInvalidArgument)
		deepEqual(t, must(svc.Get(id)), &Todo{ID: id, Title: "fine"})
	})
}

func TestService_MaxValueSize(t *testing.T) {
	svc := NewService(setupOptions(t, Options{Backend: Memory, MaxValueSize: 200}))
	title := strings.Repeat("x", 150)
	id := must(svc.Create(title))
	deepEqual(t, must(svc.Get(id)).Title, title)
}

func TestService_Delete(t *testing.T) {
	svc := setupService(t)
	must(svc.Create("a"))
	must(svc.Create("b"))

	ensure(svc.Delete(2))
	ensure(svc.Delete(2))
	ensure(svc.Delete(100))

	_, err := svc.Get(2)
	iserr(t, err, ErrNotFound)
	deepEqual(t, titles(must(svc.ReadPage(1, 10))), []string{"a"})

	// deleted ids are not handed out again
	if id := must(svc.Create("c")); id != 3 {
		t.Fatalf("Create after delete = %d, wanted 3", id)
	}
}

func TestService_DeleteAllThenCreate(t *testing.T) {
	svc := setupService(t)
	must(svc.Create("a"))
	ensure(svc.Delete(1))
	if id := must(svc.Create("b")); id != 2 {
		t.Fatalf("Create = %d, wanted 2", id)
	}
}

func TestService_Purge(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *DB) {
		svc := NewService(db)
		for i := 1; i <= 6; i++ {
			id := must(svc.Create(fmt.Sprintf("Task %d", i)))
			if i%2 == 0 || i == 5 {
				ensure(svc.Update(id, Patch{Completed: Ptr(true)}))
			}
		}

		deepEqual(t, must(svc.Purge()), 4)
		deepEqual(t, titles(must(svc.ReadPage(1, 10))), []string{"Task 1", "Task 3"})
		deepEqual(t, must(svc.Purge()), 0)
		if id := must(svc.Create("Task 7")); id != 7 {
			t.Fatalf("Create after Purge = %d, wanted 7", id)
		}
	})
}

func TestService_Clear(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *DB) {
		svc := NewService(db)
		must(svc.Create("a"))
		must(svc.Create("b"))

		deepEqual(t, must(svc.Clear()), 2)
		deepEqual(t, must(svc.Len()), 0)
		isnil(t, must(svc.ReadPage(1, 10)))

		// ids are not reused after a clear
		if id := must(svc.Create("c")); id != 3 {
			t.Fatalf("Create after Clear = %d, wanted 3", id)
		}
	})
}

func TestService_Dump(t *testing.T) {
	svc := setupService(t)
	must(svc.Create("Buy milk"))
	s := must(svc.Dump(DumpHeaders | DumpRows))
	for _, want := range []string{"todos (1 rows, next id 2)", `"title":"Buy milk"`} {
		if !strings.Contains(s, want) {
			t.Errorf("Dump() missing %q:\n%s", want, s)
		}
	}
}

func TestService_ConcurrentCreate(t *testing.T) {
	for _, b := range allBackends {
		t.Run(b.String(), func(t *testing.T) {
			svc := NewService(setupBackend(t, b))

			const n = 20
			ids := make([]uint64, n)
			var wg sync.WaitGroup
			for i := range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ids[i] = must(svc.Create(fmt.Sprintf("t%d", i)))
				}()
			}
			wg.Wait()

			seen := make(map[uint64]bool)
			for _, id := range ids {
				if seen[id] || id < 1 || id > n {
					t.Fatalf("ids = %v", ids)
				}
				seen[id] = true
			}
			if l := must(svc.Len()); l != n {
				t.Fatalf("Len() = %d, wanted %d", l, n)
			}
		})
	}
}

func TestService_Stats(t *testing.T) {
	svc := setupService(t)
	must(svc.Create("a"))
	must(svc.Create("b"))
	ensure(svc.Delete(2))

	st := must(svc.Stats())
	if st.Todos != 1 || st.LastID != 1 || st.NextID != 3 {
		t.Fatalf("Stats() = %+v", st)
	}
	if st.DataSize <= 0 {
		t.Fatalf("Stats().DataSize = %d", st.DataSize)
	}
}

func TestPatch_IsEmpty(t *testing.T) {
	if !(Patch{}).IsEmpty() {
		t.Errorf("Patch{}.IsEmpty() = false")
	}
	if (Patch{Completed: Ptr(false)}).IsEmpty() {
		t.Errorf("IsEmpty() = true with Completed set")
	}
}
