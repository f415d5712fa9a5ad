package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/andreyvit/todostore"
)

// Options tune where the store lives and how output looks.
type Options struct {
	DBPath   string
	Backend  todostore.Backend
	PageSize int
	Verbose  bool

	Stdout io.Writer // defaults to os.Stdout
	Stderr io.Writer // defaults to os.Stderr
}

type runner struct {
	opt    Options
	svc    *todostore.Service
	stdout io.Writer
	stderr io.Writer
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string, opt Options) int {
	r := &runner{opt: opt, stdout: opt.Stdout, stderr: opt.Stderr}
	if r.stdout == nil {
		r.stdout = os.Stdout
	}
	if r.stderr == nil {
		r.stderr = os.Stderr
	}
	if r.opt.PageSize <= 0 {
		r.opt.PageSize = 10
	}

	if len(args) == 0 {
		PrintHelp(r.stderr)
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(r.stdout)
		return 0
	}

	handler, found := commands[cmd]
	if !found {
		r.fail("unknown subcommand: " + cmd)
		fmt.Fprintln(r.stderr)
		PrintHelp(r.stderr)
		return 2
	}

	db, err := todostore.Open(opt.DBPath, r.storeOptions())
	if err != nil {
		r.fail("open: " + err.Error())
		return 1
	}
	defer db.Close()
	r.svc = todostore.NewService(db)

	return handler(r, a)
}

func (r *runner) storeOptions() todostore.Options {
	sopt := todostore.Options{Backend: r.opt.Backend}
	if r.opt.Verbose {
		logger := slog.New(slog.NewTextHandler(r.stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		sopt.Logger = logger
		sopt.Verbose = true
		sopt.Logf = func(format string, args ...any) {
			logger.LogAttrs(context.Background(), slog.LevelDebug, fmt.Sprintf(format, args...))
		}
	}
	return sopt
}

var commands map[string]func(r *runner, args []string) int

func init() {
	commands = map[string]func(r *runner, args []string) int{
		"add":    (*runner).doAdd,
		"ls":     (*runner).doList,
		"show":   (*runner).doShow,
		"done":   (*runner).doDone,
		"undone": (*runner).doUndone,
		"edit":   (*runner).doEdit,
		"rm":     (*runner).doRemove,
		"purge":  (*runner).doPurge,
		"clear":  (*runner).doClear,
		"stats":  (*runner).doStats,
		"dump":   (*runner).doDump,
		"browse": (*runner).doBrowse,
	}
}

func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `todo - todo list backed by an ordered store

Usage:
  todo [flags] <subcommand> [args]

Subcommands:
  add <title...>         Add a new todo (title can be multiple words)
  ls [page]              List a page of todos (default page 1)
  show <id>              Show a single todo
  done <id>              Mark a todo completed
  undone <id>            Mark a todo not completed
  edit <id> <title...>   Change the title of a todo
  rm <id>                Remove a todo
  purge                  Remove all completed todos
  clear --yes            Remove all todos (ids are not reused)
  stats                  Show storage statistics
  dump [raw]             Print every stored record, raw adds key/value bytes
  browse                 Page through todos interactively

Examples:
  todo add "Buy milk"
  todo ls 2
  todo done 7
  todo rm 3
`)
}

// -------------- subcommand impls ----------------

func (r *runner) doAdd(a []string) int {
	title := strings.TrimSpace(strings.Join(a, " "))
	if title == "" {
		r.fail("usage: todo add <title...>")
		return 2
	}
	id, err := r.svc.Create(title)
	if err != nil {
		return r.failErr("add", err)
	}
	r.ok(fmt.Sprintf("added #%d", id))
	return 0
}

func (r *runner) doList(a []string) int {
	pageNum := 1
	if len(a) > 1 {
		r.fail("usage: todo ls [page]")
		return 2
	}
	if len(a) == 1 {
		n, err := strconv.Atoi(a[0])
		if err != nil {
			r.fail("ls: not a number: " + a[0])
			return 2
		}
		pageNum = n
	}

	todos, total, err := r.svc.Page(pageNum, r.opt.PageSize)
	if err != nil {
		return r.failErr("ls", err)
	}
	pageCount := todostore.PageCount(total, r.opt.PageSize)

	if todos == nil {
		fmt.Fprintln(r.stdout, mutedStyle.Render(fmt.Sprintf("No todos found on page %d.", pageNum)))
		if total > 0 {
			fmt.Fprintln(r.stdout, pageFooter(pageNum, pageCount, total))
		}
		return 0
	}

	var done int
	lines := make([]string, 0, len(todos)+3)
	for _, t := range todos {
		if t.Completed {
			done++
		}
		lines = append(lines, todoLine(t.ID, t.Title, t.Completed))
	}
	header := fmt.Sprintf("%s  %s %d  %s %d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), len(todos)-done,
	)
	lines = append([]string{header, ""}, lines...)
	lines = append(lines, "", pageFooter(pageNum, pageCount, total))
	panel(r.stdout, lines)
	return 0
}

func (r *runner) doShow(a []string) int {
	id, code := r.parseID("show", a, 1)
	if code != 0 {
		return code
	}
	t, err := r.svc.Get(id)
	if err != nil {
		return r.failErr("show", err)
	}
	status := pendingStyle.Render("pending")
	if t.Completed {
		status = successStyle.Render("completed")
	}
	panel(r.stdout, []string{
		accentStyle.Render(fmt.Sprintf("#%d", t.ID)),
		t.Title,
		status,
	})
	return 0
}

func (r *runner) doDone(a []string) int {
	return r.setCompleted("done", a, true)
}

func (r *runner) doUndone(a []string) int {
	return r.setCompleted("undone", a, false)
}

func (r *runner) setCompleted(cmd string, a []string, completed bool) int {
	id, code := r.parseID(cmd, a, 1)
	if code != 0 {
		return code
	}
	err := r.svc.Update(id, todostore.Patch{Completed: todostore.Ptr(completed)})
	if err != nil {
		return r.failErr(cmd, err)
	}
	if completed {
		r.ok(fmt.Sprintf("completed #%d", id))
	} else {
		r.ok(fmt.Sprintf("reopened #%d", id))
	}
	return 0
}

func (r *runner) doEdit(a []string) int {
	if len(a) < 2 {
		r.fail("usage: todo edit <id> <title...>")
		return 2
	}
	id, code := r.parseID("edit", a[:1], 1)
	if code != 0 {
		return code
	}
	title := strings.TrimSpace(strings.Join(a[1:], " "))
	if title == "" {
		r.fail("edit: title cannot be empty")
		return 2
	}
	err := r.svc.Update(id, todostore.Patch{Title: &title})
	if err != nil {
		return r.failErr("edit", err)
	}
	r.ok(fmt.Sprintf("updated #%d", id))
	return 0
}

func (r *runner) doRemove(a []string) int {
	id, code := r.parseID("rm", a, 1)
	if code != 0 {
		return code
	}
	err := r.svc.Delete(id)
	if err != nil {
		return r.failErr("rm", err)
	}
	r.ok(fmt.Sprintf("removed #%d", id))
	return 0
}

func (r *runner) doPurge(a []string) int {
	if len(a) != 0 {
		r.fail("usage: todo purge")
		return 2
	}
	n, err := r.svc.Purge()
	if err != nil {
		return r.failErr("purge", err)
	}
	r.ok(fmt.Sprintf("purged %d completed", n))
	return 0
}

func (r *runner) doClear(a []string) int {
	if len(a) != 1 || a[0] != "--yes" {
		r.fail("usage: todo clear --yes")
		return 2
	}
	n, err := r.svc.Clear()
	if err != nil {
		return r.failErr("clear", err)
	}
	r.ok(fmt.Sprintf("cleared %d", n))
	return 0
}

func (r *runner) doDump(a []string) int {
	f := todostore.DumpHeaders | todostore.DumpStats | todostore.DumpRows
	switch {
	case len(a) == 0:
	case len(a) == 1 && a[0] == "raw":
		f |= todostore.DumpRaw
	default:
		r.fail("usage: todo dump [raw]")
		return 2
	}
	s, err := r.svc.Dump(f)
	if err != nil {
		return r.failErr("dump", err)
	}
	fmt.Fprint(r.stdout, s)
	return 0
}

func (r *runner) doStats(a []string) int {
	st, err := r.svc.Stats()
	if err != nil {
		return r.failErr("stats", err)
	}
	panel(r.stdout, []string{
		titleStyle.Render("Store"),
		fmt.Sprintf("backend    %s", r.opt.Backend),
		fmt.Sprintf("todos      %d", st.Todos),
		fmt.Sprintf("last id    %d", st.LastID),
		fmt.Sprintf("next id    %d", st.NextID),
		fmt.Sprintf("data size  %d bytes", st.DataSize),
		fmt.Sprintf("db size    %d bytes", st.DBSize),
	})
	return 0
}

func (r *runner) parseID(cmd string, a []string, n int) (uint64, int) {
	if len(a) != n {
		r.fail(fmt.Sprintf("usage: todo %s <id>", cmd))
		return 0, 2
	}
	id, err := strconv.ParseUint(a[0], 10, 64)
	if err != nil {
		r.fail(cmd + ": not an id: " + a[0])
		return 0, 2
	}
	return id, 0
}

func (r *runner) failErr(cmd string, err error) int {
	switch {
	case errors.Is(err, todostore.ErrNotFound):
		r.fail(cmd + ": no such todo")
	case errors.Is(err, todostore.ErrEncoding):
		r.fail(cmd + ": title too long: " + err.Error())
	case errors.Is(err, todostore.ErrInvalidArgument):
		r.fail(cmd + ": " + err.Error())
		return 2
	default:
		r.fail(cmd + ": " + err.Error())
	}
	return 1
}
