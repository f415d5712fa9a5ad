package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/andreyvit/todostore"
	"github.com/andreyvit/todostore/internal/cli"
)

func main() {
	dbPath := flag.String("db", envOr("TODO_DB", "todos.db"), "database file (env TODO_DB)")
	backendName := flag.String("backend", envOr("TODO_BACKEND", "bolt"), "storage backend: bolt, sqlite or memory")
	pageSize := flag.Int("page-size", 10, "todos per page")
	verbose := flag.Bool("v", false, "log storage operations to stderr")
	flag.Usage = func() {
		cli.PrintHelp(os.Stderr)
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	backend, err := todostore.ParseBackend(*backendName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	code := cli.Run(flag.Args(), cli.Options{
		DBPath:   *dbPath,
		Backend:  backend,
		PageSize: *pageSize,
		Verbose:  *verbose,
	})
	os.Exit(code)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
