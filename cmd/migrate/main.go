package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"authgrid.org/internal/migrate"
	"authgrid.org/migrations"
)

func main() {
	log.SetFlags(0)
	var (
		dsn      = flag.String("dsn", os.Getenv("AUTHGRID_PG_DSN"), "PostgreSQL DSN")
		dir      = flag.String("migrations", "", "Path to SQL migrations (default: embedded)")
		seedsDir = flag.String("seeds", "", "Path to SQL seed files (optional)")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or AUTHGRID_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var (
		fsys   fs.FS = migrations.FS
		sqlDir       = migrations.Dir
	)
	if *dir != "" {
		fsys = os.DirFS(*dir)
		sqlDir = "."
	}
	runner := migrate.NewRunner(db, fsys, sqlDir, "")

	switch flag.Arg(0) {
	case "up":
		err = runner.Up(ctx)
	case "down":
		err = runner.Down(ctx)
	case "seed":
		if *seedsDir == "" {
			log.Fatal("seed requires -seeds pointing at a directory of .sql files")
		}
		err = migrate.NewRunner(db, os.DirFS(*seedsDir), "", ".").Seed(ctx)
	case "status":
		var history []string
		history, err = runner.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}
