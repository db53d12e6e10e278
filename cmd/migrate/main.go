package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ecoroute/crm-api/internal/config"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

const usage = "usage: migrate [-dir ./migrations] [up|up-to VERSION|down|down-to VERSION|redo|status|version|create NAME]"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Migration error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dir := flag.String("dir", "./migrations", "directory holding goose SQL migrations")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		return errors.New(usage)
	}
	command, arguments := args[0], args[1:]

	// create only writes a file and needs no connection
	if command == "create" {
		if len(arguments) == 0 {
			return fmt.Errorf("create requires a migration name")
		}
		goose.SetSequential(true)
		if err := goose.Create(nil, *dir, arguments[0], "sql"); err != nil {
			return fmt.Errorf("failed to create migration: %w", err)
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	switch command {
	case "up":
		err = goose.Up(db, *dir)
	case "up-to", "down-to":
		if len(arguments) == 0 {
			return fmt.Errorf("%s requires a version", command)
		}
		version, perr := strconv.ParseInt(arguments[0], 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid version %q: %w", arguments[0], perr)
		}
		if command == "up-to" {
			err = goose.UpTo(db, *dir, version)
		} else {
			err = goose.DownTo(db, *dir, version)
		}
	case "down":
		err = goose.Down(db, *dir)
	case "redo":
		err = goose.Redo(db, *dir)
	case "status":
		err = goose.Status(db, *dir)
	case "version":
		err = goose.Version(db, *dir)
	default:
		return fmt.Errorf("unknown command: %s\n%s", command, usage)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", command, err)
	}

	fmt.Printf("migrate %s: done\n", command)
	return nil
}
