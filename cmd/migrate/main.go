// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command migrate inspects and moves the gatekeeper schema outside of server
// startup.
//
// Usage:
//
//	migrate [-database URL] [-path DIR] up
//	migrate [-database URL] [-path DIR] down [-steps N]
//	migrate [-database URL] [-path DIR] version
//	migrate [-database URL] [-path DIR] force VERSION
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/taibuivan/gatekeeper/internal/platform/constants"
	"github.com/taibuivan/gatekeeper/internal/platform/migration"
)

func main() {
	_ = godotenv.Load()

	var databaseURL, overridePath string
	var verbose bool
	flag.StringVar(&databaseURL, "database", os.Getenv("DATABASE_URL"), "postgres URL (default: $DATABASE_URL)")
	flag.StringVar(&overridePath, "path", os.Getenv("MIGRATION_PATH"), "migration directory (default: embedded)")
	flag.BoolVar(&verbose, "v", false, "verbose output")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName))

	if databaseURL == "" {
		fail("a database URL is required (-database or DATABASE_URL)")
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	runner, err := migration.Open(databaseURL, overridePath, log)
	if err != nil {
		fail(err.Error())
	}
	defer func() {
		if err := runner.Close(); err != nil {
			log.Error("migration_close_failed", slog.Any("error", err))
		}
	}()

	if err := run(runner, flag.Arg(0), flag.Args()[1:]); err != nil {
		fail(err.Error())
	}
}

func run(runner *migration.Runner, command string, args []string) error {
	switch command {
	case "up":
		return runner.Up()

	case "down":
		commandFlags := flag.NewFlagSet("down", flag.ExitOnError)
		steps := commandFlags.Int("steps", 1, "number of migrations to roll back")
		_ = commandFlags.Parse(args)
		return runner.Down(*steps)

	case "version":
		version, dirty, err := runner.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil

	case "force":
		if len(args) != 1 {
			return fmt.Errorf("force takes exactly one version")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		return runner.Force(version)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func fail(message string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	os.Exit(1)
}
