package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/vatavaran/vatavaran-backend/pkg/config"
	"github.com/vatavaran/vatavaran-backend/pkg/db"
	"github.com/vatavaran/vatavaran-backend/pkg/logger"
	"github.com/vatavaran/vatavaran-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|version|to|create|validate")
	dir := flag.String("dir", migrate.SourceDir, "migration source directory (create, validate)")
	name := flag.String("name", "", "migration name for -cmd=create")
	target := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	// authoring commands never touch the database
	switch *cmd {
	case "create":
		path, err := migrate.Create(*dir, *name, time.Now())
		if err != nil {
			fail(err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.Validate(os.DirFS(*dir)); err != nil {
			fail(err)
		}
		fmt.Println("migrations ok")
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	logg := logger.New(logger.Options{ServiceName: "migrate", Level: logger.ParseLevel(cfg.App.LogLevel)})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	pool, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "sql pool unavailable", err)
		os.Exit(1)
	}
	m, err := migrate.New(pool, migrate.Migrations())
	if err != nil {
		logg.Error(ctx, "migrator setup failed", err)
		os.Exit(1)
	}

	if err := run(ctx, m, *cmd, *target); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration command finished")
}

func run(ctx context.Context, m *migrate.Migrator, cmd, target string) error {
	switch cmd {
	case "up":
		n, err := m.Up(ctx)
		fmt.Printf("applied %d migration(s)\n", n)
		return err
	case "down":
		return m.Down(ctx)
	case "version":
		v, err := m.Version(ctx)
		if err == nil {
			fmt.Println(v)
		}
		return err
	case "to":
		v, err := strconv.ParseInt(target, 10, 64)
		if err != nil {
			return fmt.Errorf("-version must be YYYYMMDDHHMMSS: %w", err)
		}
		return m.To(ctx, v)
	case "status":
		rows, err := m.Status(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tAPPLIED\tNAME")
		for _, r := range rows {
			applied := "pending"
			if r.Applied {
				applied = r.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\n", r.Version, applied, r.Name)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown -cmd %q", cmd)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "migrate:", err)
	os.Exit(1)
}
