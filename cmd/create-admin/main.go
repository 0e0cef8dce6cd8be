package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vatavaran/vatavaran-backend/internal/ledger"
	"github.com/vatavaran/vatavaran-backend/internal/staff"
	"github.com/vatavaran/vatavaran-backend/pkg/config"
	"github.com/vatavaran/vatavaran-backend/pkg/db"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
	"github.com/vatavaran/vatavaran-backend/pkg/logger"
	"github.com/vatavaran/vatavaran-backend/pkg/security"
)

const tempPasswordLength = 16

func main() {
	logg := logger.New(logger.Options{ServiceName: "create-admin"})
	_ = godotenv.Load()

	name := flag.String("name", "", "admin display name (defaults to VATAVARAN_ADMIN_NAME)")
	email := flag.String("email", "", "admin email (defaults to VATAVARAN_ADMIN_EMAIL)")
	password := flag.String("password", "", "admin password (defaults to VATAVARAN_ADMIN_PASSWORD, generated when empty)")
	role := flag.String("role", string(enums.RoleAdmin), "role to grant: ADMIN|SUPERVISOR|STAFF")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		exitf("failed to load config: %v", err)
	}

	input, generated, err := buildInput(cfg.Admin, *name, *email, *password, *role)
	if err != nil {
		exitf("%v", err)
	}

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":   cfg.App.Env,
		"email": input.Email,
		"role":  input.Role,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}
	staffService, err := staff.NewService(staff.NewRepository(dbClient.DB()), dbClient, ledgerService, cfg.Password)
	if err != nil {
		logg.Error(ctx, "failed to create staff service", err)
		os.Exit(1)
	}

	created, err := staffService.Create(ctx, input)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			logg.Info(ctx, "staff account already exists, nothing to do")
			return
		}
		logg.Error(ctx, "failed to create staff account", err)
		os.Exit(1)
	}

	logg.Info(logg.WithField(ctx, "staff_id", created.ID.String()), "staff account created")
	if generated {
		fmt.Println("temporary password:", input.Password)
	}
}

// buildInput merges flags over the seed config. generated reports whether the
// password was produced here and must be shown to the operator.
func buildInput(seed config.AdminSeedConfig, name, email, password, role string) (staff.CreateStaffInput, bool, error) {
	input := staff.CreateStaffInput{
		Name:     firstNonEmpty(name, seed.Name, "Administrator"),
		Email:    strings.ToLower(firstNonEmpty(email, seed.Email)),
		Password: firstNonEmpty(password, seed.Password),
	}
	if input.Email == "" {
		return input, false, fmt.Errorf("missing -email (or VATAVARAN_ADMIN_EMAIL)")
	}

	parsed, err := enums.ParseRole(role)
	if err != nil {
		return input, false, err
	}
	input.Role = parsed

	if input.Password != "" {
		return input, false, nil
	}
	temp, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return input, false, fmt.Errorf("generate password: %w", err)
	}
	input.Password = temp
	return input, true, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
