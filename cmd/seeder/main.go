package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/cartsync/internal/adapters/db"
	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/pkg/config"
	"github.com/ammerola/cartsync/internal/pkg/logger"
	"github.com/ammerola/cartsync/internal/workers"
)

func main() {
	var (
		catalogFile = flag.String("catalog", "", "Excel workbook with the product catalog (built-in sample when empty)")
		users       = flag.String("users", "demo@example.com", "Comma-separated emails of users to create")
		tokenTTL    = flag.Duration("token-ttl", 0, "Lifetime of issued tokens (0 uses TOKEN_TTL)")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		dryRun      = flag.Bool("dry-run", false, "Preview changes without modifying database")
		truncate    = flag.Bool("truncate", false, "Wipe cart tables before seeding")
	)
	flag.Parse()

	slogger := logger.SetupCLILogger(*logLevel)

	products := defaultCatalog()
	if *catalogFile != "" {
		loaded, rejected, err := workers.LoadCatalog(*catalogFile)
		if err != nil {
			slogger.Error("failed to load catalog", slog.String("error", err.Error()))
			os.Exit(1)
		}
		for _, r := range rejected {
			fmt.Printf("WARNING: skipped %v\n", r)
		}
		products = loaded
	}

	emails := splitEmails(*users)

	if *dryRun {
		printPlan(products, emails)
		fmt.Println("\n[DRY RUN] No changes were made to the database")
		return
	}

	cfg, err := config.Load(slogger.Logger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	ttl := *tokenTTL
	if ttl == 0 {
		ttl = cfg.Security.TokenTTL
	}

	ctx := context.Background()

	migrationConfig := &db.MigrationConfig{
		DatabaseURL: cfg.GetDatabaseURL(),
		UseEmbedded: true,
	}
	if err := db.RunMigrationsWithRetry(ctx, migrationConfig, slogger.Logger, 3); err != nil {
		slogger.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	database, err := db.NewDatabase(ctx, &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     2,
		MinConnections:     1,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		StatementCacheMode: cfg.Database.StatementCacheMode,
	}, slogger.Logger)
	if err != nil {
		slogger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	catalog := db.NewCatalog(database, slogger.Logger)

	if *truncate {
		if err := catalog.Truncate(ctx); err != nil {
			slogger.Error("failed to truncate", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	if err := catalog.SaveProducts(ctx, products); err != nil {
		slogger.Error("failed to save products", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tokens := make(map[string]string, len(emails))
	for _, email := range emails {
		user, err := catalog.EnsureUser(ctx, email)
		if err != nil {
			slogger.Error("failed to create user", slog.String("email", email), slog.String("error", err.Error()))
			os.Exit(1)
		}
		token := uuid.NewString()
		if err := catalog.IssueToken(ctx, user.ID, token, ttl); err != nil {
			slogger.Error("failed to issue token", slog.String("email", email), slog.String("error", err.Error()))
			os.Exit(1)
		}
		tokens[email] = token
	}

	count, err := catalog.CountProducts(ctx)
	if err != nil {
		slogger.Warn("failed to count products", slog.String("error", err.Error()))
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SEEDING SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Products inserted: %d (catalog now %d)\n", len(products), count)
	fmt.Printf("Token lifetime: %s\n", ttl.Round(time.Hour))
	for _, email := range emails {
		fmt.Printf("  %s  CART_API_TOKEN=%s\n", email, tokens[email])
	}

	slogger.Info("seed operation completed",
		slog.Int("products", len(products)),
		slog.Int("users", len(emails)))
}

func splitEmails(raw string) []string {
	var out []string
	for _, e := range strings.Split(raw, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func printPlan(products []domain.Product, emails []string) {
	fmt.Printf("Would insert %d products:\n", len(products))
	for _, p := range products {
		state := "active"
		if !p.Active {
			state = "inactive"
		}
		fmt.Printf("  - %s  %s/%s  %s\n", p.Name, p.EffectivePrice().StringFixed(0), p.Unit, state)
	}
	fmt.Printf("Would create %d users: %s\n", len(emails), strings.Join(emails, ", "))
}
