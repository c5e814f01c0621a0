package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/jewel_catalog/internal/config"
	"github.com/GTDGit/jewel_catalog/internal/database"
	"github.com/GTDGit/jewel_catalog/internal/models"
	"github.com/GTDGit/jewel_catalog/internal/repository"
	"github.com/GTDGit/jewel_catalog/internal/service"
	"github.com/GTDGit/jewel_catalog/internal/utils"
	"github.com/GTDGit/jewel_catalog/pkg/devjewels"
)

// catalogctl runs one-off maintenance tasks against the catalog database.
func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "sync-designs":
		err = syncDesigns(ctx, cfg, args)
	case "sync-sequence":
		err = syncSequence(ctx, cfg, args)
	case "issue-token":
		err = issueToken(cfg, args)
	case "migrate":
		err = migrateUp(cfg)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Str("command", cmd).Msg("command failed")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: catalogctl <command> [flags]

Commands:
  sync-designs   [-force]                    pull the design feed into the registry
  sync-sequence  -name order|customJob       reconcile a sequence with issued identifiers
  issue-token    -email E [-role R] [-ttl D] print an admin JWT
  migrate                                    apply pending database migrations`)
}

func syncDesigns(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sync-designs", flag.ExitOnError)
	force := fs.Bool("force", false, "rewrite metadata even when unchanged")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := database.Connect(&cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	feed := devjewels.NewClient(devjewels.Config{
		StockURL:      cfg.Feed.StockURL,
		DesignURL:     cfg.Feed.DesignURL,
		UserID:        cfg.Feed.UserID,
		StockTimeout:  cfg.Feed.StockTimeout,
		DesignTimeout: cfg.Feed.DesignTimeout,
	})
	registry := service.NewDesignRegistry(repository.NewDesignRepository(db), cfg.Catalog.DefaultActiveDesign)
	syncSvc := service.NewCatalogSyncService(feed, registry, nil, service.CatalogSyncConfig{
		DiscountPercent: cfg.Catalog.DiscountPercent,
		ImageBaseURL:    cfg.Catalog.ImageBaseURL,
	})

	stats, err := syncSvc.SynchronizeDesigns(ctx, *force)
	if err != nil {
		return err
	}
	fmt.Printf("total=%d created=%d updated=%d skipped=%d failed=%d\n",
		stats.Total, stats.Created, stats.Updated, stats.Skipped, stats.Failed)
	return nil
}

func syncSequence(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sync-sequence", flag.ExitOnError)
	name := fs.String("name", "", "sequence name (order or customJob)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return errors.New("-name is required")
	}

	db, err := database.Connect(&cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	seq := service.NewSequenceService(
		repository.NewSequenceRepository(db, cfg.Sequence.LockTimeout),
		service.SequenceConfig{MaxAttempts: cfg.Sequence.MaxAttempts, OrderScanLimit: cfg.Sequence.OrderScanLimit},
	)
	sn := models.SequenceName(*name)
	highest, err := seq.Reconcile(ctx, sn)
	if err != nil {
		return err
	}
	prefix, _ := seq.Prefix(sn)
	fmt.Printf("sequence=%s highest=%s%d next=%s%d\n", sn, prefix, highest, prefix, highest+1)
	return nil
}

func issueToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("issue-token", flag.ExitOnError)
	email := fs.String("email", "", "operator email recorded as the actor")
	role := fs.String("role", utils.RoleAdmin, "admin or staff")
	uid := fs.Int("uid", 1, "operator user id")
	ttl := fs.Duration("ttl", 12*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("-email is required")
	}
	if *role != utils.RoleAdmin && *role != utils.RoleStaff {
		return fmt.Errorf("role must be %q or %q", utils.RoleAdmin, utils.RoleStaff)
	}

	utils.SetJWTSecret(cfg.JWTSecret)
	token, err := utils.GenerateJWT(*uid, *email, *role, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func migrateUp(cfg *config.Config) error {
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db.DB, database.DefaultMigrationsURL); err != nil {
		return err
	}
	log.Info().Msg("migrations completed successfully")
	return nil
}
