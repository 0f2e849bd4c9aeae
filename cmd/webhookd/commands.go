package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/webhookd/webhookd/internal/auth/token"
	"github.com/webhookd/webhookd/internal/bootstrap"
	"github.com/webhookd/webhookd/internal/config"
	"github.com/webhookd/webhookd/internal/migrations"
)

func init() {
	// Migrate
	var migrateStatus bool
	var migrateRollback bool
	migrateCmd := &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Database migration management",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := bootstrap.OpenSQLite(cfg.DB.Path)
			if err != nil {
				return err
			}
			fmt.Printf("Using DB path: %s\n", cfg.DB.Path)
			defer db.Close()

			if migrateStatus {
				return migrations.Status(db)
			}
			if migrateRollback {
				return migrations.Down(db)
			}

			action := "up"
			if len(args) > 0 {
				action = args[0]
			}
			switch action {
			case "up":
				return migrations.Up(db)
			case "down":
				return migrations.Down(db)
			case "status":
				return migrations.Status(db)
			default:
				return fmt.Errorf("unknown migrate action %q", action)
			}
		},
	}
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show migration status")
	migrateCmd.Flags().BoolVar(&migrateRollback, "rollback", false, "Rollback the last migration")
	rootCmd.AddCommand(migrateCmd)

	// Token
	var tokenTTL time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a management API bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := bootstrap.OpenSQLite(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := migrations.Up(db); err != nil {
				return err
			}

			signingKey, _, err := bootstrap.ResolveSigningKey(context.Background(), db, cfg.Auth.SigningKey)
			if err != nil {
				return err
			}

			manager, err := token.NewManager(token.Options{
				SigningKey: []byte(signingKey),
				Issuer:     cfg.Auth.Issuer,
				Audience:   cfg.Auth.Audience,
				TTL:        cfg.Auth.TokenTTL,
				Leeway:     cfg.Auth.Leeway,
			})
			if err != nil {
				return err
			}
			signed, claims, err := manager.Issue("admin", "admin", tokenTTL)
			if err != nil {
				return err
			}
			fmt.Printf("token: %s\nexpires: %s\n", signed, claims.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default from config)")
	rootCmd.AddCommand(tokenCmd)

	// Version
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("webhookd %s (commit %s, built %s)\n", Version, Commit, BuildTime)
		},
	}
	rootCmd.AddCommand(versionCmd)
}
