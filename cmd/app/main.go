// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/themisguard/datashield/cmd/app/commands"
)

func main() {
	cmd := &cli.Command{
		Name:    "datashield",
		Usage:   "Customer-isolated encryption and data lifecycle service",
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "worker",
				Usage: "Run the retention sweep and deletion executor workers",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunWorker(ctx)
				},
			},
			{
				Name:  "sweep-retention",
				Usage: "Run one retention sweep pass, queueing expired entries for deletion",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunSweepRetention(ctx)
				},
			},
			{
				Name:  "process-deletions",
				Usage: "Run one deletion executor pass over the deletion queue",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunProcessDeletions(ctx)
				},
			},
			{
				Name:  "retention-status",
				Usage: "Show per-category retention counts for a tenant",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "tenant",
						Aliases:  []string{"t"},
						Required: true,
						Usage:    "Tenant identifier",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRetentionStatus(ctx, cmd.String("tenant"))
				},
			},
			{
				Name:  "rotate-tenant-key",
				Usage: "Rotate a tenant's encryption key, scheduling the old key for destruction",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "tenant",
						Aliases:  []string{"t"},
						Required: true,
						Usage:    "Tenant identifier",
					},
					&cli.StringFlag{
						Name:     "actor",
						Aliases:  []string{"a"},
						Required: true,
						Usage:    "Operator performing the rotation",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRotateTenantKey(ctx, cmd.String("actor"), cmd.String("tenant"))
				},
			},
			{
				Name:  "destroy-tenant-key",
				Usage: "Schedule destruction of all usable tenant keys after the grace window",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "tenant",
						Aliases:  []string{"t"},
						Required: true,
						Usage:    "Tenant identifier",
					},
					&cli.StringFlag{
						Name:     "actor",
						Aliases:  []string{"a"},
						Required: true,
						Usage:    "Operator requesting the destruction",
					},
					&cli.IntFlag{
						Name:    "grace-days",
						Aliases: []string{"g"},
						Value:   7,
						Usage:   "Days before destruction becomes effective (minimum 7)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunDestroyTenantKey(ctx, cmd.String("actor"), cmd.String("tenant"), cmd.Int("grace-days"))
				},
			},
			{
				Name:  "approve-deletion",
				Usage: "Approve a deletion queue item that requires operator sign-off",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "Queue item ID (UUID)",
					},
					&cli.StringFlag{
						Name:     "actor",
						Aliases:  []string{"a"},
						Required: true,
						Usage:    "Operator approving the deletion",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunApproveDeletion(ctx, cmd.String("actor"), cmd.String("id"))
				},
			},
			{
				Name:  "delete-tenant-data",
				Usage: "Erase all of a tenant's data on request, keeping the audit trail",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "tenant",
						Aliases:  []string{"t"},
						Required: true,
						Usage:    "Tenant identifier",
					},
					&cli.StringFlag{
						Name:     "actor",
						Aliases:  []string{"a"},
						Required: true,
						Usage:    "Operator executing the erasure request",
					},
					&cli.StringFlag{
						Name:     "reason",
						Aliases:  []string{"r"},
						Required: true,
						Usage:    "Reason for the erasure, recorded in the audit trail",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunDeleteTenantData(ctx, cmd.String("actor"), cmd.String("tenant"), cmd.String("reason"))
				},
			},
			{
				Name:  "process-outbox",
				Usage: "Relay one batch of buffered audit events to the audit backend",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunProcessOutbox(ctx)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
