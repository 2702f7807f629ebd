// cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gewnthar/permitsync/config"
	"github.com/gewnthar/permitsync/database"
	"github.com/gewnthar/permitsync/geo"
	"github.com/gewnthar/permitsync/logging"
	"github.com/gewnthar/permitsync/services"
)

// app holds everything a subcommand needs once initialization has run.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *database.DB
	importer *services.Importer
}

// RootCommand creates and returns the root command
func RootCommand() *cobra.Command {
	var configPath string
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "permitsync",
		Short:         "Import cellular permits and station records into a relational store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.initialize(cmd.Context(), configPath)
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if a.db != nil {
			return a.db.Close()
		}
		return nil
	}

	rootCmd.AddCommand(runCommand(a), serveCommand(a))
	return rootCmd
}

// initialize loads configuration, opens the database, and loads the region
// polygons. It runs before every subcommand.
func (a *app) initialize(ctx context.Context, configPath string) error {
	if err := config.LoadConfig(configPath); err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = config.AppConfig
	a.logger = logging.New(a.cfg.Logging, os.Stderr)

	db, err := database.Open(a.cfg.Database, a.logger)
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	a.db = db
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	polys, err := geo.LoadFile(a.cfg.Regions.GeoJSONPath, a.cfg.Regions.CodeProperty, a.cfg.Regions.NameProperty)
	if err != nil {
		return fmt.Errorf("error loading region polygons: %w", err)
	}
	resolver := geo.NewResolver(polys, geo.DefaultOverrides)
	a.logger.Info("region polygons loaded",
		"path", a.cfg.Regions.GeoJSONPath,
		"regions", len(resolver.Regions()),
		"polygons", resolver.PolygonCount())

	a.importer = services.NewImporter(a.cfg, db, resolver, nil, a.logger)
	return nil
}
