// Package cli provides the drivesync command tree.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driving"
	"github.com/aganswers/drivesync/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

// Global flags.
var (
	configFile string
	dataDir    string
	verbose    bool
)

// Options carries the global flags into the bootstrap.
type Options struct {
	ConfigFile string
	DataDir    string
}

// ConfigEditor reads and writes the settings file.
type ConfigEditor interface {
	Path() string
	Get(key string) (any, bool)
	Set(key string, value any) error
	Keys() []string
}

// Services holds everything the commands depend on. Fields left nil make
// the commands that need them fail with a "not configured" error.
type Services struct {
	Settings   domain.Settings
	Config     ConfigEditor
	Tokens     driving.TokenManager
	Lister     driving.DriveLister
	Projects   driving.ProjectService
	Selections driving.SelectionService
	Sync       driving.SyncOrchestrator
	Tracker    driving.IngestionTracker
	Scheduler  driving.Scheduler
	Close      func() error
	// Err explains why some services are missing.
	Err error
}

// Bootstrap builds the services once flags are parsed.
type Bootstrap func(ctx context.Context, opts Options) (*Services, error)

var bootstrap Bootstrap

// Services used by commands.
var (
	settings         domain.Settings
	configEditor     ConfigEditor
	tokenManager     driving.TokenManager
	driveLister      driving.DriveLister
	projectService   driving.ProjectService
	selectionService driving.SelectionService
	syncOrchestrator driving.SyncOrchestrator
	ingestionTracker driving.IngestionTracker
	scheduler        driving.Scheduler
	closeServices    func() error
	setupErr         error
)

// skipBootstrap marks commands that run without services.
const skipBootstrap = "skip-bootstrap"

var rootCmd = &cobra.Command{
	Use:   "drivesync",
	Short: "Sync Google Drive content into the ingestion pipeline",
	Long: `drivesync connects projects to Google Drive, tracks which file versions
have been ingested, and submits new or changed files to the ingestion pipeline.

Typical flow:
  drivesync project add "Andrew Farms" --admin owner@example.com
  drivesync auth url --owner owner@example.com
  drivesync auth complete --owner owner@example.com --code <code>
  drivesync auth attach <project-id> --owner owner@example.com
  drivesync select <project-id> <file-or-folder-id>... --owner owner@example.com
  drivesync serve`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.drivesync/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "",
		`data directory; ":memory:" keeps everything in memory`)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command with the given bootstrap.
func Execute(b Bootstrap) error {
	bootstrap = b
	return rootCmd.Execute()
}

// SetServices installs services directly, bypassing the bootstrap.
func SetServices(s *Services) {
	settings = s.Settings
	configEditor = s.Config
	tokenManager = s.Tokens
	driveLister = s.Lister
	projectService = s.Projects
	selectionService = s.Selections
	syncOrchestrator = s.Sync
	ingestionTracker = s.Tracker
	scheduler = s.Scheduler
	closeServices = s.Close
	setupErr = s.Err
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if bootstrap == nil || cmd.Annotations[skipBootstrap] == "true" {
		return nil
	}

	svc, err := bootstrap(cmd.Context(), Options{ConfigFile: configFile, DataDir: dataDir})
	if err != nil {
		return err
	}
	SetServices(svc)
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

// notConfigured reports a missing service.
func notConfigured(name string) error {
	if setupErr != nil {
		return fmt.Errorf("%s not configured: %w", name, setupErr)
	}
	return errors.New(name + " not configured")
}
