package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kuroukai/Kuroukai-free-api/src/config"
	"github.com/Kuroukai/Kuroukai-free-api/src/database"
	"github.com/Kuroukai/Kuroukai-free-api/src/logging"
	"github.com/Kuroukai/Kuroukai-free-api/src/repositories"
	"github.com/Kuroukai/Kuroukai-free-api/src/repositories/postgres"
	"github.com/Kuroukai/Kuroukai-free-api/src/repositories/sqlite"
	"github.com/Kuroukai/Kuroukai-free-api/src/services"
)

// options holds the persistent flags shared by every subcommand
type options struct {
	configFile string
}

// Execute creates the root command tree and runs it.
func Execute(version string) error {
	return NewRootCmd(version).Execute()
}

// NewRootCmd builds the kuroukai command tree. Running it without a
// subcommand starts the server.
func NewRootCmd(version string) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "kuroukai",
		Short: "Time-limited access key service",
		Long: `Kuroukai issues time-limited access keys bound to user identifiers,
validates them over HTTP and offers an admin API for key management.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, 0, version)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is ./kuroukai.yaml)")

	cmd.AddCommand(newServeCmd(opts, version))
	cmd.AddCommand(newKeysCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newVersionCmd(version))

	return cmd
}

func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) io.Closer {
	return logging.Setup(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
}

// openStore opens the key store selected by the configuration: PostgreSQL
// when DATABASE_URL is a postgres URL, the SQLite file otherwise.
func openStore(ctx context.Context, cfg *config.Config) (repositories.KeyRepository, func(), error) {
	if cfg.UsesPostgres() {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		db, err := database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return postgres.NewKeyRepository(db.GetPool()), db.Close, nil
	}

	db, err := database.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return sqlite.NewKeyRepository(db), func() { db.Close() }, nil
}

func newKeyService(cfg *config.Config, repo repositories.KeyRepository) *services.KeyService {
	return services.NewKeyService(repo, services.KeyPolicy{
		DefaultHours: cfg.DefaultKeyHours,
		MaxHours:     cfg.MaxKeyHours,
	}, services.SystemClock())
}
