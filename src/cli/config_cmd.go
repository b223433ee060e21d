package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "Create a starter configuration file or display the effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd(opts))

	return cmd
}

// ---------- config init ----------

const defaultConfigPath = "kuroukai.yaml"

const defaultConfig = `# Kuroukai configuration
# Every key can also be set through the upper-cased environment variable,
# e.g. PORT=8080 or DATABASE_URL=postgres://...

port: 3000
app_env: development # production enables secure cookies

# Key store: a postgres:// URL selects PostgreSQL, otherwise the SQLite file is used
database_url: ""
database_path: ./keys.db

cors_origin: "*" # or a comma-separated list of origins

rate_limit_window: 15 # minutes
rate_limit_max: 100

default_key_hours: 24
max_key_hours: 168
session_ttl_hours: 24

log_level: info # debug, info, warn, error
log_format: json # json or pretty
log_file: ""
log_max_size_mb: 50
log_max_backups: 5
log_max_age_days: 30

# Admin passwords, plain text or bcrypt hashes. Prefer setting them via the environment.
admin_default_password: ""
admin_temp_password: ""
admin_passwords: []
`

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default kuroukai.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}

			if err := os.WriteFile(path, []byte(defaultConfig), 0o600); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	cmd.Flags().StringVarP(&path, "output", "o", defaultConfigPath, "Where to write the file")

	return cmd
}

// ---------- config show ----------

func newConfigShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg.Redacted())
		},
	}
}
