package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kuroukai/Kuroukai-free-api/src/models"
	"github.com/Kuroukai/Kuroukai-free-api/src/services"
)

func newKeysCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "keys",
		Aliases: []string{"key"},
		Short:   "Manage access keys directly in the key store",
	}

	cmd.AddCommand(newKeysCreateCmd(opts))
	cmd.AddCommand(newKeysInfoCmd(opts))
	cmd.AddCommand(newKeysListCmd(opts))
	cmd.AddCommand(newKeysDeleteCmd(opts))
	cmd.AddCommand(newKeysBlockCmd(opts))

	return cmd
}

// withKeys loads the configuration, opens the store and hands a key service to fn
func withKeys(cmd *cobra.Command, opts *options, fn func(*services.KeyService) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	repo, closeStore, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	return fn(newKeyService(cfg, repo))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ---------- keys create ----------

func newKeysCreateCmd(opts *options) *cobra.Command {
	var (
		userID     string
		hours      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a new access key for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := services.CreateKeyRequest{
				UserID:    userID,
				CreatedBy: models.CreatedByCLI,
			}
			if cmd.Flags().Changed("hours") {
				req.Hours = &hours
			}

			return withKeys(cmd, opts, func(ks *services.KeyService) error {
				key, err := ks.CreateKey(cmd.Context(), req)
				if err != nil {
					return fmt.Errorf("create key: %w", err)
				}

				out := cmd.OutOrStdout()
				if jsonOutput {
					return writeJSON(out, key)
				}
				fmt.Fprintf(out, "Key created for user %s\n", key.UserID)
				fmt.Fprintf(out, "  key_id:     %s\n", key.KeyID)
				fmt.Fprintf(out, "  expires_at: %s\n", key.ExpiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User identifier the key is bound to")
	cmd.Flags().IntVar(&hours, "hours", 0, "Validity in hours (default from DEFAULT_KEY_HOURS, capped at MAX_KEY_HOURS)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// ---------- keys info ----------

func newKeysInfoCmd(opts *options) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info <key-id>",
		Short: "Show a key without recording usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeys(cmd, opts, func(ks *services.KeyService) error {
				view, err := ks.GetInfo(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("key %s: %w", args[0], err)
				}

				out := cmd.OutOrStdout()
				if jsonOutput {
					return writeJSON(out, keyRecord(*view))
				}

				k := view.Key
				fmt.Fprintf(out, "key_id:      %s\n", k.KeyID)
				fmt.Fprintf(out, "user_id:     %s\n", k.UserID)
				fmt.Fprintf(out, "status:      %s\n", k.Status)
				fmt.Fprintf(out, "valid:       %t\n", view.Valid)
				fmt.Fprintf(out, "created_at:  %s\n", k.CreatedAt.Format(time.RFC3339))
				fmt.Fprintf(out, "expires_at:  %s\n", k.ExpiresAt.Format(time.RFC3339))
				fmt.Fprintf(out, "remaining:   %s\n", view.TimeRemaining.Formatted)
				fmt.Fprintf(out, "usage_count: %d\n", k.UsageCount)
				if k.LastAccessedAt != nil {
					fmt.Fprintf(out, "last_used:   %s\n", k.LastAccessedAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// ---------- keys list ----------

func newKeysListCmd(opts *options) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list <user-id>",
		Aliases: []string{"ls"},
		Short:   "List a user's keys, newest first",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeys(cmd, opts, func(ks *services.KeyService) error {
				views, err := ks.ListForUser(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("list keys: %w", err)
				}

				out := cmd.OutOrStdout()
				if jsonOutput {
					rows := make([]record, len(views))
					for i, v := range views {
						rows[i] = keyRecord(v)
					}
					return writeJSON(out, rows)
				}

				if len(views) == 0 {
					fmt.Fprintf(out, "No keys for user %s. Use 'kuroukai keys create' to issue one.\n", args[0])
					return nil
				}

				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY ID\tSTATUS\tVALID\tEXPIRES\tUSES")
				for _, v := range views {
					fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%d\n",
						v.Key.KeyID, v.Key.Status, v.Valid,
						v.Key.ExpiresAt.Format(time.RFC3339), v.Key.UsageCount)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// ---------- keys delete ----------

func newKeysDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <key-id>",
		Aliases: []string{"rm"},
		Short:   "Permanently delete a key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeys(cmd, opts, func(ks *services.KeyService) error {
				if err := ks.DeleteKey(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("delete key %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Key %s deleted.\n", args[0])
				return nil
			})
		},
	}
}

// ---------- keys block ----------

func newKeysBlockCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "block <user-id>",
		Short: "Block every key a user owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeys(cmd, opts, func(ks *services.KeyService) error {
				n, err := ks.BlockUser(cmd.Context(), args[0])
				if errors.Is(err, services.ErrKeyNotFound) {
					return fmt.Errorf("user %s has no keys", args[0])
				}
				if err != nil {
					return fmt.Errorf("block user: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Blocked %d key(s) for user %s.\n", n, args[0])
				return nil
			})
		},
	}
}

type record struct {
	*models.AccessKey
	Valid         bool                 `json:"valid"`
	TimeRemaining models.TimeRemaining `json:"time_remaining"`
}

func keyRecord(v services.KeyView) record {
	return record{AccessKey: v.Key, Valid: v.Valid, TimeRemaining: v.TimeRemaining}
}
