package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/solace/internal/assessment"
	"github.com/kalambet/solace/internal/config"
	"github.com/kalambet/solace/internal/migration"
	"github.com/kalambet/solace/internal/profile"
	"github.com/kalambet/solace/internal/userstore"
)

// --- user ---

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Read and write user profiles in the configured store",
}

var userGetCmd = &cobra.Command{
	Use:   "get <username>",
	Short: "Print a profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, _ := cmd.Flags().GetBool("summary")
		stats, _ := cmd.Flags().GetBool("stats")

		return withProfiles(cmd.Context(), func(ctx context.Context, _ config.Config, profiles *userstore.Facade, _ *slog.Logger) error {
			rec, ok := profiles.Get(ctx, args[0])
			if !ok {
				return fmt.Errorf("no profile for %q", args[0])
			}
			out := cmd.OutOrStdout()
			switch {
			case summary:
				_, err := fmt.Fprintln(out, profile.Summarize(rec))
				return err
			case stats:
				return writeIndented(out, profile.ComputeStats(rec))
			default:
				return writeIndented(out, rec)
			}
		})
	},
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create an empty profile if none exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProfiles(cmd.Context(), func(ctx context.Context, _ config.Config, profiles *userstore.Facade, _ *slog.Logger) error {
			if !profiles.CreateUser(ctx, args[0]) {
				return fmt.Errorf("could not create %q", args[0])
			}
			printSuccess("Profile %s ready", args[0])
			return nil
		})
	},
}

var userPutCmd = &cobra.Command{
	Use:   "put <username>",
	Short: "Replace a profile with a JSON record read from --file or stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		var src io.Reader = cmd.InOrStdin()
		if file != "" {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("opening record: %w", err)
			}
			defer f.Close()
			src = f
		}
		var rec profile.Record
		if err := json.NewDecoder(src).Decode(&rec); err != nil {
			return fmt.Errorf("invalid record JSON: %w", err)
		}

		return withProfiles(cmd.Context(), func(ctx context.Context, _ config.Config, profiles *userstore.Facade, _ *slog.Logger) error {
			if !profiles.Put(ctx, args[0], rec) {
				return fmt.Errorf("could not save %q", args[0])
			}
			printSuccess("Profile %s replaced", args[0])
			return nil
		})
	},
}

var userPatchCmd = &cobra.Command{
	Use:   "patch <username> <updates-json>",
	Short: "Merge the given fields into an existing profile",
	Long: `Merge the given fields into an existing profile. Only chatHistory,
suggestions, dashboardData, taglines and completedItems are accepted.

Example:
  solace user patch alice '{"completedItems":{"s1":true}}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch profile.Patch
		if err := json.Unmarshal([]byte(args[1]), &patch); err != nil {
			return fmt.Errorf("invalid updates JSON: %w", err)
		}
		if patch.Empty() {
			return fmt.Errorf("updates contain no known fields")
		}

		return withProfiles(cmd.Context(), func(ctx context.Context, _ config.Config, profiles *userstore.Facade, _ *slog.Logger) error {
			if !profiles.Patch(ctx, args[0], patch) {
				return fmt.Errorf("could not update %q", args[0])
			}
			printSuccess("Profile %s updated", args[0])
			return nil
		})
	},
}

func init() {
	userGetCmd.Flags().Bool("summary", false, "print a plain-text summary instead of JSON")
	userGetCmd.Flags().Bool("stats", false, "print suggestion completion stats (ignored with --summary)")
	userPutCmd.Flags().String("file", "", "read the record from this file instead of stdin")

	userCmd.AddCommand(userGetCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userPutCmd)
	userCmd.AddCommand(userPatchCmd)
}

// --- migrate / clear ---

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy local profiles to the remote store",
	RunE: func(cmd *cobra.Command, args []string) error {
		viaServer, _ := cmd.Flags().GetBool("server")

		var res migration.Result
		if viaServer {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			resp, err := client.post(cmd.Context(), "/api/migrate", map[string]string{"action": "migrate"})
			if err != nil {
				return err
			}
			if err := decodeJSON(resp, &res); err != nil {
				return err
			}
		} else {
			err := withProfiles(cmd.Context(), func(ctx context.Context, cfg config.Config, profiles *userstore.Facade, logger *slog.Logger) error {
				svc, err := openMigrator(cfg, profiles, logger)
				if err != nil {
					return err
				}
				printStep("Migrating %s to the %s store", cfg.Store.LocalPath, profiles.Mode())
				res = svc.Migrate(ctx)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return reportMigration(res)
	},
}

func reportMigration(res migration.Result) error {
	for _, k := range res.MigratedKeys {
		printSuccess("Migrated %s", k)
	}
	for _, e := range res.Errors {
		printError("%s", e)
	}
	if !res.Success {
		return fmt.Errorf("migration finished with %d error(s)", len(res.Errors))
	}
	if len(res.MigratedKeys) == 0 {
		printSuccess("Nothing to migrate")
	}
	return nil
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove local profile copies (the current-user marker is kept)",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This deletes every local profile. Use --confirm to proceed.")
			return nil
		}
		viaServer, _ := cmd.Flags().GetBool("server")

		if viaServer {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			resp, err := client.post(cmd.Context(), "/api/migrate", map[string]string{"action": "clear"})
			if err != nil {
				return err
			}
			var out struct {
				Message string `json:"message"`
			}
			if err := decodeJSON(resp, &out); err != nil {
				return err
			}
			printSuccess("%s", out.Message)
			return nil
		}

		return withProfiles(cmd.Context(), func(ctx context.Context, cfg config.Config, profiles *userstore.Facade, logger *slog.Logger) error {
			svc, err := openMigrator(cfg, profiles, logger)
			if err != nil {
				return err
			}
			svc.Clear(ctx)
			printSuccess("Local user data cleared")
			return nil
		})
	},
}

func init() {
	migrateCmd.Flags().Bool("server", false, "ask the running server to migrate its local store")
	clearCmd.Flags().Bool("server", false, "ask the running server to clear its local store")
	clearCmd.Flags().Bool("confirm", false, "confirm deletion")
}

// --- dashboard ---

var moodCmd = &cobra.Command{
	Use:   "mood <username> <rating>",
	Short: "Log a mood rating from 1 to 5",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("rating must be a number: %w", err)
		}
		return withProfiles(cmd.Context(), func(ctx context.Context, _ config.Config, profiles *userstore.Facade, logger *slog.Logger) error {
			if err := assessment.New(profiles, nil, logger).LogMood(ctx, args[0], rating); err != nil {
				return err
			}
			printSuccess("Mood %d logged for %s", rating, args[0])
			return nil
		})
	},
}

var journalCmd = &cobra.Command{
	Use:   "journal <username> <text>",
	Short: "Add a journal entry",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args[1:], " ")
		return withProfiles(cmd.Context(), func(ctx context.Context, _ config.Config, profiles *userstore.Facade, logger *slog.Logger) error {
			id, err := assessment.New(profiles, nil, logger).AddJournalEntry(ctx, args[0], text)
			if err != nil {
				return err
			}
			printSuccess("Journal entry %s saved", id)
			return nil
		})
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
