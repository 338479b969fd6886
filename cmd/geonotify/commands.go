package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgard/geonotify/internal/app"
	"github.com/edgard/geonotify/internal/config"
	"github.com/edgard/geonotify/internal/database"
	"github.com/edgard/geonotify/internal/logger"
)

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "geonotify",
		Short:         "Location-driven notification agent",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to configuration file (default ./config.yaml)")

	root.AddCommand(
		newRunCommand(opts),
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newPushTokenCommand(opts),
		newStatusCommand(opts),
	)
	return root
}

func loadConfig(opts *rootOptions) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	return cfg, log, nil
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the agent until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(opts)
			if err != nil {
				return err
			}
			log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

			a, err := app.New(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

// withStore opens the database, runs fn and closes it again.
func withStore(opts *rootOptions, fn func(ctx context.Context, store database.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig(opts)
		if err != nil {
			return err
		}
		db, err := database.NewDB(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer database.CloseDB(db)
		return fn(cmd.Context(), database.NewStore(db, log))
	}
}

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var userID, credential string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the session used to authenticate location reports",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withStore(opts, func(ctx context.Context, store database.Store) error {
		if err := store.SaveSession(ctx, &database.Session{UserID: userID, Credential: credential}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", userID)
		return nil
	})
	cmd.Flags().StringVar(&userID, "user", "", "user identifier")
	cmd.Flags().StringVar(&credential, "credential", "", "API token of the user")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("credential")
	return cmd
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withStore(opts, func(ctx context.Context, store database.Store) error {
		if err := store.DeleteSession(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "signed out")
		return nil
	})
	return cmd
}

func newPushTokenCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push-token <token>",
		Short: "Store the device push token",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withStore(opts, func(ctx context.Context, store database.Store) error {
			if err := store.SavePushToken(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), "push token saved")
			return nil
		})(c, args)
	}
	return cmd
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the status of a running agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			return printStatus(cmd.Context(), cmd.OutOrStdout(), "http://"+cfg.Server.Addr)
		},
	}
}

func printStatus(ctx context.Context, w io.Writer, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/status", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("agent not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agent returned status %d", resp.StatusCode)
	}

	var status map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode status: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(status)
}
