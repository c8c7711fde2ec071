package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/seantiz/capsule/internal/api"
	"github.com/seantiz/capsule/internal/config"
	"github.com/seantiz/capsule/internal/lifecycle"
	"github.com/seantiz/capsule/internal/secret"
	"github.com/seantiz/capsule/internal/store"
)

// app bundles what every subcommand needs.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	svc    *lifecycle.Service
	close  func()
}

// openApp loads configuration and opens the record store. Logs go to
// logOut, plus the rotated log file when one is configured.
func openApp(logOut io.Writer) (*app, error) {
	cfg := config.Load()
	w, logFile := cfg.LogWriter(logOut)
	logger := config.NewLogger(w, cfg.LogLevel)

	backend, err := store.New(cfg.StoreBackend, cfg.StorePath)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	deriver := secret.NewDeriver(cfg.CallbackSalt)
	if deriver.UsingDefault() {
		logger.Warn("CALLBACK_SALT is not set; using the built-in default salt, callbacks can be forged by anyone who knows it")
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		svc:    lifecycle.NewService(store.NewBestEffort(backend, logger), deriver, logger),
		close: func() {
			backend.Close()
			logFile.Close()
		},
	}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "capsule",
		Short:         "Track remote worker lifecycle via authenticated status callbacks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newSecretCmd(),
		newListCmd(),
		newRemoveCmd(),
		newResetCmd(),
		newFailCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the callback and query HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.close()

			a.logger.Info("capsule: starting",
				"listen_addr", a.cfg.ListenAddr,
				"store_backend", a.cfg.StoreBackend,
				"store_path", a.cfg.StorePath,
			)
			return api.NewServer(a.cfg.ListenAddr, a.svc, a.cfg.AllowedOrigins, a.logger).Run()
		},
	}
}

func newSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "secret <repo>",
		Short: "Print the callback secret a worker must present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			_, err = fmt.Fprintln(cmd.OutOrStdout(), a.svc.Secret(args[0]))
			return err
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print all worker records as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(a.svc.List(cmd.Context()))
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <repo>",
		Short: "Delete one worker record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.svc.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "removed 1")
			return err
		},
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every worker record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d\n", a.svc.Reset(cmd.Context()))
			return err
		},
	}
}

func newFailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fail <repo> <message>",
		Short: "Mark a worker as failed when it cannot report itself",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			return a.svc.MarkError(cmd.Context(), args[0], args[1])
		},
	}
}
