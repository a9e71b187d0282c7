package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LuciferDinesh/student-feedback-system/internal/feedback"
	"github.com/LuciferDinesh/student-feedback-system/internal/handler"
	"github.com/LuciferDinesh/student-feedback-system/internal/model"
	"github.com/LuciferDinesh/student-feedback-system/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "feedbackd",
		Short: "Student feedback collection service backed by a spreadsheet store",
	}

	serve := serveCmd()
	root.AddCommand(serve)

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `feedbackd --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP feedback server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("store", "sheets", "Tabular store backend (sheets, sqlite)")
	f.String("db", "feedback.db", "SQLite database path (sqlite backend)")
	f.String("spreadsheet-id", "", "Google spreadsheet ID (sheets backend)")
	f.String("credentials-file", "", "Service account credentials JSON path (sheets backend)")
	f.String("config-sheet", "Sheet1", "Name of the admin configuration table")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("FEEDBACK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("feedbackd")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/feedbackd")
	v.AddConfigPath("/etc/feedbackd")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cfg := model.ServerConfig{
		Addr:            v.GetString("addr"),
		StoreBackend:    strings.ToLower(v.GetString("store")),
		DBPath:          v.GetString("db"),
		SpreadsheetID:   v.GetString("spreadsheet-id"),
		CredentialsFile: v.GetString("credentials-file"),
		ConfigSheet:     v.GetString("config-sheet"),
	}

	tab, closeStore, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := feedback.NewService(tab)
	h := handler.New(tab, svc, cfg.ConfigSheet)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	slog.Info("starting server",
		"addr", cfg.Addr,
		"store", cfg.StoreBackend,
		"config_sheet", cfg.ConfigSheet,
	)
	return http.ListenAndServe(cfg.Addr, r)
}

// openStore builds the configured tabular store. Missing configuration
// is a fatal error naming the variable to set; the process never comes
// up pointing at nothing.
func openStore(ctx context.Context, cfg model.ServerConfig) (store.Tabular, func() error, error) {
	switch cfg.StoreBackend {
	case "sqlite":
		s, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, s.Close, nil
	case "sheets":
		if cfg.SpreadsheetID == "" {
			return nil, nil, fmt.Errorf("spreadsheet ID is required: set --spreadsheet-id flag or FEEDBACK_SPREADSHEET_ID env var")
		}
		if cfg.CredentialsFile == "" {
			return nil, nil, fmt.Errorf("credentials file is required: set --credentials-file flag or FEEDBACK_CREDENTIALS_FILE env var")
		}
		if ctx == nil {
			ctx = context.Background()
		}
		s, err := store.NewSheets(ctx, cfg.SpreadsheetID, cfg.CredentialsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open sheets store: %w", err)
		}
		return s, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q (want sheets or sqlite)", cfg.StoreBackend)
	}
}
