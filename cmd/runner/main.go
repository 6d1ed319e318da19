// Command runner manages the behavior-box experiment database and serves its
// admin API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/behavior-lab/runner/internal/api"
	"github.com/behavior-lab/runner/internal/config"
	"github.com/behavior-lab/runner/internal/db"
	"github.com/behavior-lab/runner/internal/hardware"
	"github.com/behavior-lab/runner/internal/monitoring"
	"github.com/behavior-lab/runner/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	var g globals

	root := &cobra.Command{
		Use:           "runner",
		Short:         "Behavior box experiment runner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "JSON config file (optional)")
	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "database path (overrides config)")

	root.AddCommand(newServeCmd(&g))
	root.AddCommand(newMigrateCmd(&g))
	root.AddCommand(newPortsCmd(&g))
	root.AddCommand(newSessionsCmd(&g))
	root.AddCommand(newVersionCmd())
	return root
}

// loadConfig applies the flag overrides on top of the loaded configuration
// and sets up logging.
func loadConfig(g *globals) (*config.RunnerConfig, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.dbPath != "" {
		cfg.DBPath = g.dbPath
	}
	db.DevMode = cfg.DevMigrations
	if _, err := monitoring.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(g *globals) (*config.RunnerConfig, *db.DB, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, nil, err
	}
	store, err := db.NewDB(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, store, nil
}

func newServeCmd(g *globals) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin API, debug SQL browser and metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, store, err := openStore(g)
			if err != nil {
				return err
			}
			defer store.Close()
			if listen != "" {
				cfg.ListenAddr = listen
			}

			ln, err := net.Listen("tcp", cfg.ListenAddr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, store, ln)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}

// serve runs the HTTP server on ln until ctx is cancelled, then shuts it
// down within the configured timeout.
func serve(ctx context.Context, cfg *config.RunnerConfig, store *db.DB, ln net.Listener) error {
	timeout, err := cfg.GetShutdownTimeout()
	if err != nil {
		return err
	}

	srv := api.NewServer(store, api.Options{WaterWindow: cfg.WaterWindow})
	mux := srv.ServeMux()
	if err := store.AttachAdminRoutes(mux); err != nil {
		return fmt.Errorf("failed to attach admin routes: %w", err)
	}

	server := &http.Server{
		Handler:           api.RequestIDMiddleware(api.LoggingMiddleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	monitoring.L().Info("serving",
		zap.String("addr", ln.Addr().String()),
		zap.String("db", store.Path()),
		zap.String("version", version.Version),
	)

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	monitoring.L().Info("shutting down HTTP server", zap.Duration("timeout", timeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.L().Warn("HTTP server shutdown error", zap.Error(err))
		if err := server.Close(); err != nil {
			return fmt.Errorf("HTTP server force close: %w", err)
		}
	}
	return nil
}

func newMigrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <up|down|status|version N|force N|baseline N|help>",
		Short: "Manage database schema migrations",
		// Actions and their arguments are validated by MigrateCommand.
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			m := &db.MigrateCommand{DBPath: cfg.DBPath, Out: cmd.OutOrStdout(), In: cmd.InOrStdin()}
			return m.Run(args)
		},
	}
}

func newPortsCmd(g *globals) *cobra.Command {
	var failMissing bool
	cmd := &cobra.Command{
		Use:   "ports",
		Short: "Check each box's serial port against the attached devices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, store, err := openStore(g)
			if err != nil {
				return err
			}
			defer store.Close()
			return printPorts(cmd.OutOrStdout(), store, hardware.SystemLister{}, failMissing)
		},
	}
	cmd.Flags().BoolVar(&failMissing, "fail-missing", false, "exit non-zero when a box's port is not attached")
	return cmd
}

func printPorts(w io.Writer, store *db.DB, lister hardware.Lister, failMissing bool) error {
	audit, err := hardware.Run(store, lister)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(audit); err != nil {
		return err
	}
	if missing := audit.Missing(); failMissing && len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, b := range missing {
			names = append(names, b.Box)
		}
		return fmt.Errorf("serial port missing for: %s", strings.Join(names, ", "))
	}
	return nil
}

func newSessionsCmd(g *globals) *cobra.Command {
	var mouse string
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent sessions with their display columns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, store, err := openStore(g)
			if err != nil {
				return err
			}
			defer store.Close()
			return printSessions(cmd.OutOrStdout(), store, mouse, limit)
		},
	}
	cmd.Flags().StringVar(&mouse, "mouse", "", "only sessions of this mouse")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of sessions (0 for all)")
	return cmd
}

func printSessions(w io.Writer, store *db.DB, mouse string, limit int) error {
	var sessions []db.Session
	var err error
	if mouse != "" {
		m, lookupErr := store.GetMouseByName(mouse)
		if lookupErr != nil {
			return lookupErr
		}
		sessions, err = store.GetSessionsForMouse(m.ID, limit)
	} else {
		sessions, err = store.GetAllSessions(limit)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	headers := []string{"label", "date_time_start", "left_valve_summary", "right_valve_summary", "display_left_perf", "display_right_perf"}
	labels := make([]string, len(headers))
	for i, h := range headers {
		labels[i] = db.ColumnLabel(h)
	}
	fmt.Fprintln(tw, strings.Join(labels, "\t"))
	for i := range sessions {
		d := sessions[i].Display()
		start := ""
		if d.DateTimeStart != nil {
			start = d.DateTimeStart.Format("2006-01-02 15:04")
		}
		fmt.Fprintln(tw, strings.Join([]string{d.Label, start, d.LeftValveSummary, d.RightValveSummary, d.DisplayLeftPerf, d.DisplayRightPerf}, "\t"))
	}
	return tw.Flush()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}
