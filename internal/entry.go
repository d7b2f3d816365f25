// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/ide"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/osio"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/toolchain"
	"github.com/starford/raido/internal/watch"
)

// runtime holds the components shared by every entry point.
type runtime struct {
	logger  *slog.Logger
	adapter *osio.Adapter
	history *history.DB
	svc     *toolchain.Service
}

func (rt *runtime) Close() {
	if rt.history != nil {
		if err := rt.history.Close(); err != nil {
			rt.logger.Warn("close history failed", slog.String("error", err.Error()))
		}
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// setup loads the IDE configuration and wires the executor, the IO adapter
// and, if withHistory is set, the history store. Logs go to logOut; the
// streams of interactive processes are procOut and procErr.
func (a *application) setup(logOut, procOut, procErr io.Writer, withHistory bool, svcOpts ...toolchain.Option) (*runtime, error) {
	cfg := a.config
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	ideCfg, err := ide.LoadFile(cfg.Toolchain.Path)
	if err != nil {
		return nil, fmt.Errorf("load toolchain: %w", err)
	}

	adapter := osio.New(
		osio.WithStreams(a.stdin, procOut, procErr),
		osio.WithLogger(logger))
	exec := ide.NewExecutor(ideCfg, adapter,
		ide.WithDesignPath(cfg.Design.Path),
		ide.WithLogger(logger))

	rt := &runtime{logger: logger, adapter: adapter}
	opts := []toolchain.Option{toolchain.WithLogger(logger)}
	if withHistory {
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("init history: %w", err)
		}
		rt.history = db
		opts = append(opts, toolchain.WithHistory(db))
	}
	rt.svc = toolchain.NewService(exec, append(opts, svcOpts...)...)

	logger.Debug("Configuration loaded",
		slog.String("ide", ideCfg.Name()),
		slog.String("toolchain_path", cfg.Toolchain.Path),
		slog.String("design_path", cfg.Design.Path),
		slog.String("history_path", cfg.History.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))
	return rt, nil
}

// newHTTPHandler builds the chi router serving health checks and the API.
func newHTTPHandler(cfg *Config, rt *runtime, broker *sse.Broker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if rt.history != nil {
			if err := rt.history.Ping(req.Context()); err != nil {
				writeStatus(w, http.StatusServiceUnavailable, "history unavailable")
				return
			}
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	r.Mount("/api", api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))
	return r
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	broker := sse.NewBroker(cfg.Design.Debounce)
	defer broker.Close()

	rt, err := app.setup(app.stdout, app.stdout, app.stderr, true, toolchain.WithPublisher(broker))
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: newHTTPHandler(cfg, rt, broker),
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Announce design edits to SSE clients.
	g.Go(func() error {
		if err := watch.Watch(gCtx, cfg.Design.Path, cfg.Design.Debounce, logger, broker.PublishDesignChange); err != nil {
			logger.Warn("watcher: disabled", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Unblock the watcher when shutdown came from a signal.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// ReportedError wraps an execution failure that the IO adapter has already
// shown to the user.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }

func (e *ReportedError) Unwrap() error { return e.Err }

// ServeMCP serves the MCP protocol on stdin/stdout. Logs and the output
// of interactive processes go to stderr, since stdout carries the protocol.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	app.stdin = strings.NewReader("")

	rt, err := app.setup(app.stderr, app.stderr, app.stderr, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.svc).ServeStdio()
}

// ListCommands prints the configured commands.
func ListCommands(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.setup(app.stderr, app.stdout, app.stderr, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	tw := tabwriter.NewWriter(app.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "NAME\tREQUIRES\tFILTER\tARGS\n")
	for _, c := range rt.svc.Commands() {
		requires := c.Requires
		if requires == "" {
			requires = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", c.Name, requires, c.Filter, strings.Join(c.Args, " "))
	}
	return tw.Flush()
}

// RunCommand runs one command and waits for the started process to exit.
// A failed execution is returned as a *ReportedError.
func RunCommand(ctx context.Context, name string, interactive bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.setup(app.stderr, app.stdout, app.stderr, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	rec, err := rt.svc.Run(ctx, name, interactive)
	if err != nil {
		if rec != nil {
			return &ReportedError{Err: err}
		}
		return err
	}
	if !interactive {
		fmt.Fprintf(app.stdout, "%s: started %s\n", rec.Command, strings.Join(rec.Args, " "))
	}
	rt.adapter.Wait()
	return nil
}

// WatchCommand runs the named command every time the design changes,
// until ctx is cancelled or a termination signal arrives.
func WatchCommand(ctx context.Context, name string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	rt, err := app.setup(app.stderr, app.stdout, app.stderr, true)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	if _, err := rt.svc.Command(name); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watch.Watch(gCtx, cfg.Design.Path, cfg.Design.Debounce, logger, func(string) {
			rec, err := rt.svc.Run(gCtx, name, false)
			if err != nil {
				// Already shown on stderr by the adapter.
				logger.Debug("watch: run failed", slog.String("command", name), slog.String("error", err.Error()))
				return
			}
			fmt.Fprintf(app.stdout, "%s: started %s\n", rec.Command, strings.Join(rec.Args, " "))
		})
	})

	err = g.Wait()
	rt.adapter.Wait()
	return err
}

// ShowHistory prints recent executions, newest first.
func ShowHistory(ctx context.Context, command string, limit int, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.setup(app.stderr, app.stdout, app.stderr, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	recs, err := rt.svc.History(ctx, command, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(app.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tSTARTED\tCOMMAND\tOUTCOME\tDURATION\tDETAIL\n")
	for _, r := range recs {
		detail := r.Artifact
		if r.Outcome == history.OutcomeError {
			detail = r.Error
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Command, r.Outcome, r.Duration, detail)
	}
	return tw.Flush()
}
