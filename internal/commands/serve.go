package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/budgetwise/internal/auth"
	"github.com/mmynk/budgetwise/internal/cache"
	"github.com/mmynk/budgetwise/internal/config"
	"github.com/mmynk/budgetwise/internal/metrics"
	"github.com/mmynk/budgetwise/internal/middleware"
	"github.com/mmynk/budgetwise/internal/service"
	"github.com/mmynk/budgetwise/internal/storage/sqlite"
	"github.com/mmynk/budgetwise/pkg/api"
	"github.com/mmynk/budgetwise/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	var configPath string
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Connect API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.Setup(cfg.Log.Level, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to budgetwise.yaml")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	server := &http.Server{
		Addr: cfg.Server.Addr,
		// Wrap with h2c for HTTP/2 without TLS (required for Connect)
		Handler:           h2c.NewHandler(app.handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting", "address", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// app is the wired server: storage, cache and every HTTP route.
type app struct {
	handler http.Handler
	closers []io.Closer
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	a := &app{closers: []io.Closer{store}}
	logger.Info("Storage initialized", "database", cfg.Database.Path)

	var summaries cache.SummaryCache = cache.Nop{}
	if cfg.Redis.Addr != "" {
		client, err := cache.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client)
		summaries = cache.NewRedis(client, cfg.Redis.TTL)
		logger.Info("Summary cache enabled", "redis", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	}

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)

	// Interceptors run in order: auth first so the others see the caller.
	observe := []connect.Interceptor{middleware.LoggingInterceptor(logger), middleware.MetricsInterceptor()}
	public := connect.WithInterceptors(append([]connect.Interceptor{middleware.OptionalAuth(jwtManager)}, observe...)...)
	private := connect.WithInterceptors(append([]connect.Interceptor{middleware.RequireAuth(jwtManager)}, observe...)...)

	mux := http.NewServeMux()
	mux.Handle(api.NewAuthServiceHandler(service.NewAuthService(authenticator, jwtManager, store, logger), public))
	mux.Handle(api.NewGroupServiceHandler(service.NewGroupService(store, summaries, logger), private))
	mux.Handle(api.NewTransactionServiceHandler(service.NewTransactionService(store, summaries, loc, logger), private))
	mux.Handle(api.NewSummaryServiceHandler(service.NewSummaryService(store, summaries, loc, logger), private))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	if cfg.Server.StaticPath != "" {
		staticDir, err := filepath.Abs(cfg.Server.StaticPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("resolving static path: %w", err)
		}
		mux.Handle("/", staticHandler(staticDir))
		logger.Info("Serving static files", "path", staticDir)
	}

	a.handler = middleware.LoggingHandler(logger, middleware.CORS(mux))
	return a, nil
}

// staticHandler serves files from dir, falling back to index.html for
// unknown paths so client-side routes resolve.
func staticHandler(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/budgetwise.v1.") {
			http.NotFound(w, r)
			return
		}

		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}

		filePath := filepath.Join(dir, filepath.Clean("/"+urlPath))
		if info, err := os.Stat(filePath); err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}

		http.ServeFile(w, r, filePath)
	})
}
