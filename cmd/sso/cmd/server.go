package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/ceceprawiro/sso/directory"
	"github.com/ceceprawiro/sso/linkcache"
	"github.com/ceceprawiro/sso/server"
	"github.com/ceceprawiro/sso/session"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the central SSO server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.Server.Brokers) == 0 {
			return fmt.Errorf("no brokers configured; provision at least one id/secret pair")
		}

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		brokers := directory.NewRegistry()
		for _, b := range cfg.Server.Brokers {
			if err := brokers.Add(b.ID, []byte(b.Secret)); err != nil {
				return fmt.Errorf("provisioning broker: %w", err)
			}
		}
		users := directory.NewUserDir()
		for _, u := range cfg.Server.Users {
			err := users.AddUser(directory.User{
				ID:       u.ID,
				Username: u.Username,
				Email:    u.Email,
				FullName: u.FullName,
			}, u.Password)
			if err != nil {
				return fmt.Errorf("provisioning user: %w", err)
			}
		}

		var links linkcache.Cache
		if cfg.Server.Redis.Addr != "" {
			rc, err := linkcache.NewRedis(cmd.Context(), linkcache.RedisConfig{
				Addr:      cfg.Server.Redis.Addr,
				Username:  cfg.Server.Redis.Username,
				Password:  cfg.Server.Redis.Password,
				DB:        cfg.Server.Redis.DB,
				KeyPrefix: "sso:link:",
			})
			if err != nil {
				return fmt.Errorf("connecting link cache: %w", err)
			}
			defer rc.Close()
			links = rc
		} else {
			logger.Warn("no redis configured; using in-memory link cache (single process only)")
			links = linkcache.NewMemory()
		}

		var sessions session.Store
		if cfg.Server.SessionDB != "" {
			store, err := session.NewBoltStoreFromFile(cfg.Server.SessionDB, nil, 0)
			if err != nil {
				return fmt.Errorf("opening session store: %w", err)
			}
			defer store.Close()
			sessions = store
		} else {
			sessions = session.NewMemoryStore(0)
		}

		a := server.New(brokers, users, links, sessions, server.WithLogger(logger))

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})
		r.Mount("/", a.Router())

		srv := &http.Server{
			Addr:              cfg.Server.Listen,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		return serve(srv, logger, "sso server")
	},
}

// serve runs an HTTP server until SIGINT/SIGTERM, then drains it.
func serve(srv *http.Server, logger *slog.Logger, name string) error {
	done := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- fmt.Errorf("%s failed: %w", name, err)
			return
		}
		done <- nil
	}()

	logger.Info("listening", "name", name, "addr", srv.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-done
	case err := <-done:
		return err
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
