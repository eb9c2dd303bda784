package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/ceceprawiro/sso/broker"
)

var brokerCmd = &cobra.Command{
	Use:   "broker",
	Short: "Start a demo broker application",
	Long: `Runs a small site that delegates authentication to the SSO server:
the front page shows the logged-in user, /login posts credentials
through the gateway, /logout ends the login.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Broker.ID == "" || cfg.Broker.Secret == "" {
			return fmt.Errorf("broker id and secret are required")
		}

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		b, err := broker.New(cfg.Broker.ID, []byte(cfg.Broker.Secret), cfg.Broker.ServerURL,
			broker.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}))
		if err != nil {
			return err
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		mountBrokerSite(r, b)

		srv := &http.Server{
			Addr:              cfg.Broker.Listen,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		return serve(srv, logger, "broker "+b.ID())
	},
}

func mountBrokerSite(r chi.Router, b *broker.Broker) {
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		proceed, err := b.EnsureAttached(w, req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !proceed {
			return
		}
		user, err := b.GetUser(req.Context(), b.Token(req))
		switch {
		case err == nil:
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			json.NewEncoder(w).Encode(user)
		case errors.Is(err, broker.ErrUnauthenticated):
			http.Redirect(w, req, "/login", http.StatusTemporaryRedirect)
		case errors.Is(err, broker.ErrTransport):
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			passThrough(w, err)
		}
	})

	r.Get("/login", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<form method="post" action="/login">
<input name="username" placeholder="username">
<input name="password" type="password" placeholder="password">
<button>Log in</button>
</form>
`)
	})

	r.Post("/login", func(w http.ResponseWriter, req *http.Request) {
		proceed, err := b.EnsureAttached(w, req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !proceed {
			return
		}
		user, err := b.Login(req.Context(), b.Token(req),
			req.PostFormValue("username"), req.PostFormValue("password"))
		switch {
		case err == nil:
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			json.NewEncoder(w).Encode(user)
		case errors.Is(err, broker.ErrInvalidCredentials):
			http.Error(w, "invalid credentials", http.StatusForbidden)
		case errors.Is(err, broker.ErrTransport):
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			passThrough(w, err)
		}
	})

	r.Post("/logout", func(w http.ResponseWriter, req *http.Request) {
		if !b.Attached(req) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		switch err := b.Logout(req.Context(), b.Token(req)); {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, broker.ErrTransport):
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			passThrough(w, err)
		}
	})
}

// passThrough relays a server status the broker has no local meaning
// for, verbatim.
func passThrough(w http.ResponseWriter, err error) {
	var remote *broker.RemoteError
	if errors.As(err, &remote) {
		http.Error(w, http.StatusText(remote.StatusCode), remote.StatusCode)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func init() {
	rootCmd.AddCommand(brokerCmd)
}
