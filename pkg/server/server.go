// Package server exposes the HTTP API: tariff and solar configuration,
// consumption history, disaggregation, and advice.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"

	"github.com/gridsage/gridsage/pkg/advice"
	"github.com/gridsage/gridsage/pkg/common"
	"github.com/gridsage/gridsage/pkg/consumption"
	"github.com/gridsage/gridsage/pkg/disagg"
	"github.com/gridsage/gridsage/pkg/grid"
	"github.com/gridsage/gridsage/pkg/log"
	"github.com/gridsage/gridsage/pkg/provider"
	"github.com/gridsage/gridsage/pkg/storage"
)

const authTokenCookie = "auth_token"

type contextKey string

const (
	userContextKey           contextKey = "user"
	userToRegisterContextKey contextKey = "userToRegister"
)

// tokenVerifier is a function that validates an OIDC ID Token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)

// Server handles the HTTP API. It orchestrates interactions between the
// consumption provider, storage, and the analysis services.
type Server struct {
	providers   *provider.Map
	storage     storage.Database
	consumption *consumption.Service
	disagg      *disagg.Service
	advice      *advice.Service

	listenAddr string
	httpServer *http.Server

	adminEmails   []string
	oidcAudiences map[string]string
	oidcVerifiers map[string]tokenVerifier
	bypassAuth    bool
	encryptionKey string
	serverName    string
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(p *provider.Map, db storage.Database) *Server {
	srv := &Server{
		providers:   p,
		storage:     db,
		consumption: consumption.NewService(db),
		disagg:      disagg.NewService(db),
		serverName:  "gridsage",
	}
	srv.advice = advice.NewService(db, srv.consumption)

	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	adminEmails := lflag.String("admin-emails", "", "comma-delimited list of admin email addresses")
	oidcAudiences := map[string]string{}
	lflag.JSON(&oidcAudiences, "oidc-audiences", oidcAudiences, "JSON map of provider (google/apple) to audience/client ID")
	bypassAuth := lflag.Bool("bypass-auth", false, "Disable authentication (local development only)")
	encryptionKey := lflag.RequiredString("credentials-encryption-key", "Key for encrypting credentials")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.adminEmails = splitEmails(*adminEmails)
		if len(oidcAudiences) > 0 {
			srv.oidcAudiences = make(map[string]string, len(oidcAudiences))
			srv.oidcVerifiers = make(map[string]tokenVerifier, len(oidcAudiences))
			for n, a := range oidcAudiences {
				var issuer string
				switch n {
				case "google":
					issuer = "https://accounts.google.com"
				case "apple":
					issuer = "https://appleid.apple.com"
				default:
					log.Ctx(context.Background()).Error("unsupported oidc audience client", slog.String("client", n))
					os.Exit(1)
				}
				// OIDC discovery and key fetches go out with our user agent
				oidcCtx := oidc.ClientContext(context.Background(), common.HTTPClient(10*time.Second))
				p, err := oidc.NewProvider(oidcCtx, issuer)
				if err != nil {
					log.Ctx(context.Background()).Error("failed to initialize OIDC provider", slog.String("client", n), slog.Any("error", err))
					os.Exit(1)
				}
				srv.oidcVerifiers[n] = p.Verifier(&oidc.Config{ClientID: a}).Verify
				srv.oidcAudiences[n] = a
			}
		}

		if len(*encryptionKey) != 32 {
			log.Ctx(context.Background()).Error("credentials-encryption-key must be 32 characters")
			os.Exit(1)
		}
		srv.encryptionKey = *encryptionKey

		srv.bypassAuth = *bypassAuth
		if srv.bypassAuth && len(srv.oidcAudiences) > 0 {
			log.Ctx(context.Background()).Error("bypass-auth cannot be combined with oidc-audiences")
			os.Exit(1)
		}
	})

	return srv
}

func splitEmails(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/tariff", s.handleGetTariff)
	apiMux.HandleFunc("PUT /api/tariff", s.handlePutTariff)
	apiMux.HandleFunc("GET /api/tariff/intervals", s.handleGetTariffIntervals)
	apiMux.HandleFunc("GET /api/solar/config", s.handleGetSolarConfig)
	apiMux.HandleFunc("PUT /api/solar/config", s.handlePutSolarConfig)
	apiMux.HandleFunc("GET /api/solar/forecast", s.handleGetSolarForecast)
	apiMux.HandleFunc("GET /api/consumption", s.handleGetConsumption)
	apiMux.HandleFunc("POST /api/consumption/sync", s.handleSyncConsumption)
	apiMux.HandleFunc("GET /api/disaggregation", s.handleGetDisaggregation)
	apiMux.HandleFunc("GET /api/advice", s.handleGetAdvice)
	apiMux.HandleFunc("GET /api/vehicles", s.handleListVehicles)
	apiMux.HandleFunc("POST /api/vehicles", s.handleUpsertVehicle)
	apiMux.HandleFunc("DELETE /api/vehicles/{id}", s.handleDeleteVehicle)
	apiMux.HandleFunc("GET /api/batteries", s.handleListBatteries)
	apiMux.HandleFunc("POST /api/batteries", s.handleUpsertBattery)
	apiMux.HandleFunc("DELETE /api/batteries/{id}", s.handleDeleteBattery)
	apiMux.HandleFunc("GET /api/settings", s.handleGetSettings)
	apiMux.HandleFunc("POST /api/settings", s.handleUpdateSettings)
	apiMux.HandleFunc("GET /api/auth/status", s.handleAuthStatus)
	apiMux.HandleFunc("POST /api/auth/login", s.handleLogin)
	apiMux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authMiddleware(apiMux))
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

// Run starts the HTTP server and blocks until the context is canceled or an
// error occurs. It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capture server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

// dateParam parses a ?date=YYYY-MM-DD query parameter in the server's local
// time, defaulting to today.
func dateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return grid.Midnight(time.Now()), nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s (want YYYY-MM-DD): %w", name, err)
	}
	return t, nil
}
