package emulator

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config represents the emulator's fixed identities.
type Config struct {
	ClientID         string // empty accepts any client
	ClientSecret     string
	TenantID         string
	OrganisationName string
	OptomateUsername string // empty disables Basic auth
	OptomatePassword string
}

// Server holds the emulator handlers.
type Server struct {
	store  *Store
	tokens *TokenManager
	config Config
	logger *slog.Logger
}

// NewServer creates a new Server.
func NewServer(s *Store, config Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if config.OrganisationName == "" {
		config.OrganisationName = "Demo Optical Pty Ltd"
	}
	return &Server{
		store:  s,
		tokens: NewTokenManager(s),
		config: config,
		logger: logger,
	}
}

// Tokens returns the token manager.
func (s *Server) Tokens() *TokenManager {
	return s.tokens
}

// Router returns the emulator's HTTP handler:
//
//	POST /connect/token                     refresh_token grant
//	GET  /api.xro/2.0/Organisation          bearer + Xero-tenant-id
//	GET  /api.xro/2.0/ManualJournals
//	POST /api.xro/2.0/ManualJournals
//	GET  /optomate/PatientInvoices          Basic auth, $filter
//	GET  /optomate/PatientReceipts
//	GET  /health
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.requestLogger)

	r.Post("/connect/token", s.handleToken)

	r.Route("/api.xro/2.0", func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Get("/Organisation", s.handleOrganisation)
		r.Get("/ManualJournals", s.handleListJournals)
		r.Post("/ManualJournals", s.handleCreateJournals)
		r.Get("/ManualJournals/{id}", s.handleGetJournal)
	})

	r.Route("/optomate", func(r chi.Router) {
		r.Use(s.basicAuth)
		r.Get("/PatientInvoices", s.handlePOS(BucketInvoices))
		r.Get("/PatientReceipts", s.handlePOS(BucketReceipts))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type contextKey string

const contextKeyTenant contextKey = "tenant"

// bearerAuth validates the access token and the tenant header.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "Missing bearer token")
			return
		}

		valid, err := s.tokens.ValidateAccessToken(token)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "ServerError", "Failed to validate token")
			return
		}
		if !valid {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "TokenExpired: token expired or invalid")
			return
		}

		tenant := r.Header.Get("Xero-tenant-id")
		if s.config.TenantID != "" && tenant != s.config.TenantID {
			writeProblem(w, http.StatusForbidden, "Forbidden", "AuthenticationUnsuccessful: unknown tenant")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyTenant, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.OptomateUsername != "" {
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(s.config.OptomateUsername)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pass), []byte(s.config.OptomatePassword)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="optomate"`)
				writeODataError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// tokenResponse represents the OAuth2 token response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "Failed to parse form")
		return
	}

	if r.PostForm.Get("grant_type") != "refresh_token" {
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "Only refresh_token is supported")
		return
	}

	clientID, clientSecret := r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	if id, secret, ok := r.BasicAuth(); ok {
		clientID, clientSecret = id, secret
	}
	if s.config.ClientID != "" && (clientID != s.config.ClientID || clientSecret != s.config.ClientSecret) {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client", "Unknown client credentials")
		return
	}

	ok, err := s.tokens.RedeemRefreshToken(r.PostForm.Get("refresh_token"))
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error", "Failed to check refresh token")
		return
	}
	if !ok {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "Refresh token is invalid, expired or already used")
		return
	}

	access, err := s.tokens.IssueAccessToken()
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error", "Failed to generate access token")
		return
	}
	refresh, err := s.tokens.IssueRefreshToken()
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error", "Failed to generate refresh token")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    tokenTTL,
	})
}

func (s *Server) handleOrganisation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"Status": "OK",
		"Organisations": []map[string]any{{
			"OrganisationID": tenantFrom(r),
			"Name":           s.config.OrganisationName,
			"BaseCurrency":   "AUD",
			"CountryCode":    "AU",
		}},
	})
}

type manualJournalsEnvelope struct {
	ManualJournals []ManualJournal `json:"ManualJournals"`
}

func (s *Server) handleCreateJournals(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req manualJournalsEnvelope
	if err := dec.Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "ValidationException", "Failed to parse request body: "+err.Error())
		return
	}
	if len(req.ManualJournals) == 0 {
		writeProblem(w, http.StatusBadRequest, "ValidationException", "No ManualJournals in request")
		return
	}

	created := make([]ManualJournal, 0, len(req.ManualJournals))
	for _, mj := range req.ManualJournals {
		mj.TenantID = tenantFrom(r)
		stored, err := s.store.CreateManualJournal(mj)
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeProblem(w, http.StatusBadRequest, "ValidationException", verr.Message)
			return
		}
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "ServerError", "Failed to save manual journal")
			return
		}
		s.logger.Info("manual journal created", "id", stored.ManualJournalID, "date", stored.Date, "lines", len(stored.JournalLines))
		created = append(created, *stored)
	}

	writeJSON(w, http.StatusOK, manualJournalsEnvelope{ManualJournals: created})
}

func (s *Server) handleListJournals(w http.ResponseWriter, r *http.Request) {
	journals, err := s.store.ListManualJournals(tenantFrom(r))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "ServerError", "Failed to list manual journals")
		return
	}
	writeJSON(w, http.StatusOK, manualJournalsEnvelope{ManualJournals: journals})
}

func (s *Server) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	mj, err := s.store.GetManualJournal(chi.URLParam(r, "id"))
	if errors.Is(err, ErrNotFound) || (err == nil && mj.TenantID != tenantFrom(r)) {
		writeProblem(w, http.StatusNotFound, "NotFound", "Manual journal not found")
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "ServerError", "Failed to get manual journal")
		return
	}
	writeJSON(w, http.StatusOK, manualJournalsEnvelope{ManualJournals: []ManualJournal{*mj}})
}

func (s *Server) handlePOS(bucket string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseFilter(r.URL.Query().Get("$filter"))
		if err != nil {
			writeODataError(w, http.StatusBadRequest, err.Error())
			return
		}

		records, err := s.store.queryRecords(bucket, q)
		if err != nil {
			writeODataError(w, http.StatusInternalServerError, "failed to query records")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"value": records})
	}
}

func tenantFrom(r *http.Request) string {
	tenant, _ := r.Context().Value(contextKeyTenant).(string)
	return tenant
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem writes an accounting API error body.
func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeJSON(w, status, map[string]any{"Title": title, "Detail": detail, "Status": status})
}

// writeOAuthError writes an identity server error body.
func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{"error": code, "error_description": description})
}

// writeODataError writes an OData error body.
func writeODataError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]string{"message": message}})
}
