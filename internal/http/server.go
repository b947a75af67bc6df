package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"paydue/internal/auth"
	"paydue/internal/middleware/ratelimit"
	"paydue/internal/middleware/security"
	"paydue/internal/middleware/trace"
	"paydue/internal/services"
)

type ownerKey struct{}

// Server is the JSON API server. Every /api route past the auth
// endpoints requires a resolved owner.
type Server struct {
	http.Server

	payments  *services.PaymentService
	authn     auth.Authenticator
	localAuth *auth.Local // nil when a hosted provider owns credentials

	limiter      *ratelimit.Limiter
	detector     *security.Detector
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// localAuth enables the register/login endpoints; pass nil for provider auth.
func NewServer(addr string, payments *services.PaymentService, authn auth.Authenticator, localAuth *auth.Local) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		payments:  payments,
		authn:     authn,
		localAuth: localAuth,
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:  security.NewDetector(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	if s.localAuth != nil {
		mux.HandleFunc("POST /api/auth/register", s.handleRegister)
		mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	}
	mux.HandleFunc("POST /api/auth/signout", s.handleSignOut)

	mux.HandleFunc("GET /api/payments", s.withOwner(s.handleListPayments))
	mux.HandleFunc("POST /api/payments", s.withOwner(s.handleCreatePayment))
	mux.HandleFunc("PUT /api/payments/{id}", s.withOwner(s.handleUpdatePayment))
	mux.HandleFunc("DELETE /api/payments/{id}", s.withOwner(s.handleDeletePayment))
	mux.HandleFunc("POST /api/payments/{id}/paid", s.withOwner(s.handleMarkPaid))
	mux.HandleFunc("POST /api/payments/revalidate", s.withOwner(s.handleRevalidate))
	mux.HandleFunc("GET /api/payments/{id}/receipt", s.withOwner(s.handleReceipt))

	mux.HandleFunc("GET /api/dashboard", s.withOwner(s.handleDashboard))
	mux.HandleFunc("GET /api/history", s.withOwner(s.handleHistory))
	mux.HandleFunc("GET /api/history/export.csv", s.withOwner(s.handleHistoryCSV))

	traced := trace.NewMiddleware(s.detector.ExtractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, nil)

	s.Server.Handler = traced.Middleware(headers.Middleware(limited(s.suspicionGate(mux))))

	return s
}

// suspicionGate rejects obviously hostile requests before routing.
func (s *Server) suspicionGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request rejected",
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", s.detector.ExtractClientIP(r))
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withOwner resolves the bearer token to an owner and stores it in the
// request context. The store never sees a request without one.
func (s *Server) withOwner(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := s.authn.CurrentOwner(r.Context(), BearerToken(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, owner)
		next(w, r.WithContext(ctx))
	}
}

func ownerFrom(ctx context.Context) auth.Owner {
	owner, _ := ctx.Value(ownerKey{}).(auth.Owner)
	return owner
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
