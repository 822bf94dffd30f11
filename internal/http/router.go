package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"votify/internal/domain/poll"
	"votify/internal/domain/recovery"
	"votify/internal/domain/stats"
	"votify/internal/domain/user"
	"votify/internal/domain/vote"
	"votify/internal/events"
	jwtpkg "votify/internal/platform/jwt"
	"votify/internal/worker"
)

// Deps wires the router. DB may be nil, /ready then reports unavailable.
type Deps struct {
	Users    *user.Service
	Polls    *poll.Service
	Votes    *vote.Service
	Stats    *stats.Service
	Recovery *recovery.Service
	JWT      *jwtpkg.Manager
	Hub      *events.Hub
	VoteCh   chan<- worker.VoteEvent
	DB       *sql.DB

	// VoteRate and VoteBurst configure the per-IP vote limiter; zero uses defaults.
	VoteRate  rate.Limit
	VoteBurst int
}

type Handler struct {
	userSvc  *user.Service
	pollSvc  *poll.Service
	voteSvc  *vote.Service
	statsSvc *stats.Service
	resetSvc *recovery.Service
	jwtMgr   *jwtpkg.Manager
	hub      *events.Hub
	voteCh   chan<- worker.VoteEvent
	db       *sql.DB
}

func NewRouter(d Deps) http.Handler {
	h := &Handler{
		userSvc:  d.Users,
		pollSvc:  d.Polls,
		voteSvc:  d.Votes,
		statsSvc: d.Stats,
		resetSvc: d.Recovery,
		jwtMgr:   d.JWT,
		hub:      d.Hub,
		voteCh:   d.VoteCh,
		db:       d.DB,
	}

	voteRate, voteBurst := d.VoteRate, d.VoteBurst
	if voteRate <= 0 {
		voteRate = rate.Every(time.Minute / 10)
	}
	if voteBurst <= 0 {
		voteBurst = 3
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", h.handleReady)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		// long-lived, so it stays outside the request timeout
		r.With(AuthMiddleware(d.JWT)).Get("/events", h.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(60 * time.Second))

			r.Post("/auth/register", h.handleRegister)
			r.Post("/auth/login", h.handleLogin)
			r.Group(func(r chi.Router) {
				r.Use(RateLimit(rate.Every(time.Minute/10), 10))

				r.Post("/auth/password/request", h.handleResetRequest)
				r.Post("/auth/password/verify", h.handleResetVerify)
				r.Post("/auth/password/reset", h.handleResetPassword)
				r.Post("/auth/password/resend", h.handleResetResend)
			})

			r.Group(func(r chi.Router) {
				r.Use(AuthMiddleware(d.JWT))

				r.Get("/me", h.handleGetMe)
				r.Patch("/me", h.handleUpdateMe)

				r.Get("/polls", h.handleListPolls)
				r.Get("/polls/{id}", h.handleGetPoll)
				r.Get("/polls/{id}/options", h.handlePollOptions)
				r.With(RateLimit(voteRate, voteBurst)).Post("/polls/{id}/vote", h.handleVote)
				r.Get("/polls/{id}/results", h.handlePollResults)

				r.Group(func(r chi.Router) {
					r.Use(RequireRole(user.RoleAdmin))
					r.Get("/admin/polls", h.handleAdminListPolls)
					r.Post("/polls", h.handleCreatePoll)
					r.Patch("/polls/{id}", h.handleUpdatePoll)
					r.Patch("/polls/{id}/status", h.handleUpdatePollStatus)
					r.Delete("/polls/{id}", h.handleDeletePoll)

					r.Get("/dashboard/totals", h.handleDashboardTotals)
					r.Get("/dashboard/monthly", h.handleDashboardMonthly)
					r.Get("/dashboard/status", h.handleDashboardStatus)
					r.Get("/dashboard/engagement", h.handleDashboardEngagement)

					r.Get("/users", h.handleListUsers)
					r.Patch("/users/{id}/role", h.handleUpdateUserRole)
					r.Patch("/users/{id}/deactivate", h.handleDeactivateUser)
				})
			})
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	idStr := chi.URLParam(r, name)
	return strconv.ParseInt(idStr, 10, 64)
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not ready",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
