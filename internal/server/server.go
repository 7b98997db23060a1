package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dadam-app/dadam/internal/auth"
	"github.com/dadam-app/dadam/internal/daily"
	"github.com/dadam-app/dadam/internal/genai"
	"github.com/dadam-app/dadam/internal/handler"
	"github.com/dadam-app/dadam/internal/middleware"
	"github.com/dadam-app/dadam/internal/push"
	"github.com/dadam-app/dadam/internal/store"
	ws "github.com/dadam-app/dadam/internal/websocket"
)

// Config carries the process-level settings the server needs beyond the
// database handle.
type Config struct {
	JWTSecret       string
	Location        *time.Location
	GenAI           genai.Config
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	authH         *handler.AuthHandler
	dailyH        *handler.DailyHandler
	commentH      *handler.CommentHandler
	scheduleH     *handler.ScheduleHandler
	pushH         *handler.PushHandler
	userStore     *store.UserStore
	tokens        *auth.TokenManager
	rateLimiter   *middleware.RateLimiter
	pushScheduler *push.Scheduler
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	itemStore := store.NewDailyItemStore(db)
	partStore := store.NewParticipationStore(db)
	commentStore := store.NewCommentStore(db)
	scheduleStore := store.NewScheduleStore(db)
	pushStore := store.NewPushStore(db)

	tokens := auth.NewTokenManager(cfg.JWTSecret)

	generator := daily.NewGenerator(genai.NewClient(cfg.GenAI), logger)
	dailySvc := daily.NewService(itemStore, partStore, userStore, commentStore, generator, cfg.Location, logger)

	// A solo author has no family room; FamilyRoom falls back to their
	// private room so their own clients still hear the event.
	notify := func(familyCode string, userID int64, event string, id int64) {
		entity, action, _ := strings.Cut(event, ".")
		hub.Broadcast(ws.FamilyRoom(familyCode, userID), ws.NewMessage(entity, action, id, nil))
	}
	dailySvc.SetNotifier(notify)

	// Push delivery only runs when VAPID keys are configured; the subscribe
	// routes still work so clients can register ahead of time.
	scheduleH := handler.NewScheduleHandler(scheduleStore, cfg.Location, logger.With("component", "schedule"))
	scheduleH.SetNotifier(notify)

	pushSvc := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	var pushSched *push.Scheduler
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushSched = push.NewScheduler(pushSvc, pushStore, scheduleStore, cfg.Location, logger)
	}

	return &Server{
		db:            db,
		hub:           hub,
		authH:         handler.NewAuthHandler(userStore, tokens, logger.With("component", "auth")),
		dailyH:        handler.NewDailyHandler(dailySvc, logger.With("component", "daily")),
		commentH:      handler.NewCommentHandler(commentStore, partStore, userStore, logger.With("component", "comment")),
		scheduleH:     scheduleH,
		pushH:         handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push")),
		userStore:     userStore,
		tokens:        tokens,
		rateLimiter:   middleware.NewRateLimiter(),
		pushScheduler: pushSched,
		logger:        logger,
	}
}

// PushScheduler returns the reminder scheduler, or nil when push delivery is
// not configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/v1/auth/signup", s.rateLimitedHandler(s.authH.Signup))
	outerMux.HandleFunc("POST /api/v1/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens, s.userStore)
	outerMux.Handle("/api/v1/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Profile and family
	mux.HandleFunc("GET /api/v1/users/me", s.authH.Me)
	mux.HandleFunc("PATCH /api/v1/users/me", s.authH.UpdateProfile)
	mux.HandleFunc("POST /api/v1/users/me/family-code", s.authH.FamilyCode)

	// Daily question and answers
	mux.HandleFunc("GET /api/v1/questions/today", s.dailyH.QuestionToday)
	mux.HandleFunc("GET /api/v1/questions/by-date", s.dailyH.QuestionByDate)
	mux.HandleFunc("POST /api/v1/questions/{id}/answers", s.dailyH.AnswerCreate)
	mux.HandleFunc("GET /api/v1/questions/{id}/answers", s.dailyH.AnswerList)
	mux.HandleFunc("PATCH /api/v1/answers/{id}", s.dailyH.AnswerUpdate)
	mux.HandleFunc("DELETE /api/v1/answers/{id}", s.dailyH.AnswerDelete)

	// Comments on answers
	mux.HandleFunc("POST /api/v1/answers/{id}/comments", s.commentH.Create)
	mux.HandleFunc("GET /api/v1/answers/{id}/comments", s.commentH.List)

	// Balance game and slang quiz
	mux.HandleFunc("GET /api/v1/balance/today", s.dailyH.BalanceToday)
	mux.HandleFunc("POST /api/v1/balance/vote", s.dailyH.BalanceVote)
	mux.HandleFunc("GET /api/v1/quiz/today", s.dailyH.QuizToday)
	mux.HandleFunc("POST /api/v1/quiz/vote", s.dailyH.QuizVote)

	// Schedules
	mux.HandleFunc("POST /api/v1/schedules", s.scheduleH.Create)
	mux.HandleFunc("GET /api/v1/schedules", s.scheduleH.List)
	mux.HandleFunc("GET /api/v1/schedules/upcoming", s.scheduleH.Upcoming)
	mux.HandleFunc("PUT /api/v1/schedules/{id}", s.scheduleH.Update)
	mux.HandleFunc("DELETE /api/v1/schedules/{id}", s.scheduleH.Delete)

	// Push subscriptions
	mux.HandleFunc("POST /api/v1/push/subscriptions", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/v1/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/v1/push/vapid-key", s.pushH.VAPIDKey)

	// Realtime family feed
	mux.Handle("GET /api/v1/ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
