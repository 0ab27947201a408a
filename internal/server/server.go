package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/bywater/internal/backup"
	"github.com/dukerupert/bywater/internal/handler"
	"github.com/dukerupert/bywater/internal/household"
	"github.com/dukerupert/bywater/internal/middleware"
	"github.com/dukerupert/bywater/internal/push"
	"github.com/dukerupert/bywater/internal/store"
	ws "github.com/dukerupert/bywater/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	householdH    *handler.HouseholdHandler
	childH        *handler.ChildHandler
	taskH         *handler.TaskHandler
	assignmentH   *handler.AssignmentHandler
	candidateH    *handler.CandidateHandler
	rewardH       *handler.RewardHandler
	pushH         *handler.PushHandler
	backupH       *handler.BackupHandler
	households    *store.HouseholdStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, backupCfg backup.Config, pushCfg push.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	householdStore := store.NewHouseholdStore(db)
	childStore := store.NewChildStore(db)
	taskStore := store.NewTaskStore(db)
	assignmentStore := store.NewAssignmentStore(db)
	candidateStore := store.NewCandidateStore(db)
	rewardStore := store.NewRewardStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	backupMgr := backup.NewManager(backupCfg, db, backupStore, logger.With("component", "backup"))

	var pushSvc *push.Service
	var notifier *push.Notifier
	var pushH *handler.PushHandler
	if pushCfg.VAPIDPublicKey != "" && pushCfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(pushCfg.VAPIDPublicKey, pushCfg.VAPIDPrivateKey)
		notifier = push.NewNotifier(pushSvc, pushStore, logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	return &Server{
		db:            db,
		hub:           hub,
		householdH:    handler.NewHouseholdHandler(householdStore, logger.With("component", "household")),
		childH:        handler.NewChildHandler(childStore, hub, logger.With("component", "child")),
		taskH:         handler.NewTaskHandler(taskStore, childStore, assignmentStore, hub, logger.With("component", "task")),
		assignmentH:   handler.NewAssignmentHandler(assignmentStore, taskStore, childStore, hub, notifier, logger.With("component", "assignment")),
		candidateH:    handler.NewCandidateHandler(candidateStore, taskStore, hub, notifier, logger.With("component", "candidate")),
		rewardH:       handler.NewRewardHandler(rewardStore, childStore, hub, logger.With("component", "reward")),
		pushH:         pushH,
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		households:    householdStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// BackupManager returns the backup manager so main can run its schedule loop.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Household bootstrap routes sit outside the household scope
	outerMux.HandleFunc("POST /api/households", s.rateLimitedHandler(s.householdH.Create))
	outerMux.HandleFunc("GET /api/households", s.householdH.List)
	outerMux.HandleFunc("GET /api/households/{id}", s.householdH.Get)
	outerMux.HandleFunc("PUT /api/households/{id}", s.householdH.Rename)

	// Backup routes cover the whole database, not one household
	outerMux.HandleFunc("POST /api/backups", s.backupH.RunNow)
	outerMux.HandleFunc("GET /api/backups", s.backupH.List)
	outerMux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	outerMux.HandleFunc("GET /api/backups/{id}/download", s.backupH.Download)

	// Everything else requires a resolved household
	scopedMux := http.NewServeMux()
	s.registerScopedRoutes(scopedMux)
	outerMux.Handle("/", household.Require(s.households)(scopedMux))

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

func (s *Server) registerScopedRoutes(mux *http.ServeMux) {
	// Children
	mux.HandleFunc("GET /api/children", s.childH.List)
	mux.HandleFunc("POST /api/children", s.childH.Create)
	mux.HandleFunc("PUT /api/children/{id}", s.childH.Update)
	mux.HandleFunc("DELETE /api/children/{id}", s.childH.Delete)
	mux.HandleFunc("GET /api/children/{id}/open-tasks", s.candidateH.OpenForChild)

	// Tasks
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("POST /api/tasks/{id}/generate", s.taskH.Generate)

	// Single-task offers and responses
	mux.HandleFunc("POST /api/tasks/{id}/offer", s.candidateH.Offer)
	mux.HandleFunc("GET /api/tasks/{id}/candidates", s.candidateH.Candidates)
	mux.HandleFunc("GET /api/tasks/{id}/responses", s.candidateH.Responses)
	mux.HandleFunc("POST /api/tasks/{id}/respond", s.candidateH.Respond)
	mux.HandleFunc("DELETE /api/tasks/{id}/responses/{child_id}", s.candidateH.Undo)
	mux.HandleFunc("GET /api/tasks/failed", s.candidateH.Failed)
	mux.HandleFunc("GET /api/tasks/expired", s.candidateH.Expired)

	// Assignments
	mux.HandleFunc("GET /api/assignments", s.assignmentH.List)
	mux.HandleFunc("GET /api/assignments/{id}", s.assignmentH.Get)
	mux.HandleFunc("POST /api/assignments/{id}/complete", s.assignmentH.Complete)
	mux.HandleFunc("POST /api/assignments/{id}/reassign", s.assignmentH.Reassign)
	mux.HandleFunc("DELETE /api/assignments/{id}", s.assignmentH.Delete)
	mux.HandleFunc("GET /api/assignments/{id}/completion", s.assignmentH.GetCompletion)
	mux.HandleFunc("GET /api/completions", s.assignmentH.ListCompletions)

	// Rewards and points
	mux.HandleFunc("POST /api/rewards", s.rewardH.Create)
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.HandleFunc("PUT /api/rewards/{id}", s.rewardH.Update)
	mux.HandleFunc("DELETE /api/rewards/{id}", s.rewardH.Delete)
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)
	mux.HandleFunc("GET /api/points", s.rewardH.Points)

	// Push notifications
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	}

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
