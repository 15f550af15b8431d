package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/originpoint/backend/internal/analytics"
	"github.com/originpoint/backend/internal/appsvc"
	"github.com/originpoint/backend/internal/audit"
	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/blobstore"
	"github.com/originpoint/backend/internal/compliance"
	"github.com/originpoint/backend/internal/config"
	"github.com/originpoint/backend/internal/conditions"
	"github.com/originpoint/backend/internal/documents"
	"github.com/originpoint/backend/internal/middleware"
	"github.com/originpoint/backend/internal/obs"
	"github.com/originpoint/backend/internal/wschat"
)

// Server wires every service package into the REST/JSON and WebSocket
// surfaces of spec.md §6, grounded on the teacher's APIServer
// (internal/api/server.go): one struct holding the dependencies, one
// NewRouter building the mux.Router and registering routes.
type Server struct {
	repo        *appsvc.Repository
	hmda        *appsvc.HmdaRepository
	chain       *audit.Chain
	analyticsRe *analytics.Repository
	blobs       *blobstore.Store
	extraction  *documents.ExtractionWorker
	verifier    *authscope.Verifier
	cfg         *config.Config
	metrics     *obs.Metrics
	logger      *slog.Logger
	chat        *wschat.Handler
	thresholds  compliance.Thresholds
}

func NewServer(
	repo *appsvc.Repository,
	hmda *appsvc.HmdaRepository,
	chain *audit.Chain,
	analyticsRe *analytics.Repository,
	blobs *blobstore.Store,
	extraction *documents.ExtractionWorker,
	verifier *authscope.Verifier,
	cfg *config.Config,
	metrics *obs.Metrics,
	logger *slog.Logger,
	chat *wschat.Handler,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		repo:        repo,
		hmda:        hmda,
		chain:       chain,
		analyticsRe: analyticsRe,
		blobs:       blobs,
		extraction:  extraction,
		verifier:    verifier,
		cfg:         cfg,
		metrics:     metrics,
		logger:      logger.With("component", "httpapi"),
		chat:        chat,
		thresholds: compliance.Thresholds{
			ATRQMSafeHarborDTI:    decimalFromFloat(cfg.Compliance.ATRQMSafeHarborDTI),
			ATRQMRebuttableMaxDTI: decimalFromFloat(cfg.Compliance.ATRQMRebuttableMaxDTI),
			LEMaxBusinessDays:     cfg.Compliance.LEMaxBusinessDays,
			CDMinBusinessDays:     cfg.Compliance.CDMinBusinessDays,
		},
	}
}

// NewRouter builds the gorilla/mux router, wiring the same middleware
// stack the teacher registers in APIServer.Start: CORS first, then request
// logging/metrics, then — for everything under /api except the WebSocket
// surface, which authenticates itself via its token= query param —
// authscope.Middleware followed by the rate limiter, so the limiter sees the
// authenticated principal. rdb may be nil, which disables rate limiting
// (internal/middleware.RateLimiter is a Redis-backed optional layer).
func (s *Server) NewRouter(rdb *redis.Client) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.CORS(s.cfg.Server.CORSAllowOrigins))
	r.Use(middleware.RequestLogging(s.logger, s.metrics))

	r.HandleFunc("/api/{role}/chat", s.chat.ServeHTTP)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authscope.Middleware(s.verifier))
	if rdb != nil {
		rl := middleware.NewRateLimiter(rdb, s.cfg.RateLimit)
		api.Use(rl.Middleware)
	}

	api.HandleFunc("/applications/", s.handleCreateApplication).Methods(http.MethodPost)
	api.HandleFunc("/applications/", s.handleListApplications).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}", s.handleGetApplication).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}", s.handlePatchApplication).Methods(http.MethodPatch)
	api.HandleFunc("/applications/{id}/borrowers", s.handleAddBorrower).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/borrowers/{borrower_id}", s.handleRemoveBorrower).Methods(http.MethodDelete)
	api.HandleFunc("/applications/{id}/completeness", s.handleCompleteness).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/status", s.handleStatus).Methods(http.MethodGet)

	api.HandleFunc("/applications/{id}/documents", s.handleUploadDocument).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/documents", s.handleListDocuments).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/documents/{doc_id}", s.handleGetDocument).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/documents/{doc_id}/content", s.handleGetDocumentContent).Methods(http.MethodGet)

	api.HandleFunc("/applications/{id}/conditions", s.handleListConditions).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/conditions", s.handleCreateCondition).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/conditions/{cid}/respond", s.handleRespondCondition).Methods(http.MethodPost)

	api.HandleFunc("/applications/{id}/decisions", s.handleListDecisions).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/decisions", s.handleCreateDecision).Methods(http.MethodPost)
	api.HandleFunc("/decisions/{id}", s.handleGetDecision).Methods(http.MethodGet)

	api.HandleFunc("/hmda/collect", s.handleHmdaCollect).Methods(http.MethodPost)

	api.HandleFunc("/admin/audit", s.handleAdminAudit).Methods(http.MethodGet)
	api.HandleFunc("/audit/verify", s.handleAuditVerify).Methods(http.MethodGet)
	api.HandleFunc("/audit/export", s.handleAuditExport).Methods(http.MethodGet)

	api.HandleFunc("/analytics/pipeline", s.handlePipelineAnalytics).Methods(http.MethodGet)
	api.HandleFunc("/analytics/denial-trends", s.handleDenialTrends).Methods(http.MethodGet)

	return r
}
