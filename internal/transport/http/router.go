package http

import (
	"net/http"

	"go.uber.org/zap"
)

// Services are the application services the router dispatches to.
type Services struct {
	Proposer   TransactionProposer
	Validator  TransactionValidator
	Cleaner    PendingCleaner
	Tickets    TicketUser
	Events     AdminEventService
	Categories AdminCategoryService
}

type RouterConfig struct {
	Init        InitParams
	JWTSecret   []byte
	CORSOrigins []string
	Health      []HealthCheck
	// Metrics is served on /metrics when set.
	Metrics  http.Handler
	Observer RequestObserver
	Log      *zap.Logger
}

// NewRouter wires every route behind CORS, request metrics and logging.
// Operator routes and ticket use require a bearer token.
func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	auth := func(h http.Handler) http.Handler { return RequireJWT(cfg.JWTSecret, h) }

	mux := http.NewServeMux()
	mux.Handle("/health", HandleHealth(cfg.Health...))
	mux.Handle("/init", HandleInit(cfg.Init))
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	mux.Handle("/transactions/create-templates", HandleCreateTemplates(svc.Proposer))
	mux.Handle("/transactions/buy-ticket", HandleBuyTicket(svc.Proposer))
	mux.Handle("/transactions/sign-ticket", HandleSignTicket(svc.Proposer))
	mux.Handle("/transactions/", HandleValidate(svc.Validator))
	mux.Handle("/tickets/", auth(HandleUseTicket(svc.Tickets)))

	mux.Handle("/admin/events", auth(HandleAdminEvents(svc.Events)))
	mux.Handle("/admin/events/", auth(HandleAdminCategories(svc.Categories)))
	mux.Handle("/admin/categories/", auth(HandleLinkTemplate(svc.Categories)))
	mux.Handle("/admin/pending/cleanup", auth(HandleCleanup(svc.Cleaner)))
	mux.HandleFunc("/", writeNoRoute)

	return RequestLogger(RequestMetrics(CORS(cfg.CORSOrigins, mux), cfg.Observer), cfg.Log)
}

// writeNoRoute answers a path no handler claims, naming what was asked for.
func writeNoRoute(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound, "no route for "+r.Method+" "+r.URL.Path)
}
