package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/krishilink/krishilink/internal/auth"
	"github.com/krishilink/krishilink/internal/catalog"
	"github.com/krishilink/krishilink/internal/insights"
	"github.com/krishilink/krishilink/internal/ledger"
	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/settlement"
	"github.com/krishilink/krishilink/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	Members           *members.Service
	AuthHandler       *auth.Handler
	MemberHandler     *members.Handler
	CatalogHandler    *catalog.Handler
	LedgerHandler     *ledger.Handler
	SettlementHandler *settlement.Handler
	InsightsHandler   *insights.Handler
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Members:        params.Members,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/members", params.MemberHandler.MountRoutes)
	r.Route("/products", params.CatalogHandler.MountRoutes)
	r.Route("/purchase", params.LedgerHandler.MountPurchaseRoutes)
	r.Route("/inventory", params.LedgerHandler.MountInventoryRoutes)
	r.Route("/transactions", func(r chi.Router) {
		params.LedgerHandler.MountTransactionRoutes(r)
		params.SettlementHandler.MountTransactionRoutes(r)
	})
	r.Route("/commissions", params.SettlementHandler.MountCommissionRoutes)
	r.Route("/payouts", params.SettlementHandler.MountPayoutRoutes)
	r.Route("/insights", params.InsightsHandler.MountRoutes)

	return r
}
