// Package api exposes the relief ledger over HTTP. Read endpoints are open,
// mutations are authenticated by an Ethereum signature over the request.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vocdoni/aadhaar-relief/event"
	"github.com/vocdoni/aadhaar-relief/ledger"
	"github.com/vocdoni/aadhaar-relief/log"
)

// MaxRequestBodySize bounds the JSON body of the requests, 1 MiB.
const MaxRequestBodySize = 1 << 20

// ActivityFeed returns the most recent ledger events, newest first.
type ActivityFeed interface {
	Recent(limit int) []event.Event
}

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host   string
	Port   int
	Ledger *ledger.Ledger
	// Activity serves the activity endpoint, if not nil.
	Activity ActivityFeed
	// Metrics serves the metrics endpoint, if not nil.
	Metrics prometheus.Gatherer
	// SignatureWindow bounds the age of signed requests.
	SignatureWindow time.Duration
}

// API type represents the API HTTP server.
type API struct {
	router   *chi.Mux
	ledger   *ledger.Ledger
	activity ActivityFeed
	metrics  prometheus.Gatherer
	replay   *replayGuard

	listener net.Listener
	server   *http.Server
}

// New creates a new API instance with the given configuration and starts
// the HTTP server. A zero port picks a free one, see Addr.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Ledger == nil {
		return nil, fmt.Errorf("missing ledger instance")
	}
	a := &API{
		ledger:   conf.Ledger,
		activity: conf.Activity,
		metrics:  conf.Metrics,
		replay:   newReplayGuard(conf.SignatureWindow),
	}

	// Initialize router
	a.initRouter()

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", conf.Host, conf.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s:%d: %w", conf.Host, conf.Port, err)
	}
	a.listener = listener
	a.server = &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("starting API server", "addr", listener.Addr().String())
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw(err, "API server failed")
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// Addr returns the address the server listens on.
func (a *API) Addr() net.Addr {
	return a.listener.Addr()
}

// Stop gracefully shuts down the HTTP server.
func (a *API) Stop(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	if a.metrics != nil {
		log.Infow("register handler", "endpoint", MetricsEndpoint, "method", "GET")
		a.router.Method(http.MethodGet, MetricsEndpoint, promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))
	}
	log.Infow("register handler", "endpoint", OperatorEndpoint, "method", "GET")
	a.router.Get(OperatorEndpoint, a.operator)
	log.Infow("register handler", "endpoint", ActivityEndpoint, "method", "GET")
	a.router.Get(ActivityEndpoint, a.recentActivity)

	// campaigns
	log.Infow("register handler", "endpoint", CampaignsEndpoint, "method", "GET")
	a.router.Get(CampaignsEndpoint, a.campaigns)
	log.Infow("register handler", "endpoint", CampaignsEndpoint, "method", "POST")
	a.router.Post(CampaignsEndpoint, a.registerCampaign)
	log.Infow("register handler", "endpoint", EligibleCampaignsEndpoint, "method", "GET")
	a.router.Get(EligibleCampaignsEndpoint, a.eligibleCampaigns)
	log.Infow("register handler", "endpoint", CampaignsByPincodeEndpoint, "method", "GET")
	a.router.Get(CampaignsByPincodeEndpoint, a.campaignsByPincode)
	log.Infow("register handler", "endpoint", CampaignEndpoint, "method", "GET")
	a.router.Get(CampaignEndpoint, a.campaign)
	log.Infow("register handler", "endpoint", CampaignFundsEndpoint, "method", "POST")
	a.router.Post(CampaignFundsEndpoint, a.addFunds)
	log.Infow("register handler", "endpoint", CampaignStatusEndpoint, "method", "POST")
	a.router.Post(CampaignStatusEndpoint, a.setCampaignStatus)

	// claims
	log.Infow("register handler", "endpoint", CampaignClaimsEndpoint, "method", "GET")
	a.router.Get(CampaignClaimsEndpoint, a.claims)
	log.Infow("register handler", "endpoint", CampaignClaimsEndpoint, "method", "POST")
	a.router.Post(CampaignClaimsEndpoint, a.claimFunds)
	log.Infow("register handler", "endpoint", ClaimStatusEndpoint, "method", "GET")
	a.router.Get(ClaimStatusEndpoint, a.claimStatus)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))
	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrResourceNotFound.Write(w)
	})

	// Register the API handlers
	a.registerHandlers()
}
