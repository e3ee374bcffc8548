package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"finadvisor/internal/advisor"
	"finadvisor/internal/provider"
)

// Market is the fail-closed market data surface. *gateway.Gateway
// satisfies it.
type Market interface {
	Quote(ctx context.Context, symbol string) (provider.Quote, bool)
	CryptoPrices(ctx context.Context, ids []string) map[string]provider.CryptoEntry
	ForexRate(ctx context.Context, from, to string) (provider.ForexRate, bool)
	Snapshot(ctx context.Context) provider.Snapshot
}

// Advisor produces investment recommendations. *advisor.Engine satisfies it.
type Advisor interface {
	Recommend(ctx context.Context, profile string, amount float64) advisor.Recommendation
}

type Config struct {
	Port    string
	Log     zerolog.Logger
	Market  Market
	Advisor Advisor
	// WriteTimeout bounds writing a response, default 60s. Upstream calls
	// carry their own deadlines inside the gateway.
	WriteTimeout time.Duration
}

type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	market  Market
	advisor Advisor
}

func New(cfg Config) *Server {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		market:  cfg.Market,
		advisor: cfg.Advisor,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoverJSON)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	s.router.Use(middleware.Compress(5))
	s.router.Use(limitBody)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/budget-allocation", s.handleBudgetAllocation)
		r.Post("/investment-advice", s.handleInvestmentAdvice)
		r.Get("/market-data", s.handleMarketData)
		r.Get("/stock-quote/{symbol}", s.handleStockQuote)
		r.Get("/crypto-prices", s.handleCryptoPrices)
		r.Get("/forex-rate", s.handleForexRate)
		r.Get("/financial-tips", s.handleFinancialTips)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// recoverJSON turns handler panics into a JSON 500. middleware.Recoverer
// stays outermost for anything raised by the middleware chain itself.
func (s *Server) recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("handler panic")
			s.writeError(w, http.StatusInternalServerError, "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}
