package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"acre/core"
	"acre/crypto"
	"acre/observability"
)

const (
	moduleName = "vault"
	tracerName = "acre/vaultd"
)

var (
	errTooManyRequests = errors.New("too many requests")
	errUnknownPreview  = errors.New("preview operation must be one of deposit, mint, withdraw, redeem")
)

// Server exposes a read-only HTTP view of a node.
type Server struct {
	node    *core.Node
	limiter *RateLimiter
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New constructs the server. limiter may be nil.
func New(node *core.Node, limiter *RateLimiter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{node: node, limiter: limiter, logger: logger, tracer: otel.Tracer(tracerName)}
}

// SetTracer overrides the request tracer. Passing nil restores the global
// provider's tracer.
func (s *Server) SetTracer(tracer trace.Tracer) {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	s.tracer = tracer
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(sr chi.Router) {
		sr.Use(s.limiter.Middleware(moduleName))
		sr.Get("/vault", s.observe("vault", s.handleVault))
		sr.Get("/vault/accounts/{address}", s.observe("account", s.handleAccount))
		sr.Get("/vault/preview/{op}/{amount}", s.observe("preview", s.handlePreview))
		sr.Get("/allocator", s.observe("allocator", s.handleAllocator))
	})
	return r
}

func (s *Server) observe(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := s.tracer.Start(r.Context(), "vaultd."+method, trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", chi.RouteContext(r.Context()).RoutePattern()),
		))
		defer span.End()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(recorder, r.WithContext(ctx))
		span.SetAttributes(attribute.Int("http.status_code", recorder.status))
		if recorder.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(recorder.status))
		}
		observability.ModuleMetrics().Observe(moduleName, method, recorder.status, time.Since(start))
		s.logger.Debug("request served",
			slog.String("method", method),
			slog.String("path", r.URL.Path),
			slog.Int("status", recorder.status))
	}
}

type vaultResponse struct {
	Address              crypto.Address `json:"address"`
	AssetSymbol          string         `json:"asset_symbol"`
	ShareSymbol          string         `json:"share_symbol"`
	TotalAssets          string         `json:"total_assets"`
	TotalShares          string         `json:"total_shares"`
	IdleAssets           string         `json:"idle_assets"`
	Owner                crypto.Address `json:"owner"`
	PendingOwner         crypto.Address `json:"pending_owner"`
	PauseAdmin           crypto.Address `json:"pause_admin"`
	Treasury             crypto.Address `json:"treasury"`
	Dispatcher           crypto.Address `json:"dispatcher"`
	MinimumDepositAmount string         `json:"minimum_deposit_amount"`
	EntryFeeBps          uint64         `json:"entry_fee_bps"`
	ExitFeeBps           uint64         `json:"exit_fee_bps"`
	Paused               bool           `json:"paused"`
}

func (s *Server) handleVault(w http.ResponseWriter, r *http.Request) {
	var resp vaultResponse
	_ = s.node.View(func() error {
		v := s.node.Vault()
		cfg := v.Config()
		resp = vaultResponse{
			Address:              v.Address(),
			AssetSymbol:          cfg.AssetSymbol,
			ShareSymbol:          cfg.ShareSymbol,
			TotalAssets:          v.TotalAssets().Dec(),
			TotalShares:          v.TotalShares().Dec(),
			IdleAssets:           v.IdleAssets().Dec(),
			Owner:                v.Owner(),
			PendingOwner:         v.PendingOwner(),
			PauseAdmin:           v.PauseAdmin(),
			Treasury:             v.Treasury(),
			Dispatcher:           v.Dispatcher(),
			MinimumDepositAmount: cfg.MinimumDepositAmount.Dec(),
			EntryFeeBps:          cfg.EntryFeeBps,
			ExitFeeBps:           cfg.ExitFeeBps,
			Paused:               v.Paused(),
		}
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}

type accountResponse struct {
	Address      crypto.Address `json:"address"`
	Shares       string         `json:"shares"`
	Assets       string         `json:"assets"`
	AssetBalance string         `json:"asset_balance"`
	MaxDeposit   string         `json:"max_deposit"`
	MaxWithdraw  string         `json:"max_withdraw"`
	MaxRedeem    string         `json:"max_redeem"`
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.DecodeAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Errorf("invalid address: %w", err))
		return
	}
	var resp accountResponse
	err = s.node.View(func() error {
		v := s.node.Vault()
		assets, err := v.AssetsBalanceOf(addr)
		if err != nil {
			return err
		}
		maxWithdraw, err := v.MaxWithdraw(addr)
		if err != nil {
			return err
		}
		resp = accountResponse{
			Address:      addr,
			Shares:       v.SharesOf(addr).Dec(),
			Assets:       assets.Dec(),
			AssetBalance: s.node.Asset().BalanceOf(addr).Dec(),
			MaxDeposit:   v.MaxDeposit(addr).Dec(),
			MaxWithdraw:  maxWithdraw.Dec(),
			MaxRedeem:    v.MaxRedeem(addr).Dec(),
		}
		return nil
	})
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type previewResponse struct {
	Operation string `json:"operation"`
	Input     string `json:"input"`
	Output    string `json:"output"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	op := strings.ToLower(chi.URLParam(r, "op"))
	amount, err := uint256.FromDecimal(chi.URLParam(r, "amount"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Errorf("invalid amount: %w", err))
		return
	}
	var out *uint256.Int
	err = s.node.View(func() (err error) {
		v := s.node.Vault()
		switch op {
		case "deposit":
			out, err = v.PreviewDeposit(amount)
		case "mint":
			out, err = v.PreviewMint(amount)
		case "withdraw":
			out, err = v.PreviewWithdraw(amount)
		case "redeem":
			out, err = v.PreviewRedeem(amount)
		default:
			err = errUnknownPreview
		}
		return err
	})
	switch {
	case errors.Is(err, errUnknownPreview):
		writeJSONError(w, http.StatusNotFound, err)
		return
	case err != nil:
		writeJSONError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{Operation: op, Input: amount.Dec(), Output: out.Dec()})
}

type allocatorResponse struct {
	Address        crypto.Address   `json:"address"`
	Owner          crypto.Address   `json:"owner"`
	PendingOwner   crypto.Address   `json:"pending_owner"`
	Withdrawer     crypto.Address   `json:"withdrawer"`
	Maintainers    []crypto.Address `json:"maintainers"`
	DepositBalance string           `json:"deposit_balance"`
	VenuePosition  string           `json:"venue_position"`
}

func (s *Server) handleAllocator(w http.ResponseWriter, r *http.Request) {
	var resp allocatorResponse
	_ = s.node.View(func() error {
		a := s.node.Allocator()
		resp = allocatorResponse{
			Address:        a.Address(),
			Owner:          a.Owner(),
			PendingOwner:   a.PendingOwner(),
			Withdrawer:     a.Withdrawer(),
			Maintainers:    a.Maintainers(),
			DepositBalance: a.DepositBalance().Dec(),
			VenuePosition:  s.node.Venue().DepositOf(a.Address()).Dec(),
		}
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
