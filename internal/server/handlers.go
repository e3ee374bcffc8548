package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"finadvisor/internal/advisor"
	"finadvisor/internal/config"
)

const defaultRiskProfile = "moderate"

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

type budgetRequest struct {
	MonthlyIncome float64 `json:"monthly_income"`
}

func (s *Server) handleBudgetAllocation(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.MonthlyIncome <= 0 {
		s.writeError(w, http.StatusBadRequest, "Invalid monthly income")
		return
	}
	s.writeJSON(w, http.StatusOK, advisor.Budget(req.MonthlyIncome))
}

type adviceRequest struct {
	InvestmentAmount float64 `json:"investment_amount"`
	RiskProfile      *string `json:"risk_profile"`
}

func (s *Server) handleInvestmentAdvice(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.InvestmentAmount <= 0 {
		s.writeError(w, http.StatusBadRequest, "Invalid investment amount")
		return
	}
	profile := defaultRiskProfile
	if req.RiskProfile != nil {
		profile = *req.RiskProfile
	}
	s.writeJSON(w, http.StatusOK, s.advisor.Recommend(r.Context(), profile, req.InvestmentAmount))
}

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.market.Snapshot(r.Context()))
}

func (s *Server) handleStockQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	q, ok := s.market.Quote(r.Context(), symbol)
	if !ok {
		s.writeError(w, http.StatusNotFound, "Stock not found or API limit reached")
		return
	}
	s.writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleCryptoPrices(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if coins := r.URL.Query().Get("coins"); coins != "" {
		ids = config.SplitCSV(coins)
	}
	s.writeJSON(w, http.StatusOK, s.market.CryptoPrices(r.Context(), ids))
}

func (s *Server) handleForexRate(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	if from == "" {
		from = "USD"
	}
	to := r.URL.Query().Get("to")
	if to == "" {
		to = "INR"
	}
	rate, ok := s.market.ForexRate(r.Context(), from, to)
	if !ok {
		s.writeError(w, http.StatusNotFound, "Forex rate not found or API limit reached")
		return
	}
	s.writeJSON(w, http.StatusOK, rate)
}

func (s *Server) handleFinancialTips(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]advisor.Tip{"tips": advisor.FinancialTips()})
}
