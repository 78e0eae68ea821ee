package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/alejandrodnm/flipscan/internal/analysis"
	"github.com/alejandrodnm/flipscan/internal/domain"
	"github.com/alejandrodnm/flipscan/internal/scanner"
)

// handleScan fetches and analyses one market.
//
//	GET /api/v1/analysis/{region}/{type}?buy_fee_rate=&sell_fee_rate=&sales_tax_rate=
//	    &minimum_net_margin_percent=&horizon_days=&target_volume=
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var errs domain.ValidationErrors
	region := parseID(chi.URLParam(r, "region"), "path.region", &errs)
	typeID := parseID(chi.URLParam(r, "type"), "path.type", &errs)
	params := s.paramsFromQuery(r, &errs)
	if len(errs) > 0 {
		render.Render(w, r, errorResponse(errs))
		return
	}

	report, err := s.scanner.Scan(r.Context(), scanner.Request{
		Key:    domain.MarketKey{RegionID: region, TypeID: typeID},
		Params: params,
	})
	if err != nil {
		slog.Warn("scan request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"region", region, "type_id", typeID, "err", err)
		render.Render(w, r, errorResponse(err))
		return
	}
	render.JSON(w, r, report)
}

// analyzeRequest is the body of POST /api/v1/analyze.
type analyzeRequest struct {
	History []domain.HistoryPoint      `json:"history"`
	Orders  []domain.OrderBookEntry    `json:"orders"`
	Params  *domain.AnalysisParameters `json:"params"`
}

func (a *analyzeRequest) Bind(*http.Request) error { return nil }

// handleAnalyze runs the analysis on caller-supplied inputs, without fetching.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, badRequest("invalid JSON body: "+err.Error()))
		return
	}

	params := s.defaults
	if req.Params != nil {
		params = *req.Params
	}

	res, err := analysis.Analyze(req.History, req.Orders, params)
	if err != nil {
		render.Render(w, r, errorResponse(err))
		return
	}
	render.JSON(w, r, res)
}

// paramsFromQuery overlays query overrides on the server defaults.
func (s *Server) paramsFromQuery(r *http.Request, errs *domain.ValidationErrors) domain.AnalysisParameters {
	p := s.defaults
	q := r.URL.Query()

	floats := []struct {
		name string
		dst  *float64
	}{
		{"buy_fee_rate", &p.BuyFeeRate},
		{"sell_fee_rate", &p.SellFeeRate},
		{"sales_tax_rate", &p.SalesTaxRate},
		{"minimum_net_margin_percent", &p.MinimumNetMarginPercent},
	}
	for _, f := range floats {
		if v := q.Get(f.name); v != "" {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				*errs = append(*errs, &domain.ValidationError{Field: "query." + f.name, Reason: "must be a number"})
				continue
			}
			*f.dst = n
		}
	}

	if v := q.Get("horizon_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, &domain.ValidationError{Field: "query.horizon_days", Reason: "must be an integer"})
		} else {
			p.HorizonDays = n
		}
	}
	if v := q.Get("target_volume"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			*errs = append(*errs, &domain.ValidationError{Field: "query.target_volume", Reason: "must be an integer"})
		} else {
			p = p.WithTargetVolume(n)
		}
	}
	return p
}

func parseID(s, field string, errs *domain.ValidationErrors) int32 {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || n <= 0 {
		*errs = append(*errs, &domain.ValidationError{Field: field, Reason: "must be a positive integer"})
		return 0
	}
	return int32(n)
}
