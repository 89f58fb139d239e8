package reports

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"herdbook/internal/domain/animals"
	"herdbook/internal/middleware"
	"herdbook/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, log logger.Logger) {
	r.Route("/reports", func(rr chi.Router) {
		rr.Get("/financial", financialHandler(svc, log))
		rr.Get("/inventory", inventoryHandler(svc, log))
	})
}

type totalsJSON struct {
	Purchases string `json:"purchases"`
	Sales     string `json:"sales"`
	Profit    string `json:"profit"`
}

type monthJSON struct {
	Month string `json:"month"` // YYYY-MM
	totalsJSON
}

type typeTotalsJSON struct {
	Type string `json:"type"`
	totalsJSON
}

type financialResponse struct {
	From string `json:"from"`
	To   string `json:"to"`

	TotalPurchases string `json:"total_purchases"`
	TotalSales     string `json:"total_sales"`
	TotalProfit    string `json:"total_profit"`

	ByType  []typeTotalsJSON `json:"by_type"`
	Monthly []monthJSON      `json:"monthly"`
}

type inventoryLineJSON struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
	Value string `json:"value"`
}

type inventoryResponse struct {
	Lines      []inventoryLineJSON `json:"lines"`
	TotalCount int                 `json:"total_count"`
	TotalValue string              `json:"total_value"`
}

func financialHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := middleware.OwnerID(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		q := r.URL.Query()
		from, err := time.Parse("2006-01-02", strings.TrimSpace(q.Get("start")))
		if err != nil {
			http.Error(w, "start must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		to, err := time.Parse("2006-01-02", strings.TrimSpace(q.Get("end")))
		if err != nil {
			http.Error(w, "end must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		rep, err := svc.Financial(r.Context(), ownerID, FinancialInput{
			From: from,
			To:   to,
			Type: animals.Type(strings.TrimSpace(q.Get("type"))),
		})
		if err != nil {
			writeReportError(w, log, err)
			return
		}

		out := financialResponse{
			From: rep.From.Format("2006-01-02"),
			To:   rep.To.Format("2006-01-02"),

			TotalPurchases: rep.Totals.Purchases.StringFixed(2),
			TotalSales:     rep.Totals.Sales.StringFixed(2),
			TotalProfit:    rep.Totals.Profit.StringFixed(2),

			ByType:  make([]typeTotalsJSON, 0, len(rep.ByType)),
			Monthly: make([]monthJSON, 0, len(rep.Months)),
		}

		for _, t := range animals.Types() {
			bt, ok := rep.ByType[t]
			if !ok {
				continue
			}
			out.ByType = append(out.ByType, typeTotalsJSON{
				Type:       string(t),
				totalsJSON: toTotalsJSON(*bt),
			})
		}
		for _, key := range rep.Months {
			out.Monthly = append(out.Monthly, monthJSON{
				Month:      key,
				totalsJSON: toTotalsJSON(*rep.Monthly[key]),
			})
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func inventoryHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := middleware.OwnerID(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		typ := animals.Type(strings.TrimSpace(r.URL.Query().Get("type")))
		rep, err := svc.Inventory(r.Context(), ownerID, typ)
		if err != nil {
			writeReportError(w, log, err)
			return
		}

		out := inventoryResponse{
			Lines:      make([]inventoryLineJSON, 0, len(rep.Lines)),
			TotalCount: rep.TotalCount,
			TotalValue: rep.TotalValue.StringFixed(2),
		}
		for _, line := range rep.Lines {
			out.Lines = append(out.Lines, inventoryLineJSON{
				Type:  string(line.Type),
				Count: line.Count,
				Value: line.Value.StringFixed(2),
			})
		}

		writeJSON(w, http.StatusOK, out)
	}
}

// writeReportError: un error de storage aborta el reporte entero; nunca
// se devuelven resultados parciales ni el detalle del error.
func writeReportError(w http.ResponseWriter, log logger.Logger, err error) {
	switch {
	case errors.Is(err, ErrInvalidRange), errors.Is(err, animals.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error("report storage error", map[string]any{"err": err.Error()})
		http.Error(w, "report unavailable, try again later", http.StatusInternalServerError)
	}
}

func toTotalsJSON(t Totals) totalsJSON {
	return totalsJSON{
		Purchases: t.Purchases.StringFixed(2),
		Sales:     t.Sales.StringFixed(2),
		Profit:    t.Profit.StringFixed(2),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
