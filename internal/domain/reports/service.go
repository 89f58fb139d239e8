package reports

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"herdbook/internal/domain/animals"

	"github.com/shopspring/decimal"
)

var ErrInvalidRange = errors.New("invalid date range")

type Service struct {
	repo animals.Repository
	now  func() time.Time
}

func NewService(repo animals.Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Totals acumula compras, ventas y ganancia. Todo decimal: con floats la
// suma de muchas transacciones chicas va acumulando deriva.
type Totals struct {
	Purchases decimal.Decimal
	Sales     decimal.Decimal
	Profit    decimal.Decimal
}

// FinancialReport es el reporte financiero de un rango de fechas.
// Monthly no tiene huecos: cada mes del rango aparece aunque esté en cero
// (más el mes corriente si cae fuera), para que los charts nunca vean
// meses faltantes.
type FinancialReport struct {
	From time.Time
	To   time.Time

	Totals Totals

	ByType  map[animals.Type]*Totals
	Monthly map[string]*Totals // clave YYYY-MM
	Months  []string           // claves ordenadas
}

type FinancialInput struct {
	From time.Time
	To   time.Time
	Type animals.Type // vacío = todas
}

// Financial arma el reporte de compras/ventas/ganancia del rango [From, To].
// Compra cuenta si date_purchased cae en el rango y purch_cost no es null.
// Venta cuenta si date_sold cae en el rango y sell_price no es null; la
// ganancia de esa venta es sell_price - purch_cost (costo faltante = 0).
func (s *Service) Financial(ctx context.Context, ownerUserID string, in FinancialInput) (*FinancialReport, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return nil, animals.ErrInvalidInput
	}
	if in.From.IsZero() || in.To.IsZero() || in.To.Before(in.From) {
		return nil, ErrInvalidRange
	}
	if in.Type != "" && !animals.ValidType(in.Type) {
		return nil, animals.ErrInvalidInput
	}

	purchases, err := s.repo.SelectPurchases(ctx, ownerUserID, in.From, in.To, in.Type)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.SelectSales(ctx, ownerUserID, in.From, in.To, in.Type)
	if err != nil {
		return nil, err
	}

	rep := &FinancialReport{
		From:    in.From,
		To:      in.To,
		ByType:  map[animals.Type]*Totals{},
		Monthly: map[string]*Totals{},
	}
	rep.seedMonths(in.From, in.To, s.now())

	for _, a := range purchases {
		if !a.PurchaseCost.Valid || a.DatePurchased == nil {
			continue
		}
		cost := a.PurchaseCost.Decimal
		rep.Totals.Purchases = rep.Totals.Purchases.Add(cost)

		bt := rep.byType(a.Type)
		bt.Purchases = bt.Purchases.Add(cost)

		m := rep.month(monthKey(*a.DatePurchased))
		m.Purchases = m.Purchases.Add(cost)
	}

	for _, a := range sales {
		if !a.SellPrice.Valid || a.DateSold == nil {
			continue
		}
		price := a.SellPrice.Decimal
		cost := decimal.Zero
		if a.PurchaseCost.Valid {
			cost = a.PurchaseCost.Decimal
		}
		profit := price.Sub(cost)

		rep.Totals.Sales = rep.Totals.Sales.Add(price)
		rep.Totals.Profit = rep.Totals.Profit.Add(profit)

		bt := rep.byType(a.Type)
		bt.Sales = bt.Sales.Add(price)
		bt.Profit = bt.Profit.Add(profit)

		m := rep.month(monthKey(*a.DateSold))
		m.Sales = m.Sales.Add(price)
		m.Profit = m.Profit.Add(profit)
	}

	return rep, nil
}

// InventoryLine es el resumen de una especie: cuántos vivos y cuánto valen.
// El valor por animal: sell_price si está en venta y tiene precio,
// si no purch_cost, si no 0.
type InventoryLine struct {
	Type  animals.Type
	Count int
	Value decimal.Decimal
}

type InventoryReport struct {
	Lines      []InventoryLine // en orden canónico de especie
	TotalCount int
	TotalValue decimal.Decimal
}

func (s *Service) Inventory(ctx context.Context, ownerUserID string, typ animals.Type) (*InventoryReport, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return nil, animals.ErrInvalidInput
	}
	if typ != "" && !animals.ValidType(typ) {
		return nil, animals.ErrInvalidInput
	}

	alive, err := s.repo.ListAlive(ctx, ownerUserID, typ)
	if err != nil {
		return nil, err
	}

	byType := map[animals.Type]*InventoryLine{}
	for _, a := range alive {
		line, ok := byType[a.Type]
		if !ok {
			line = &InventoryLine{Type: a.Type}
			byType[a.Type] = line
		}
		line.Count++
		line.Value = line.Value.Add(animalValue(a))
	}

	rep := &InventoryReport{Lines: make([]InventoryLine, 0, len(byType))}
	for _, t := range animals.Types() {
		line, ok := byType[t]
		if !ok {
			continue
		}
		rep.Lines = append(rep.Lines, *line)
		rep.TotalCount += line.Count
		rep.TotalValue = rep.TotalValue.Add(line.Value)
	}
	return rep, nil
}

func animalValue(a animals.Animal) decimal.Decimal {
	if a.ForSale == animals.ForSaleYes && a.SellPrice.Valid {
		return a.SellPrice.Decimal
	}
	if a.PurchaseCost.Valid {
		return a.PurchaseCost.Decimal
	}
	return decimal.Zero
}

func (r *FinancialReport) byType(t animals.Type) *Totals {
	bt, ok := r.ByType[t]
	if !ok {
		bt = &Totals{}
		r.ByType[t] = bt
	}
	return bt
}

func (r *FinancialReport) month(key string) *Totals {
	m, ok := r.Monthly[key]
	if !ok {
		m = &Totals{}
		r.Monthly[key] = m
		r.Months = append(r.Months, key)
		sort.Strings(r.Months)
	}
	return m
}

// seedMonths pre-carga cada mes calendario del rango, más el mes corriente
// si queda fuera, así la serie sale sin huecos aunque no haya movimientos.
func (r *FinancialReport) seedMonths(from, to, now time.Time) {
	cur := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(end) {
		r.month(monthKey(cur))
		cur = cur.AddDate(0, 1, 0)
	}
	r.month(monthKey(now))
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}
