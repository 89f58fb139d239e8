package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	mem "herdbook/internal/adapters/storage/memory"
	"herdbook/internal/domain/animals"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func money(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func seed(t *testing.T, repo animals.Repository, a animals.Animal) {
	t.Helper()
	if a.OwnerUserID == "" {
		a.OwnerUserID = "alice"
	}
	if a.Type == "" {
		a.Type = animals.TypeSheep
	}
	if a.Status == "" {
		a.Status = animals.StatusAlive
	}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("seed %s failed: %v", a.ID, err)
	}
}

func fixedNow(y int, m time.Month) func() time.Time {
	return func() time.Time { return time.Date(y, m, 15, 12, 0, 0, 0, time.UTC) }
}

func TestFinancial_TotalsAndProfit(t *testing.T) {
	repo := mem.NewAnimalsRepo()
	svc := NewService(repo)
	svc.now = fixedNow(2024, time.March)

	// comprada en enero por 100, vendida en marzo por 150: ganancia 50
	seed(t, repo, animals.Animal{
		ID: "s1", Status: animals.StatusSold,
		DatePurchased: date(2024, time.January, 10),
		DateSold:      date(2024, time.March, 5),
		PurchaseCost:  money("100.00"),
		SellPrice:     money("150.00"),
	})
	// vendida sin costo registrado: costo 0, ganancia = precio entero
	seed(t, repo, animals.Animal{
		ID: "s2", Status: animals.StatusSold,
		DateSold:  date(2024, time.February, 20),
		SellPrice: money("80.00"),
	})
	// vendida sin precio: no aporta nada
	seed(t, repo, animals.Animal{
		ID: "s3", Status: animals.StatusSold,
		DateSold:     date(2024, time.February, 25),
		PurchaseCost: money("30.00"),
	})
	// fuera de rango: se ignora
	seed(t, repo, animals.Animal{
		ID:            "s4",
		DatePurchased: date(2023, time.June, 1),
		PurchaseCost:  money("999.00"),
	})

	rep, err := svc.Financial(context.Background(), "alice", FinancialInput{
		From: *date(2024, time.January, 1),
		To:   *date(2024, time.March, 31),
	})
	if err != nil {
		t.Fatalf("financial failed: %v", err)
	}

	if !rep.Totals.Purchases.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("purchases = %s, want 100.00", rep.Totals.Purchases)
	}
	if !rep.Totals.Sales.Equal(decimal.RequireFromString("230.00")) {
		t.Errorf("sales = %s, want 230.00", rep.Totals.Sales)
	}
	if !rep.Totals.Profit.Equal(decimal.RequireFromString("130.00")) {
		t.Errorf("profit = %s, want 130.00", rep.Totals.Profit)
	}
}

func TestFinancial_MonthlySeriesHasNoGaps(t *testing.T) {
	repo := mem.NewAnimalsRepo()
	svc := NewService(repo)
	svc.now = fixedNow(2024, time.June)

	// un único movimiento en enero; febrero y marzo quedan en cero
	seed(t, repo, animals.Animal{
		ID:            "p1",
		DatePurchased: date(2024, time.January, 3),
		PurchaseCost:  money("100.00"),
	})

	rep, err := svc.Financial(context.Background(), "alice", FinancialInput{
		From: *date(2024, time.January, 1),
		To:   *date(2024, time.March, 31),
	})
	if err != nil {
		t.Fatalf("financial failed: %v", err)
	}

	// cada mes del rango presente, más el mes corriente, en orden
	want := []string{"2024-01", "2024-02", "2024-03", "2024-06"}
	if len(rep.Months) != len(want) {
		t.Fatalf("months = %v, want %v", rep.Months, want)
	}
	for i, m := range want {
		if rep.Months[i] != m {
			t.Fatalf("months = %v, want %v", rep.Months, want)
		}
	}
	for _, m := range want {
		if rep.Monthly[m] == nil {
			t.Errorf("missing bucket for %s", m)
		}
	}
	if !rep.Monthly["2024-02"].Purchases.IsZero() {
		t.Errorf("empty month should be zero, got %s", rep.Monthly["2024-02"].Purchases)
	}
}

func TestFinancial_ByTypeAndFilter(t *testing.T) {
	repo := mem.NewAnimalsRepo()
	svc := NewService(repo)
	svc.now = fixedNow(2024, time.March)

	seed(t, repo, animals.Animal{
		ID: "sheep1", Type: animals.TypeSheep,
		DatePurchased: date(2024, time.January, 1),
		PurchaseCost:  money("100.00"),
	})
	seed(t, repo, animals.Animal{
		ID: "pig1", Type: animals.TypePig,
		DatePurchased: date(2024, time.January, 2),
		PurchaseCost:  money("40.00"),
	})

	in := FinancialInput{From: *date(2024, time.January, 1), To: *date(2024, time.January, 31)}

	rep, err := svc.Financial(context.Background(), "alice", in)
	if err != nil {
		t.Fatalf("financial failed: %v", err)
	}
	if !rep.ByType[animals.TypeSheep].Purchases.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("sheep purchases wrong: %+v", rep.ByType[animals.TypeSheep])
	}
	if !rep.ByType[animals.TypePig].Purchases.Equal(decimal.RequireFromString("40.00")) {
		t.Errorf("pig purchases wrong: %+v", rep.ByType[animals.TypePig])
	}

	in.Type = animals.TypePig
	rep, err = svc.Financial(context.Background(), "alice", in)
	if err != nil {
		t.Fatalf("filtered financial failed: %v", err)
	}
	if !rep.Totals.Purchases.Equal(decimal.RequireFromString("40.00")) {
		t.Errorf("type filter leaked other species: %s", rep.Totals.Purchases)
	}
}

func TestFinancial_InvalidRange(t *testing.T) {
	svc := NewService(mem.NewAnimalsRepo())

	cases := []FinancialInput{
		{},
		{From: *date(2024, time.March, 1)},
		{From: *date(2024, time.March, 1), To: *date(2024, time.January, 1)},
	}
	for _, in := range cases {
		if _, err := svc.Financial(context.Background(), "alice", in); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("input %+v: expected ErrInvalidRange, got %v", in, err)
		}
	}

	bad := FinancialInput{From: *date(2024, time.January, 1), To: *date(2024, time.March, 1), Type: "Unicorn"}
	if _, err := svc.Financial(context.Background(), "alice", bad); !errors.Is(err, animals.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown type, got %v", err)
	}
}

func TestInventory_ValuationPreference(t *testing.T) {
	repo := mem.NewAnimalsRepo()
	svc := NewService(repo)
	ctx := context.Background()

	// en venta con precio: vale el precio de venta
	seed(t, repo, animals.Animal{
		ID: "a1", ForSale: animals.ForSaleYes,
		PurchaseCost: money("100.00"), SellPrice: money("180.00"),
	})
	// no en venta: vale el costo aunque tenga precio cargado
	seed(t, repo, animals.Animal{
		ID: "a2", ForSale: animals.ForSaleNo,
		PurchaseCost: money("50.00"), SellPrice: money("500.00"),
	})
	// sin montos: vale 0 pero cuenta
	seed(t, repo, animals.Animal{ID: "a3"})
	// muerta: fuera del inventario
	seed(t, repo, animals.Animal{ID: "a4", Status: animals.StatusDead, PurchaseCost: money("70.00")})
	// otra especie, para el orden de líneas
	seed(t, repo, animals.Animal{ID: "a5", Type: animals.TypeCow, PurchaseCost: money("900.00")})

	rep, err := svc.Inventory(ctx, "alice", "")
	if err != nil {
		t.Fatalf("inventory failed: %v", err)
	}

	if rep.TotalCount != 4 {
		t.Errorf("total count = %d, want 4", rep.TotalCount)
	}
	if !rep.TotalValue.Equal(decimal.RequireFromString("1130.00")) {
		t.Errorf("total value = %s, want 1130.00", rep.TotalValue)
	}

	// las líneas salen en orden canónico de especie
	if len(rep.Lines) != 2 || rep.Lines[0].Type != animals.TypeSheep || rep.Lines[1].Type != animals.TypeCow {
		t.Fatalf("unexpected lines: %+v", rep.Lines)
	}
	if rep.Lines[0].Count != 3 || !rep.Lines[0].Value.Equal(decimal.RequireFromString("230.00")) {
		t.Errorf("sheep line wrong: %+v", rep.Lines[0])
	}
	if rep.Lines[1].Count != 1 || !rep.Lines[1].Value.Equal(decimal.RequireFromString("900.00")) {
		t.Errorf("cow line wrong: %+v", rep.Lines[1])
	}

	// filtro por especie
	cow, err := svc.Inventory(ctx, "alice", animals.TypeCow)
	if err != nil {
		t.Fatalf("filtered inventory failed: %v", err)
	}
	if cow.TotalCount != 1 || len(cow.Lines) != 1 || cow.Lines[0].Type != animals.TypeCow {
		t.Errorf("cow filter wrong: %+v", cow)
	}
}
