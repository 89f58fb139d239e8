package animals_test

import (
	"context"
	"errors"
	"testing"

	mem "herdbook/internal/adapters/storage/memory"
	"herdbook/internal/domain/animals"

	"github.com/shopspring/decimal"
)

func newSvc() *animals.Service {
	return animals.NewService(mem.NewAnimalsRepo())
}

func mustCreate(t *testing.T, svc *animals.Service, owner string, in animals.CreateInput) animals.Animal {
	t.Helper()
	a, err := svc.Create(context.Background(), owner, in)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return a
}

func baseInput() animals.CreateInput {
	return animals.CreateInput{
		Type:   "Sheep",
		Number: "S-001",
		Name:   "Luna",
		Gender: "Female",
		Status: "Alive",
	}
}

func TestCreate_CollectsAllValidationErrors(t *testing.T) {
	svc := newSvc()

	_, err := svc.Create(context.Background(), "alice", animals.CreateInput{
		Type:   "Dragon",
		Gender: "Both",
	})
	ve, ok := animals.AsValidation(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	// type, number, name, gender, status: todos juntos, no fail-fast
	want := map[string]bool{"type": false, "number": false, "name": false, "gender": false, "status": false}
	for _, f := range ve.Fields {
		if _, known := want[f.Field]; !known {
			t.Errorf("unexpected field in validation error: %s", f.Field)
			continue
		}
		want[f.Field] = true
	}
	for field, seen := range want {
		if !seen {
			t.Errorf("missing validation error for %s", field)
		}
	}
}

func TestCreate_DefaultsAndTimestamps(t *testing.T) {
	svc := newSvc()

	a := mustCreate(t, svc, "alice", baseInput())
	if a.ID == "" {
		t.Fatal("expected assigned id")
	}
	if a.ForSale != animals.ForSaleNo {
		t.Errorf("expected for_sale default No, got %q", a.ForSale)
	}
	if a.CreatedAt.IsZero() || !a.CreatedAt.Equal(a.UpdatedAt) {
		t.Errorf("expected server-side created_at == updated_at, got %v / %v", a.CreatedAt, a.UpdatedAt)
	}
}

func TestCreate_RequiresOwner(t *testing.T) {
	svc := newSvc()
	if _, err := svc.Create(context.Background(), "  ", baseInput()); !errors.Is(err, animals.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGet_OwnerIsolation(t *testing.T) {
	svc := newSvc()
	a := mustCreate(t, svc, "bob", baseInput())

	// el id existe pero es de bob: para alice es NotFound, nunca el registro
	if _, err := svc.Get(context.Background(), "alice", a.ID); !errors.Is(err, animals.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign id, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "bob", a.ID); err != nil {
		t.Fatalf("owner get failed: %v", err)
	}
}

func TestUpdate_PatchSemantics(t *testing.T) {
	svc := newSvc()
	ctx := context.Background()

	in := baseInput()
	cost := decimal.RequireFromString("100.00")
	in.PurchaseCost = decimal.NullDecimal{Decimal: cost, Valid: true}
	a := mustCreate(t, svc, "alice", in)

	name := "Estrella"
	updated, err := svc.Update(ctx, "alice", a.ID, animals.UpdateInput{
		Name: &name,
		// purch_cost: null explícito => limpiar
		PurchaseCost: animals.PatchMoney{Set: true},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if updated.Name != "Estrella" {
		t.Errorf("name not updated: %q", updated.Name)
	}
	if updated.Number != "S-001" {
		t.Errorf("untouched field changed: %q", updated.Number)
	}
	if updated.PurchaseCost.Valid {
		t.Errorf("expected purch_cost cleared, got %v", updated.PurchaseCost.Decimal)
	}
	if !updated.UpdatedAt.After(a.UpdatedAt) && !updated.UpdatedAt.Equal(a.UpdatedAt) {
		t.Errorf("updated_at went backwards")
	}
}

func TestUpdate_RejectsSelfParenting(t *testing.T) {
	svc := newSvc()
	a := mustCreate(t, svc, "alice", baseInput())

	_, err := svc.Update(context.Background(), "alice", a.ID, animals.UpdateInput{
		DamID: animals.PatchRef{Set: true, Value: &a.ID},
	})
	ve, ok := animals.AsValidation(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Fields) != 1 || ve.Fields[0].Field != "dam_id" {
		t.Fatalf("expected dam_id error, got %+v", ve.Fields)
	}
}

func TestUpdate_RejectsShortLineageCycle(t *testing.T) {
	svc := newSvc()
	ctx := context.Background()

	a := mustCreate(t, svc, "alice", baseInput())

	inB := baseInput()
	inB.Number = "S-002"
	inB.Name = "Bruma"
	b := mustCreate(t, svc, "alice", inB)

	// B tiene a A como dam
	if _, err := svc.Update(ctx, "alice", b.ID, animals.UpdateInput{
		DamID: animals.PatchRef{Set: true, Value: &a.ID},
	}); err != nil {
		t.Fatalf("setting dam failed: %v", err)
	}

	// A no puede tener a B como dam: ciclo de 1 paso
	_, err := svc.Update(ctx, "alice", a.ID, animals.UpdateInput{
		DamID: animals.PatchRef{Set: true, Value: &b.ID},
	})
	if _, ok := animals.AsValidation(err); !ok {
		t.Fatalf("expected ValidationError for cycle, got %v", err)
	}
}

func TestUpdate_ToleratesDanglingParent(t *testing.T) {
	svc := newSvc()
	ghost := "no-such-id"

	a := mustCreate(t, svc, "alice", baseInput())
	updated, err := svc.Update(context.Background(), "alice", a.ID, animals.UpdateInput{
		SireID: animals.PatchRef{Set: true, Value: &ghost},
	})
	if err != nil {
		t.Fatalf("dangling parent should be tolerated on write: %v", err)
	}
	if updated.SireID == nil || *updated.SireID != ghost {
		t.Fatalf("sire_id not stored: %v", updated.SireID)
	}
}

func TestUpdate_SyncsForSaleWithStatus(t *testing.T) {
	svc := newSvc()
	ctx := context.Background()

	in := baseInput()
	in.ForSale = "Yes"
	in.Status = "For Sale"
	a := mustCreate(t, svc, "alice", in)

	sold := "Sold"
	updated, err := svc.Update(ctx, "alice", a.ID, animals.UpdateInput{Status: &sold})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.ForSale != animals.ForSaleSold {
		t.Errorf("expected for_sale to follow Sold status, got %q", updated.ForSale)
	}
}

func TestDelete_DoesNotCascadeToOffspring(t *testing.T) {
	svc := newSvc()
	ctx := context.Background()

	dam := mustCreate(t, svc, "alice", baseInput())

	inC := baseInput()
	inC.Number = "S-003"
	inC.Name = "Cría"
	inC.DamID = &dam.ID
	child := mustCreate(t, svc, "alice", inC)

	if err := svc.Delete(ctx, "alice", dam.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	got, err := svc.Get(ctx, "alice", child.ID)
	if err != nil {
		t.Fatalf("child should survive parent delete: %v", err)
	}
	if got.DamID == nil || *got.DamID != dam.ID {
		t.Errorf("dangling dam_id should be kept as-is, got %v", got.DamID)
	}
}

func TestList_Pagination(t *testing.T) {
	svc := newSvc()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		in := baseInput()
		in.Number = string(rune('A' + i))
		in.Name = "Oveja " + string(rune('A'+i))
		mustCreate(t, svc, "alice", in)
	}

	p, err := svc.List(ctx, "alice", animals.ListFilter{Page: 3})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if p.Total != 25 || p.TotalPages != 3 {
		t.Fatalf("expected total=25 pages=3, got total=%d pages=%d", p.Total, p.TotalPages)
	}
	if len(p.Items) != 5 {
		t.Fatalf("expected 5 items on last page, got %d", len(p.Items))
	}

	// página 1 sin datos: lista vacía, no error
	empty, err := svc.List(ctx, "nobody", animals.ListFilter{Page: 1})
	if err != nil {
		t.Fatalf("empty list failed: %v", err)
	}
	if len(empty.Items) != 0 || empty.Total != 0 || empty.TotalPages != 0 {
		t.Fatalf("expected empty page, got %+v", empty)
	}
}

func TestListFilter_SortWhitelist(t *testing.T) {
	cases := []struct {
		sort     string
		desc     bool
		wantCol  string
		wantDesc bool
	}{
		{"name", true, "name", true},
		{"number", false, "number", false},
		{"status", true, "status", true},
		{"", true, "name", false},
		{"created_at", true, "name", false},
		{"name; DROP TABLE animals;--", true, "name", false},
	}

	for _, c := range cases {
		col, desc := animals.ListFilter{Sort: c.sort, Desc: c.desc}.Normalize()
		if col != c.wantCol || desc != c.wantDesc {
			t.Errorf("Normalize(%q, desc=%v) = (%q, %v), want (%q, %v)",
				c.sort, c.desc, col, desc, c.wantCol, c.wantDesc)
		}
	}
}

func TestStatusBadge_IsTotal(t *testing.T) {
	cases := map[animals.Status]string{
		animals.StatusAlive:     "success",
		animals.StatusDead:      "danger",
		animals.StatusSold:      "info",
		animals.StatusForSale:   "warning",
		animals.StatusHarvested: "dark",
		animals.Status("???"):   "secondary",
		animals.Status(""):      "secondary",
	}
	for st, want := range cases {
		if got := st.Badge(); got != want {
			t.Errorf("Badge(%q) = %q, want %q", st, got, want)
		}
	}
}
