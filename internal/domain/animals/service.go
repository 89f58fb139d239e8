package animals

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	Type   string
	Breed  string
	Number string
	Name   string
	Gender string
	Color  string
	Status string

	DamID  *string
	SireID *string

	DOB           *time.Time
	DOD           *time.Time
	DatePurchased *time.Time
	DateSold      *time.Time

	PurchaseCost decimal.NullDecimal
	SellPrice    decimal.NullDecimal

	ForSale           string
	PendingCompletion bool

	Notes        string
	Meds         string
	PurchaseInfo string
	SellInfo     string
	RegNumber    string
	RegName      string

	Image string
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (Animal, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return Animal{}, ErrInvalidInput
	}

	ve := &ValidationError{}

	typ := Type(strings.TrimSpace(in.Type))
	switch {
	case typ == "":
		ve.add("type", "required")
	case !ValidType(typ):
		ve.add("type", "unknown animal type")
	}

	if strings.TrimSpace(in.Number) == "" {
		ve.add("number", "required")
	}
	if strings.TrimSpace(in.Name) == "" {
		ve.add("name", "required")
	}

	gender := Gender(strings.TrimSpace(in.Gender))
	switch {
	case gender == "":
		ve.add("gender", "required")
	case !ValidGender(gender):
		ve.add("gender", "must be Male or Female")
	}

	status := Status(strings.TrimSpace(in.Status))
	switch {
	case status == "":
		ve.add("status", "required")
	case !ValidStatus(status):
		ve.add("status", "unknown status")
	}

	forSale := ForSale(strings.TrimSpace(in.ForSale))
	if forSale == "" {
		forSale = ForSaleNo
	} else if !ValidForSale(forSale) {
		ve.add("for_sale", "must be No, Yes or Has Been Sold")
	}

	if err := ve.orNil(); err != nil {
		return Animal{}, err
	}

	now := s.now()
	a := Animal{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,

		Type:   typ,
		Breed:  strings.TrimSpace(in.Breed),
		Number: strings.TrimSpace(in.Number),
		Name:   strings.TrimSpace(in.Name),
		Gender: gender,
		Color:  strings.TrimSpace(in.Color),
		Status: status,

		DamID:  trimRef(in.DamID),
		SireID: trimRef(in.SireID),

		DOB:           in.DOB,
		DOD:           in.DOD,
		DatePurchased: in.DatePurchased,
		DateSold:      in.DateSold,

		PurchaseCost: in.PurchaseCost,
		SellPrice:    in.SellPrice,

		ForSale:           syncForSale(forSale, status),
		PendingCompletion: in.PendingCompletion,

		Notes:        strings.TrimSpace(in.Notes),
		Meds:         strings.TrimSpace(in.Meds),
		PurchaseInfo: strings.TrimSpace(in.PurchaseInfo),
		SellInfo:     strings.TrimSpace(in.SellInfo),
		RegNumber:    strings.TrimSpace(in.RegNumber),
		RegName:      strings.TrimSpace(in.RegName),

		Image: strings.TrimSpace(in.Image),

		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return Animal{}, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, ownerUserID, id string) (Animal, error) {
	if strings.TrimSpace(ownerUserID) == "" || strings.TrimSpace(id) == "" {
		return Animal{}, ErrNotFound
	}
	return s.repo.GetByOwner(ctx, ownerUserID, id)
}

func (s *Service) List(ctx context.Context, ownerUserID string, f ListFilter) (Page, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return Page{}, ErrInvalidInput
	}
	if f.Type != "" && !ValidType(f.Type) {
		return Page{}, &ValidationError{Fields: []FieldError{{Field: "type", Message: "unknown animal type"}}}
	}
	f.Page = f.PageOrFirst()

	items, total, err := s.repo.List(ctx, ownerUserID, f)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Items:      items,
		Page:       f.Page,
		Total:      total,
		TotalPages: TotalPages(total),
	}, nil
}

// PatchRef distingue "campo no enviado" de "null explícito" en un PATCH.
type PatchRef struct {
	Set   bool
	Value *string
}

// PatchDate ídem para fechas.
type PatchDate struct {
	Set   bool
	Value *time.Time
}

// PatchMoney ídem para montos.
type PatchMoney struct {
	Set   bool
	Value decimal.NullDecimal
}

type UpdateInput struct {
	Type    *string
	Breed   *string
	Number  *string
	Name    *string
	Gender  *string
	Color   *string
	Status  *string
	ForSale *string

	PendingCompletion *bool

	DamID  PatchRef
	SireID PatchRef

	DOB           PatchDate
	DOD           PatchDate
	DatePurchased PatchDate
	DateSold      PatchDate

	PurchaseCost PatchMoney
	SellPrice    PatchMoney

	Notes        *string
	Meds         *string
	PurchaseInfo *string
	SellInfo     *string
	RegNumber    *string
	RegName      *string
}

func (s *Service) Update(ctx context.Context, ownerUserID, id string, in UpdateInput) (Animal, error) {
	a, err := s.Get(ctx, ownerUserID, id)
	if err != nil {
		return Animal{}, err
	}

	ve := &ValidationError{}

	if in.Type != nil {
		typ := Type(strings.TrimSpace(*in.Type))
		switch {
		case typ == "":
			ve.add("type", "required")
		case !ValidType(typ):
			ve.add("type", "unknown animal type")
		default:
			a.Type = typ
		}
	}
	if in.Number != nil {
		if v := strings.TrimSpace(*in.Number); v == "" {
			ve.add("number", "required")
		} else {
			a.Number = v
		}
	}
	if in.Name != nil {
		if v := strings.TrimSpace(*in.Name); v == "" {
			ve.add("name", "required")
		} else {
			a.Name = v
		}
	}
	if in.Gender != nil {
		g := Gender(strings.TrimSpace(*in.Gender))
		switch {
		case g == "":
			ve.add("gender", "required")
		case !ValidGender(g):
			ve.add("gender", "must be Male or Female")
		default:
			a.Gender = g
		}
	}
	if in.Status != nil {
		st := Status(strings.TrimSpace(*in.Status))
		switch {
		case st == "":
			ve.add("status", "required")
		case !ValidStatus(st):
			ve.add("status", "unknown status")
		default:
			a.Status = st
		}
	}
	if in.ForSale != nil {
		fs := ForSale(strings.TrimSpace(*in.ForSale))
		if !ValidForSale(fs) {
			ve.add("for_sale", "must be No, Yes or Has Been Sold")
		} else {
			a.ForSale = fs
		}
	}

	if in.Breed != nil {
		a.Breed = strings.TrimSpace(*in.Breed)
	}
	if in.Color != nil {
		a.Color = strings.TrimSpace(*in.Color)
	}
	if in.PendingCompletion != nil {
		a.PendingCompletion = *in.PendingCompletion
	}

	if in.DamID.Set {
		a.DamID = trimRef(in.DamID.Value)
		if a.DamID != nil && *a.DamID == a.ID {
			ve.add("dam_id", "animal cannot be its own dam")
		}
	}
	if in.SireID.Set {
		a.SireID = trimRef(in.SireID.Value)
		if a.SireID != nil && *a.SireID == a.ID {
			ve.add("sire_id", "animal cannot be its own sire")
		}
	}

	if in.DOB.Set {
		a.DOB = in.DOB.Value
	}
	if in.DOD.Set {
		a.DOD = in.DOD.Value
	}
	if in.DatePurchased.Set {
		a.DatePurchased = in.DatePurchased.Value
	}
	if in.DateSold.Set {
		a.DateSold = in.DateSold.Value
	}

	if in.PurchaseCost.Set {
		a.PurchaseCost = in.PurchaseCost.Value
	}
	if in.SellPrice.Set {
		a.SellPrice = in.SellPrice.Value
	}

	if in.Notes != nil {
		a.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.Meds != nil {
		a.Meds = strings.TrimSpace(*in.Meds)
	}
	if in.PurchaseInfo != nil {
		a.PurchaseInfo = strings.TrimSpace(*in.PurchaseInfo)
	}
	if in.SellInfo != nil {
		a.SellInfo = strings.TrimSpace(*in.SellInfo)
	}
	if in.RegNumber != nil {
		a.RegNumber = strings.TrimSpace(*in.RegNumber)
	}
	if in.RegName != nil {
		a.RegName = strings.TrimSpace(*in.RegName)
	}

	if err := ve.orNil(); err != nil {
		return Animal{}, err
	}

	if err := s.checkParentCycle(ctx, ownerUserID, a); err != nil {
		return Animal{}, err
	}

	a.ForSale = syncForSale(a.ForSale, a.Status)
	a.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, a); err != nil {
		return Animal{}, err
	}
	return a, nil
}

func (s *Service) Delete(ctx context.Context, ownerUserID, id string) error {
	if strings.TrimSpace(ownerUserID) == "" || strings.TrimSpace(id) == "" {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, ownerUserID, id)
}

// SetImage guarda el filename ya resuelto por el servicio de blobs.
// Es un solo UPDATE: o queda el filename nuevo o queda el anterior,
// nunca un registro a medias.
func (s *Service) SetImage(ctx context.Context, ownerUserID, id, filename string) (Animal, error) {
	if strings.TrimSpace(ownerUserID) == "" || strings.TrimSpace(id) == "" {
		return Animal{}, ErrNotFound
	}
	if err := s.repo.UpdateImage(ctx, ownerUserID, id, strings.TrimSpace(filename)); err != nil {
		return Animal{}, err
	}
	return s.repo.GetByOwner(ctx, ownerUserID, id)
}

// checkParentCycle rechaza ciclos cortos: el padre declarado no puede tener
// al propio animal como dam o sire. Ciclos más largos quedan inofensivos
// porque el resolver corta a 2 generaciones, pero el de 1 paso sí se
// rechaza en escritura.
func (s *Service) checkParentCycle(ctx context.Context, ownerUserID string, a Animal) error {
	ids := make([]string, 0, 2)
	if a.DamID != nil {
		ids = append(ids, *a.DamID)
	}
	if a.SireID != nil {
		ids = append(ids, *a.SireID)
	}
	if len(ids) == 0 {
		return nil
	}

	parents, err := s.repo.FindByIDs(ctx, ownerUserID, ids)
	if err != nil {
		return err
	}

	ve := &ValidationError{}
	check := func(field string, parentID *string) {
		if parentID == nil {
			return
		}
		p, ok := parents[*parentID]
		if !ok {
			// referencia colgante o de otro owner: se tolera, el resolver la muestra como desconocida
			return
		}
		if (p.DamID != nil && *p.DamID == a.ID) || (p.SireID != nil && *p.SireID == a.ID) {
			ve.add(field, "would create a lineage cycle")
		}
	}
	check("dam_id", a.DamID)
	check("sire_id", a.SireID)

	return ve.orNil()
}

// syncForSale mantiene el marcador de venta coherente con el status:
// un animal Sold con for_sale=Yes pasa a "Has Been Sold", y un status
// "For Sale" enciende el marcador.
func syncForSale(f ForSale, st Status) ForSale {
	switch {
	case st == StatusSold && f == ForSaleYes:
		return ForSaleSold
	case st == StatusForSale && f == ForSaleNo:
		return ForSaleYes
	default:
		return f
	}
}

func trimRef(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
