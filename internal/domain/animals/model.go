package animals

import (
	"time"

	"github.com/shopspring/decimal"
)

// Animal representa un registro del hato de un usuario.
// DamID/SireID apuntan a otras filas de la misma tabla; pueden quedar
// colgando tras un delete (no hay cascade) y eso NO es un error.
type Animal struct {
	ID          string
	OwnerUserID string

	Type   Type
	Breed  string
	Number string // tag
	Name   string
	Gender Gender
	Color  string
	Status Status

	DamID  *string
	SireID *string

	DOB           *time.Time
	DOD           *time.Time
	DatePurchased *time.Time
	DateSold      *time.Time

	PurchaseCost decimal.NullDecimal
	SellPrice    decimal.NullDecimal

	ForSale           ForSale
	PendingCompletion bool // quick-entry: falta completar datos

	Notes        string
	Meds         string
	PurchaseInfo string
	SellInfo     string
	RegNumber    string
	RegName      string

	Image string // filename; el binario vive en el servicio de blobs

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Breeder es un animal que figura como dam o sire de al menos otro animal del owner.
type Breeder struct {
	Animal
	OffspringCount int
}

// PageSize es fijo para el listado.
const PageSize = 10

// ListFilter son los parámetros del listado filtrado/ordenado/paginado.
type ListFilter struct {
	Type  Type   // vacío = todas
	Query string // substring case-insensitive sobre name/number/breed/status
	Sort  string
	Desc  bool
	Page  int // 1-based
}

var sortColumns = map[string]struct{}{
	"name":   {},
	"number": {},
	"breed":  {},
	"gender": {},
	"type":   {},
	"status": {},
}

// Normalize aplica la whitelist de columnas de orden.
// Una columna fuera de la lista cae a name asc; el valor crudo nunca
// llega al SQL (contrato duro contra injection, no optimización).
func (f ListFilter) Normalize() (col string, desc bool) {
	if _, ok := sortColumns[f.Sort]; !ok {
		return "name", false
	}
	return f.Sort, f.Desc
}

// PageOrFirst normaliza el número de página a 1-based.
func (f ListFilter) PageOrFirst() int {
	if f.Page < 1 {
		return 1
	}
	return f.Page
}

// Page es el resultado de un listado paginado.
type Page struct {
	Items      []Animal
	Page       int
	Total      int
	TotalPages int
}

// TotalPages calcula ceil(total/PageSize).
func TotalPages(total int) int {
	return (total + PageSize - 1) / PageSize
}
