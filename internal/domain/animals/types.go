package animals

// Type define las especies de ganado soportadas.
// @Enum Sheep, Chicken, Turkey, Pig, Cow
type Type string

const (
	TypeSheep   Type = "Sheep"
	TypeChicken Type = "Chicken"
	TypeTurkey  Type = "Turkey"
	TypePig     Type = "Pig"
	TypeCow     Type = "Cow"
)

// Types devuelve las especies en orden canónico (para reportes y selects).
func Types() []Type {
	return []Type{TypeSheep, TypeChicken, TypeTurkey, TypePig, TypeCow}
}

func ValidType(t Type) bool {
	switch t {
	case TypeSheep, TypeChicken, TypeTurkey, TypePig, TypeCow:
		return true
	}
	return false
}

// Gender define el sexo del animal.
// @Enum Male, Female
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

func ValidGender(g Gender) bool {
	return g == GenderMale || g == GenderFemale
}

// Status define el estado actual del animal.
// @Enum Alive, Dead, Sold, For Sale, Harvested
type Status string

const (
	StatusAlive     Status = "Alive"
	StatusDead      Status = "Dead"
	StatusSold      Status = "Sold"
	StatusForSale   Status = "For Sale"
	StatusHarvested Status = "Harvested"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusAlive, StatusDead, StatusSold, StatusForSale, StatusHarvested:
		return true
	}
	return false
}

// Badge mapea status a la clase de badge que usa el frontend.
// Es total: un status desconocido cae en "secondary" en vez de romper el render.
func (s Status) Badge() string {
	switch s {
	case StatusAlive:
		return "success"
	case StatusDead:
		return "danger"
	case StatusSold:
		return "info"
	case StatusForSale:
		return "warning"
	case StatusHarvested:
		return "dark"
	default:
		return "secondary"
	}
}

// ForSale es el marcador tri-estado de venta, separado del status.
// @Enum No, Yes, Has Been Sold
type ForSale string

const (
	ForSaleNo   ForSale = "No"
	ForSaleYes  ForSale = "Yes"
	ForSaleSold ForSale = "Has Been Sold"
)

func ValidForSale(f ForSale) bool {
	switch f {
	case ForSaleNo, ForSaleYes, ForSaleSold:
		return true
	}
	return false
}
