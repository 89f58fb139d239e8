package animals

import (
	"context"
	"time"
)

// Repository es el contrato de persistencia de animales.
// Toda operación va scoped por ownerUserID: un id que existe pero es de
// otro owner se comporta igual que uno inexistente (ErrNotFound), nunca
// revela existencia.
type Repository interface {
	Create(ctx context.Context, a Animal) error
	GetByOwner(ctx context.Context, ownerUserID, id string) (Animal, error)
	Update(ctx context.Context, a Animal) error
	Delete(ctx context.Context, ownerUserID, id string) error
	UpdateImage(ctx context.Context, ownerUserID, id, filename string) error

	// FindByIDs trae un batch por id en una sola query.
	// Ids de otro owner o inexistentes simplemente no aparecen en el mapa.
	FindByIDs(ctx context.Context, ownerUserID string, ids []string) (map[string]Animal, error)

	// ListOffspring devuelve los animales con dam_id o sire_id == parentID,
	// ordenados por dob desc y luego name asc.
	ListOffspring(ctx context.Context, ownerUserID, parentID string) ([]Animal, error)

	// ListBreeders devuelve los animales que figuran como dam o sire de al
	// menos otro animal del owner, con su conteo de crías (un solo GROUP BY,
	// no un COUNT por candidato).
	ListBreeders(ctx context.Context, ownerUserID string, typ Type) ([]Breeder, error)

	// ListNonBreeders devuelve los animales vivos que no figuran como dam ni
	// sire de nadie (el complemento de ListBreeders).
	ListNonBreeders(ctx context.Context, ownerUserID string, typ Type) ([]Animal, error)

	// List devuelve una página del listado más el total de filas que matchean.
	List(ctx context.Context, ownerUserID string, f ListFilter) ([]Animal, int, error)

	ListAlive(ctx context.Context, ownerUserID string, typ Type) ([]Animal, error)

	// SelectPurchases devuelve los animales con date_purchased dentro de
	// [from, to] (inclusive). SelectSales lo mismo sobre date_sold.
	SelectPurchases(ctx context.Context, ownerUserID string, from, to time.Time, typ Type) ([]Animal, error)
	SelectSales(ctx context.Context, ownerUserID string, from, to time.Time, typ Type) ([]Animal, error)
}
