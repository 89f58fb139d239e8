package lineage

import (
	"context"
	"strings"

	"herdbook/internal/domain/animals"
)

// Relative es un pariente resuelto o el placeholder "desconocido".
// Un puntero null, colgante o de otro owner da Known=false, nunca error.
type Relative struct {
	Known  bool
	Animal animals.Animal
}

type Parents struct {
	Dam  Relative
	Sire Relative
}

type Grandparents struct {
	MaternalGrandmother Relative // dam de la dam
	MaternalGrandfather Relative // sire de la dam
	PaternalGrandmother Relative // dam del sire
	PaternalGrandfather Relative // sire del sire
}

// View es el árbol de linaje de un animal: dos generaciones hacia arriba,
// una hacia abajo.
type View struct {
	Subject      animals.Animal
	Parents      Parents
	Grandparents Grandparents
	Offspring    []animals.Animal
}

type Service struct {
	repo animals.Repository
}

func NewService(repo animals.Repository) *Service {
	return &Service{repo: repo}
}

// Resolve arma la vista de linaje para un animal del owner.
// La caminata es de profundidad fija: un batch por generación (padres,
// abuelos), nunca recursión abierta, así ni un ciclo corrupto en los
// datos puede colgarla. No se valida el género de los padres: una dam
// que apunta a un macho se muestra igual.
func (s *Service) Resolve(ctx context.Context, ownerUserID, subjectID string) (View, error) {
	if strings.TrimSpace(ownerUserID) == "" || strings.TrimSpace(subjectID) == "" {
		return View{}, animals.ErrNotFound
	}

	subject, err := s.repo.GetByOwner(ctx, ownerUserID, subjectID)
	if err != nil {
		return View{}, err
	}

	// Generación 1: padres, en un solo batch.
	gen1 := collectIDs(nil, subject.DamID, subject.SireID)
	parents := map[string]animals.Animal{}
	if len(gen1) > 0 {
		parents, err = s.repo.FindByIDs(ctx, ownerUserID, gen1)
		if err != nil {
			return View{}, err
		}
	}

	dam := lookup(parents, subject.DamID)
	sire := lookup(parents, subject.SireID)

	// Generación 2: abuelos, otro batch único con los punteros de ambos padres.
	var gen2 []string
	if dam.Known {
		gen2 = collectIDs(gen2, dam.Animal.DamID, dam.Animal.SireID)
	}
	if sire.Known {
		gen2 = collectIDs(gen2, sire.Animal.DamID, sire.Animal.SireID)
	}
	grands := map[string]animals.Animal{}
	if len(gen2) > 0 {
		grands, err = s.repo.FindByIDs(ctx, ownerUserID, gen2)
		if err != nil {
			return View{}, err
		}
	}

	gp := Grandparents{}
	if dam.Known {
		gp.MaternalGrandmother = lookup(grands, dam.Animal.DamID)
		gp.MaternalGrandfather = lookup(grands, dam.Animal.SireID)
	}
	if sire.Known {
		gp.PaternalGrandmother = lookup(grands, sire.Animal.DamID)
		gp.PaternalGrandfather = lookup(grands, sire.Animal.SireID)
	}

	offspring, err := s.repo.ListOffspring(ctx, ownerUserID, subject.ID)
	if err != nil {
		return View{}, err
	}

	return View{
		Subject:      subject,
		Parents:      Parents{Dam: dam, Sire: sire},
		Grandparents: gp,
		Offspring:    offspring,
	}, nil
}

// BreedingStock lista los animales del owner que figuran como dam o sire
// de al menos otro animal, con su conteo de crías.
func (s *Service) BreedingStock(ctx context.Context, ownerUserID string, typ animals.Type) ([]animals.Breeder, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return nil, animals.ErrInvalidInput
	}
	if typ != "" && !animals.ValidType(typ) {
		return nil, animals.ErrInvalidInput
	}
	return s.repo.ListBreeders(ctx, ownerUserID, typ)
}

// PotentialBreedingStock lista los animales vivos que no figuran como dam
// ni sire de nadie: el complemento de BreedingStock.
func (s *Service) PotentialBreedingStock(ctx context.Context, ownerUserID string, typ animals.Type) ([]animals.Animal, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return nil, animals.ErrInvalidInput
	}
	if typ != "" && !animals.ValidType(typ) {
		return nil, animals.ErrInvalidInput
	}
	return s.repo.ListNonBreeders(ctx, ownerUserID, typ)
}

// collectIDs acumula ids no-nil sin duplicar (dam y sire podrían apuntar
// al mismo registro si los datos vienen sucios).
func collectIDs(dst []string, ids ...*string) []string {
	for _, id := range ids {
		if id == nil || *id == "" {
			continue
		}
		dup := false
		for _, have := range dst {
			if have == *id {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, *id)
		}
	}
	return dst
}

func lookup(m map[string]animals.Animal, id *string) Relative {
	if id == nil {
		return Relative{}
	}
	a, ok := m[*id]
	if !ok {
		return Relative{}
	}
	return Relative{Known: true, Animal: a}
}
