package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"herdbook/internal/domain/animals"
)

// animalsRepo es la implementación in-memory de animals.Repository.
// Replica la semántica del adapter de Postgres (owner scoping, orden,
// paginado) para que dev y tests corran sin base.
type animalsRepo struct {
	mu   sync.RWMutex
	byID map[string]animals.Animal
}

func NewAnimalsRepo() animals.Repository {
	return &animalsRepo{
		byID: make(map[string]animals.Animal),
	}
}

func (r *animalsRepo) Create(ctx context.Context, a animals.Animal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(a.ID) == "" {
		return errors.New("animal id required")
	}
	if _, exists := r.byID[a.ID]; exists {
		return errors.New("animal already exists")
	}
	r.byID[a.ID] = a
	return nil
}

func (r *animalsRepo) GetByOwner(ctx context.Context, ownerUserID, id string) (animals.Animal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok || a.OwnerUserID != ownerUserID {
		// un id ajeno se comporta igual que uno inexistente
		return animals.Animal{}, animals.ErrNotFound
	}
	return a, nil
}

func (r *animalsRepo) Update(ctx context.Context, a animals.Animal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[a.ID]
	if !ok || cur.OwnerUserID != a.OwnerUserID {
		return animals.ErrNotFound
	}
	r.byID[a.ID] = a
	return nil
}

func (r *animalsRepo) Delete(ctx context.Context, ownerUserID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok || a.OwnerUserID != ownerUserID {
		return animals.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *animalsRepo) UpdateImage(ctx context.Context, ownerUserID, id, filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok || a.OwnerUserID != ownerUserID {
		return animals.ErrNotFound
	}
	a.Image = filename
	a.UpdatedAt = time.Now()
	r.byID[id] = a
	return nil
}

func (r *animalsRepo) FindByIDs(ctx context.Context, ownerUserID string, ids []string) (map[string]animals.Animal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]animals.Animal, len(ids))
	for _, id := range ids {
		a, ok := r.byID[id]
		if ok && a.OwnerUserID == ownerUserID {
			out[a.ID] = a
		}
	}
	return out, nil
}

func (r *animalsRepo) ListOffspring(ctx context.Context, ownerUserID, parentID string) ([]animals.Animal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]animals.Animal, 0)
	for _, a := range r.byID {
		if a.OwnerUserID != ownerUserID {
			continue
		}
		if (a.DamID != nil && *a.DamID == parentID) || (a.SireID != nil && *a.SireID == parentID) {
			out = append(out, a)
		}
	}

	// dob desc (sin dob al final), luego name asc
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].DOB, out[j].DOB
		switch {
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.After(*dj)
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		}
		return out[i].Name < out[j].Name
	})

	return out, nil
}

func (r *animalsRepo) List(ctx context.Context, ownerUserID string, f animals.ListFilter) ([]animals.Animal, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]animals.Animal, 0)
	q := strings.ToLower(strings.TrimSpace(f.Query))
	for _, a := range r.byID {
		if a.OwnerUserID != ownerUserID {
			continue
		}
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if q != "" && !matchesQuery(a, q) {
			continue
		}
		matched = append(matched, a)
	}

	col, desc := f.Normalize()
	sort.Slice(matched, func(i, j int) bool {
		ki, kj := sortKey(matched[i], col), sortKey(matched[j], col)
		if ki != kj {
			if desc {
				return ki > kj
			}
			return ki < kj
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	page := f.PageOrFirst()
	start := (page - 1) * animals.PageSize
	if start >= total {
		return []animals.Animal{}, total, nil
	}
	end := start + animals.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *animalsRepo) ListBreeders(ctx context.Context, ownerUserID string, typ animals.Type) ([]animals.Breeder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := map[string]int{}
	for _, a := range r.byID {
		if a.OwnerUserID != ownerUserID {
			continue
		}
		if a.DamID != nil {
			counts[*a.DamID]++
		}
		if a.SireID != nil {
			counts[*a.SireID]++
		}
	}

	out := make([]animals.Breeder, 0)
	for id, n := range counts {
		a, ok := r.byID[id]
		if !ok || a.OwnerUserID != ownerUserID {
			continue // referencia colgante: no hay animal que listar
		}
		if typ != "" && a.Type != typ {
			continue
		}
		out = append(out, animals.Breeder{Animal: a, OffspringCount: n})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *animalsRepo) ListNonBreeders(ctx context.Context, ownerUserID string, typ animals.Type) ([]animals.Animal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	isParent := map[string]bool{}
	for _, a := range r.byID {
		if a.OwnerUserID != ownerUserID {
			continue
		}
		if a.DamID != nil {
			isParent[*a.DamID] = true
		}
		if a.SireID != nil {
			isParent[*a.SireID] = true
		}
	}

	out := make([]animals.Animal, 0)
	for _, a := range r.byID {
		if a.OwnerUserID != ownerUserID || a.Status != animals.StatusAlive {
			continue
		}
		if typ != "" && a.Type != typ {
			continue
		}
		if isParent[a.ID] {
			continue
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *animalsRepo) ListAlive(ctx context.Context, ownerUserID string, typ animals.Type) ([]animals.Animal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]animals.Animal, 0)
	for _, a := range r.byID {
		if a.OwnerUserID != ownerUserID || a.Status != animals.StatusAlive {
			continue
		}
		if typ != "" && a.Type != typ {
			continue
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *animalsRepo) SelectPurchases(ctx context.Context, ownerUserID string, from, to time.Time, typ animals.Type) ([]animals.Animal, error) {
	return r.selectByDate(ownerUserID, from, to, typ, func(a animals.Animal) *time.Time { return a.DatePurchased })
}

func (r *animalsRepo) SelectSales(ctx context.Context, ownerUserID string, from, to time.Time, typ animals.Type) ([]animals.Animal, error) {
	return r.selectByDate(ownerUserID, from, to, typ, func(a animals.Animal) *time.Time { return a.DateSold })
}

func (r *animalsRepo) selectByDate(ownerUserID string, from, to time.Time, typ animals.Type, date func(animals.Animal) *time.Time) ([]animals.Animal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]animals.Animal, 0)
	for _, a := range r.byID {
		if a.OwnerUserID != ownerUserID {
			continue
		}
		if typ != "" && a.Type != typ {
			continue
		}
		d := date(a)
		if d == nil || d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		di, dj := date(out[i]), date(out[j])
		if !di.Equal(*dj) {
			return di.Before(*dj)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func matchesQuery(a animals.Animal, q string) bool {
	return strings.Contains(strings.ToLower(a.Name), q) ||
		strings.Contains(strings.ToLower(a.Number), q) ||
		strings.Contains(strings.ToLower(a.Breed), q) ||
		strings.Contains(strings.ToLower(string(a.Status)), q)
}

func sortKey(a animals.Animal, col string) string {
	switch col {
	case "number":
		return a.Number
	case "breed":
		return a.Breed
	case "gender":
		return string(a.Gender)
	case "type":
		return string(a.Type)
	case "status":
		return string(a.Status)
	default:
		return a.Name
	}
}
