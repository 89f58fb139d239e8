package lineage

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"herdbook/internal/domain/animals"
	"herdbook/internal/middleware"
	"herdbook/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, log logger.Logger) {
	r.Get("/animals/{animalID}/lineage", lineageHandler(svc, log))

	r.Route("/breeding", func(br chi.Router) {
		br.Get("/stock", breedingStockHandler(svc, log))
		br.Get("/potential", potentialBreedingHandler(svc, log))
	})
}

// relativeCard es la tarjeta resumida que usa el árbol de linaje.
// No repite el registro completo: para eso está GET /animals/{id}.
type relativeCard struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Number      string  `json:"number"`
	Type        string  `json:"type"`
	Breed       string  `json:"breed"`
	Gender      string  `json:"gender"`
	Status      string  `json:"status"`
	StatusBadge string  `json:"status_badge"`
	DOB         *string `json:"dob"`
	Image       string  `json:"image"`
}

type lineageResponse struct {
	Subject      relativeCard  `json:"subject"`
	Parents      parentsJSON   `json:"parents"`
	Grandparents grandparJSON  `json:"grandparents"`
	Offspring    []relativeCard `json:"offspring"`
}

type parentsJSON struct {
	Dam  *relativeCard `json:"dam"`  // null = desconocida
	Sire *relativeCard `json:"sire"` // null = desconocido
}

type grandparJSON struct {
	MaternalGrandmother *relativeCard `json:"maternal_grandmother"`
	MaternalGrandfather *relativeCard `json:"maternal_grandfather"`
	PaternalGrandmother *relativeCard `json:"paternal_grandmother"`
	PaternalGrandfather *relativeCard `json:"paternal_grandfather"`
}

type breederCard struct {
	relativeCard
	OffspringCount int `json:"offspring_count"`
}

func lineageHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := middleware.OwnerID(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		view, err := svc.Resolve(r.Context(), ownerID, chi.URLParam(r, "animalID"))
		if err != nil {
			writeLineageError(w, log, err)
			return
		}

		out := lineageResponse{
			Subject: toCard(view.Subject),
			Parents: parentsJSON{
				Dam:  toCardPtr(view.Parents.Dam),
				Sire: toCardPtr(view.Parents.Sire),
			},
			Grandparents: grandparJSON{
				MaternalGrandmother: toCardPtr(view.Grandparents.MaternalGrandmother),
				MaternalGrandfather: toCardPtr(view.Grandparents.MaternalGrandfather),
				PaternalGrandmother: toCardPtr(view.Grandparents.PaternalGrandmother),
				PaternalGrandfather: toCardPtr(view.Grandparents.PaternalGrandfather),
			},
			Offspring: make([]relativeCard, 0, len(view.Offspring)),
		}
		for _, a := range view.Offspring {
			out.Offspring = append(out.Offspring, toCard(a))
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func breedingStockHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := middleware.OwnerID(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		typ := animals.Type(strings.TrimSpace(r.URL.Query().Get("type")))
		breeders, err := svc.BreedingStock(r.Context(), ownerID, typ)
		if err != nil {
			writeLineageError(w, log, err)
			return
		}

		out := make([]breederCard, 0, len(breeders))
		for _, b := range breeders {
			out = append(out, breederCard{
				relativeCard:   toCard(b.Animal),
				OffspringCount: b.OffspringCount,
			})
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func potentialBreedingHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := middleware.OwnerID(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		typ := animals.Type(strings.TrimSpace(r.URL.Query().Get("type")))
		items, err := svc.PotentialBreedingStock(r.Context(), ownerID, typ)
		if err != nil {
			writeLineageError(w, log, err)
			return
		}

		out := make([]relativeCard, 0, len(items))
		for _, a := range items {
			out = append(out, toCard(a))
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func writeLineageError(w http.ResponseWriter, log logger.Logger, err error) {
	switch {
	case errors.Is(err, animals.ErrNotFound):
		http.Error(w, "animal not found", http.StatusNotFound)
	case errors.Is(err, animals.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error("lineage storage error", map[string]any{"err": err.Error()})
		http.Error(w, "unavailable, try again later", http.StatusInternalServerError)
	}
}

func toCard(a animals.Animal) relativeCard {
	var dob *string
	if a.DOB != nil {
		s := a.DOB.Format("2006-01-02")
		dob = &s
	}
	return relativeCard{
		ID:          a.ID,
		Name:        a.Name,
		Number:      a.Number,
		Type:        string(a.Type),
		Breed:       a.Breed,
		Gender:      string(a.Gender),
		Status:      string(a.Status),
		StatusBadge: a.Status.Badge(),
		DOB:         dob,
		Image:       a.Image,
	}
}

func toCardPtr(rel Relative) *relativeCard {
	if !rel.Known {
		return nil
	}
	c := toCard(rel.Animal)
	return &c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
