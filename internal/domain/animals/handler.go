package animals

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"herdbook/internal/middleware"
	"herdbook/internal/platform/logger"
	"herdbook/internal/ports/media"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const maxImageBytes = 8 << 20 // tope del request; el servicio de blobs puede bajar más

func RegisterRoutes(r chi.Router, svc *Service, blobs media.Store, log logger.Logger) {
	r.Route("/animals", func(ar chi.Router) {
		ar.Post("/", createAnimalHandler(svc, log))
		ar.Get("/", listAnimalsHandler(svc, log))

		ar.Get("/{animalID}", getAnimalHandler(svc, log))
		ar.Patch("/{animalID}", updateAnimalHandler(svc, log))
		ar.Delete("/{animalID}", deleteAnimalHandler(svc, blobs, log))

		ar.Post("/{animalID}/image", uploadImageHandler(svc, blobs, log))
	})
}

type createAnimalRequest struct {
	Type   string `json:"type"`
	Breed  string `json:"breed"`
	Number string `json:"number"`
	Name   string `json:"name"`
	Gender string `json:"gender"`
	Color  string `json:"color"`
	Status string `json:"status"`

	DamID  *string `json:"dam_id"`
	SireID *string `json:"sire_id"`

	DOB           string `json:"dob"`            // YYYY-MM-DD opcional
	DOD           string `json:"dod"`            // YYYY-MM-DD opcional
	DatePurchased string `json:"date_purchased"` // YYYY-MM-DD opcional
	DateSold      string `json:"date_sold"`      // YYYY-MM-DD opcional

	PurchaseCost *decimal.Decimal `json:"purch_cost"` // acepta "100.00" o 100.00
	SellPrice    *decimal.Decimal `json:"sell_price"`

	ForSale           string `json:"for_sale"`
	PendingCompletion bool   `json:"pending_completion"`

	Notes        string `json:"notes"`
	Meds         string `json:"meds"`
	PurchaseInfo string `json:"purch_info"`
	SellInfo     string `json:"sell_info"`
	RegNumber    string `json:"reg_num"`
	RegName      string `json:"reg_name"`

	Image string `json:"image"`
}

type animalResponse struct {
	ID          string `json:"id"`
	OwnerUserID string `json:"owner_user_id"`

	Type   string `json:"type"`
	Breed  string `json:"breed"`
	Number string `json:"number"`
	Name   string `json:"name"`
	Gender string `json:"gender"`
	Color  string `json:"color"`

	Status      string `json:"status"`
	StatusBadge string `json:"status_badge"`

	DamID  *string `json:"dam_id"`
	SireID *string `json:"sire_id"`

	DOB           *string `json:"dob"`
	DOD           *string `json:"dod"`
	DatePurchased *string `json:"date_purchased"`
	DateSold      *string `json:"date_sold"`

	PurchaseCost *string `json:"purch_cost"`
	SellPrice    *string `json:"sell_price"`

	ForSale           string `json:"for_sale"`
	PendingCompletion bool   `json:"pending_completion"`

	Notes        string `json:"notes"`
	Meds         string `json:"meds"`
	PurchaseInfo string `json:"purch_info"`
	SellInfo     string `json:"sell_info"`
	RegNumber    string `json:"reg_num"`
	RegName      string `json:"reg_name"`

	Image string `json:"image"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type listAnimalsResponse struct {
	Items      []animalResponse `json:"items"`
	Page       int              `json:"page"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
}

type updateAnimalRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	// Los campos anulables (fechas, padres, montos) se manejan aparte
	// sobre el raw map, para distinguir "null" de "no enviado".
	Type    *string `json:"type"`
	Breed   *string `json:"breed"`
	Number  *string `json:"number"`
	Name    *string `json:"name"`
	Gender  *string `json:"gender"`
	Color   *string `json:"color"`
	Status  *string `json:"status"`
	ForSale *string `json:"for_sale"`

	PendingCompletion *bool `json:"pending_completion"`

	Notes        *string `json:"notes"`
	Meds         *string `json:"meds"`
	PurchaseInfo *string `json:"purch_info"`
	SellInfo     *string `json:"sell_info"`
	RegNumber    *string `json:"reg_num"`
	RegName      *string `json:"reg_name"`
}

func createAnimalHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := middleware.OwnerID(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createAnimalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := CreateInput{
			Type:   req.Type,
			Breed:  req.Breed,
			Number: req.Number,
			Name:   req.Name,
			Gender: req.Gender,
			Color:  req.Color,
			Status: req.Status,

			DamID:  req.DamID,
			SireID: req.SireID,

			PurchaseCost: toNullDecimal(req.PurchaseCost),
			SellPrice:    toNullDecimal(req.SellPrice),

			ForSale:           req.ForSale,
			PendingCompletion: req.PendingCompletion,

			Notes:        req.Notes,
			Meds:         req.Meds,
			PurchaseInfo: req.PurchaseInfo,
			SellInfo:     req.SellInfo,
			RegNumber:    req.RegNumber,
			RegName:      req.RegName,

			Image: req.Image,
		}

		for _, d := range []struct {
			field string
			raw   string
			dst   **time.Time
		}{
			{"dob", req.DOB, &in.DOB},
			{"dod", req.DOD, &in.DOD},
			{"date_purchased", req.DatePurchased, &in.DatePurchased},
			{"date_sold", req.DateSold, &in.DateSold},
		} {
			if strings.TrimSpace(d.raw) == "" {
				continue
			}
			t, err := time.Parse("2006-01-02", d.raw)
			if err != nil {
				http.Error(w, d.field+" must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			*d.dst = &t
		}

		a, err := svc.Create(r.Context(), ownerID, in)
		if err != nil {
			writeAnimalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAnimalResponse(a))
	}
}

func listAnimalsHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := middleware.OwnerID(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))

		f := ListFilter{
			Type:  Type(strings.TrimSpace(q.Get("type"))),
			Query: strings.TrimSpace(q.Get("q")),
			Sort:  strings.TrimSpace(q.Get("sort")),
			Desc:  strings.EqualFold(strings.TrimSpace(q.Get("dir")), "desc"),
			Page:  page,
		}

		p, err := svc.List(r.Context(), ownerID, f)
		if err != nil {
			writeAnimalError(w, log, err)
			return
		}

		out := listAnimalsResponse{
			Items:      make([]animalResponse, 0, len(p.Items)),
			Page:       p.Page,
			Total:      p.Total,
			TotalPages: p.TotalPages,
		}
		for _, a := range p.Items {
			out.Items = append(out.Items, toAnimalResponse(a))
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func getAnimalHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := middleware.OwnerID(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		a, err := svc.Get(r.Context(), ownerID, chi.URLParam(r, "animalID"))
		if err != nil {
			writeAnimalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toAnimalResponse(a))
	}
}

func updateAnimalHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := middleware.OwnerID(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		// Decodificar a map primero para detectar presencia de los campos
		// anulables ("dam_id": null ≠ dam_id ausente).
		var raw map[string]json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var req updateAnimalRequest
		{
			// Re-marshal y decode al struct para reutilizar tags
			// (simple y suficiente para este volumen de campos)
			b, _ := json.Marshal(raw)
			if err := json.Unmarshal(b, &req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		in := UpdateInput{
			Type:    req.Type,
			Breed:   req.Breed,
			Number:  req.Number,
			Name:    req.Name,
			Gender:  req.Gender,
			Color:   req.Color,
			Status:  req.Status,
			ForSale: req.ForSale,

			PendingCompletion: req.PendingCompletion,

			Notes:        req.Notes,
			Meds:         req.Meds,
			PurchaseInfo: req.PurchaseInfo,
			SellInfo:     req.SellInfo,
			RegNumber:    req.RegNumber,
			RegName:      req.RegName,
		}

		var perr error
		if in.DamID, perr = patchRefField(raw, "dam_id"); perr != nil {
			http.Error(w, perr.Error(), http.StatusBadRequest)
			return
		}
		if in.SireID, perr = patchRefField(raw, "sire_id"); perr != nil {
			http.Error(w, perr.Error(), http.StatusBadRequest)
			return
		}

		for _, d := range []struct {
			field string
			dst   *PatchDate
		}{
			{"dob", &in.DOB},
			{"dod", &in.DOD},
			{"date_purchased", &in.DatePurchased},
			{"date_sold", &in.DateSold},
		} {
			if *d.dst, perr = patchDateField(raw, d.field); perr != nil {
				http.Error(w, perr.Error(), http.StatusBadRequest)
				return
			}
		}

		if in.PurchaseCost, perr = patchMoneyField(raw, "purch_cost"); perr != nil {
			http.Error(w, perr.Error(), http.StatusBadRequest)
			return
		}
		if in.SellPrice, perr = patchMoneyField(raw, "sell_price"); perr != nil {
			http.Error(w, perr.Error(), http.StatusBadRequest)
			return
		}

		updated, err := svc.Update(r.Context(), ownerID, chi.URLParam(r, "animalID"), in)
		if err != nil {
			writeAnimalError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toAnimalResponse(updated))
	}
}

func deleteAnimalHandler(svc *Service, blobs media.Store, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := middleware.OwnerID(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		animalID := chi.URLParam(r, "animalID")

		// El filename se lee antes del delete para poder limpiar el blob después.
		current, err := svc.Get(r.Context(), ownerID, animalID)
		if err != nil {
			writeAnimalError(w, log, err)
			return
		}

		if err := svc.Delete(r.Context(), ownerID, animalID); err != nil {
			writeAnimalError(w, log, err)
			return
		}

		// Limpieza best-effort: un blob huérfano no rompe nada.
		if blobs != nil && current.Image != "" {
			if err := blobs.Delete(r.Context(), current.Image); err != nil {
				log.Warn("orphan image left in blob storage", map[string]any{
					"animal_id": animalID,
					"image":     current.Image,
					"err":       err.Error(),
				})
			}
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func uploadImageHandler(svc *Service, blobs media.Store, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := middleware.OwnerID(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if blobs == nil {
			http.Error(w, "image storage unavailable", http.StatusServiceUnavailable)
			return
		}

		animalID := chi.URLParam(r, "animalID")

		// Verificar ownership antes de tocar el blob storage.
		current, err := svc.Get(r.Context(), ownerID, animalID)
		if err != nil {
			writeAnimalError(w, log, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
		file, header, err := r.FormFile("image")
		if err != nil {
			http.Error(w, "image file required (multipart field: image)", http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "image too large", http.StatusRequestEntityTooLarge)
			return
		}

		filename, err := blobs.Put(r.Context(), data, header.Header.Get("Content-Type"))
		if err != nil {
			switch {
			case errors.Is(err, media.ErrTooLarge):
				http.Error(w, "image too large", http.StatusRequestEntityTooLarge)
			case errors.Is(err, media.ErrBadType):
				http.Error(w, "unsupported image type", http.StatusUnsupportedMediaType)
			default:
				log.Error("image upload failed", map[string]any{"animal_id": animalID, "err": err.Error()})
				http.Error(w, "image upload failed, try again later", http.StatusBadGateway)
			}
			return
		}

		updated, err := svc.SetImage(r.Context(), ownerID, animalID, filename)
		if err != nil {
			writeAnimalError(w, log, err)
			return
		}

		// Reemplazo: la imagen anterior queda sin referencia, limpiar best-effort.
		if current.Image != "" && current.Image != filename {
			if derr := blobs.Delete(r.Context(), current.Image); derr != nil {
				log.Warn("orphan image left in blob storage", map[string]any{
					"animal_id": animalID,
					"image":     current.Image,
					"err":       derr.Error(),
				})
			}
		}

		writeJSON(w, http.StatusOK, toAnimalResponse(updated))
	}
}

// writeAnimalError mapea la taxonomía de errores del dominio a HTTP.
// Los errores de storage nunca llegan crudos al cliente: se loguean acá
// y afuera va un genérico.
func writeAnimalError(w http.ResponseWriter, log logger.Logger, err error) {
	if ve, ok := AsValidation(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": ve.Fields})
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "animal not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error("animal storage error", map[string]any{"err": err.Error()})
		http.Error(w, "unavailable, try again later", http.StatusInternalServerError)
	}
}

func patchRefField(raw map[string]json.RawMessage, key string) (PatchRef, error) {
	v, exists := raw[key]
	if !exists {
		return PatchRef{}, nil
	}
	if string(v) == "null" {
		return PatchRef{Set: true, Value: nil}, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return PatchRef{}, errors.New(key + " must be an id string or null")
	}
	return PatchRef{Set: true, Value: &s}, nil
}

func patchDateField(raw map[string]json.RawMessage, key string) (PatchDate, error) {
	v, exists := raw[key]
	if !exists {
		return PatchDate{}, nil
	}
	if string(v) == "null" {
		return PatchDate{Set: true, Value: nil}, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return PatchDate{}, errors.New(key + " must be YYYY-MM-DD or null")
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return PatchDate{}, errors.New(key + " must be YYYY-MM-DD or null")
	}
	return PatchDate{Set: true, Value: &t}, nil
}

func patchMoneyField(raw map[string]json.RawMessage, key string) (PatchMoney, error) {
	v, exists := raw[key]
	if !exists {
		return PatchMoney{}, nil
	}
	if string(v) == "null" {
		return PatchMoney{Set: true}, nil
	}
	var d decimal.Decimal
	if err := json.Unmarshal(v, &d); err != nil {
		return PatchMoney{}, errors.New(key + " must be a decimal amount or null")
	}
	return PatchMoney{Set: true, Value: decimal.NullDecimal{Decimal: d, Valid: true}}, nil
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func toAnimalResponse(a Animal) animalResponse {
	return animalResponse{
		ID:          a.ID,
		OwnerUserID: a.OwnerUserID,

		Type:   string(a.Type),
		Breed:  a.Breed,
		Number: a.Number,
		Name:   a.Name,
		Gender: string(a.Gender),
		Color:  a.Color,

		Status:      string(a.Status),
		StatusBadge: a.Status.Badge(),

		DamID:  a.DamID,
		SireID: a.SireID,

		DOB:           fmtDate(a.DOB),
		DOD:           fmtDate(a.DOD),
		DatePurchased: fmtDate(a.DatePurchased),
		DateSold:      fmtDate(a.DateSold),

		PurchaseCost: fmtMoney(a.PurchaseCost),
		SellPrice:    fmtMoney(a.SellPrice),

		ForSale:           string(a.ForSale),
		PendingCompletion: a.PendingCompletion,

		Notes:        a.Notes,
		Meds:         a.Meds,
		PurchaseInfo: a.PurchaseInfo,
		SellInfo:     a.SellInfo,
		RegNumber:    a.RegNumber,
		RegName:      a.RegName,

		Image: a.Image,

		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func fmtDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

// fmtMoney redondea a 2 decimales recién acá, en el borde HTTP.
// Internamente los montos viajan como decimal sin redondear.
func fmtMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(2)
	return &s
}

// writeJSON está duplicado a propósito en los handlers de cada módulo
// (animals/lineage/reports), igual que en el resto del código: todavía no
// amerita un helper compartido.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
