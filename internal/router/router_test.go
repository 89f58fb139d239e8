package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"testing"

	"herdbook/internal/platform/logger"
	"herdbook/internal/router"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(router.NewRouter(router.Options{
		AuthVerifier: nil, // modo dev: X-Debug-User-ID
		Log:          logger.Nop(),
	}))
	t.Cleanup(ts.Close)
	return ts
}

func doReq(t *testing.T, baseURL, method, path, userID string, body any) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-Debug-User-ID", userID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	out, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res.StatusCode, out
}

func createAnimal(t *testing.T, baseURL, userID string, body map[string]any) map[string]any {
	t.Helper()
	st, out := doReq(t, baseURL, "POST", "/animals", userID, body)
	if st != http.StatusCreated {
		t.Fatalf("create animal: expected 201, got %d body=%s", st, string(out))
	}
	var a map[string]any
	if err := json.Unmarshal(out, &a); err != nil {
		t.Fatalf("decode animal: %v", err)
	}
	return a
}

func TestHTTP_AnimalLifecycle(t *testing.T) {
	ts := newTestServer(t)

	// 1) Alta con fechas y montos
	a := createAnimal(t, ts.URL, "alice", map[string]any{
		"type":           "Sheep",
		"number":         "S-001",
		"name":           "Luna",
		"gender":         "Female",
		"status":         "Alive",
		"dob":            "2023-04-01",
		"date_purchased": "2023-05-10",
		"purch_cost":     "100.00",
	})
	id := a["id"].(string)
	if id == "" {
		t.Fatal("expected assigned id")
	}
	if a["purch_cost"] != "100.00" {
		t.Errorf("purch_cost = %v, want \"100.00\"", a["purch_cost"])
	}
	if a["status_badge"] != "success" {
		t.Errorf("status_badge = %v, want success", a["status_badge"])
	}

	// 2) Lectura
	{
		st, out := doReq(t, ts.URL, "GET", "/animals/"+id, "alice", nil)
		if st != http.StatusOK {
			t.Fatalf("get: expected 200, got %d body=%s", st, string(out))
		}
	}

	// 3) PATCH parcial: vender, con null explícito en un campo de texto
	{
		st, out := doReq(t, ts.URL, "PATCH", "/animals/"+id, "alice", map[string]any{
			"status":     "Sold",
			"date_sold":  "2024-02-15",
			"sell_price": "150.00",
		})
		if st != http.StatusOK {
			t.Fatalf("patch: expected 200, got %d body=%s", st, string(out))
		}
		var upd map[string]any
		if err := json.Unmarshal(out, &upd); err != nil {
			t.Fatalf("decode patch response: %v", err)
		}
		if upd["sell_price"] != "150.00" {
			t.Errorf("sell_price = %v, want \"150.00\"", upd["sell_price"])
		}
		if upd["for_sale"] != "Has Been Sold" {
			t.Errorf("for_sale = %v, want Has Been Sold", upd["for_sale"])
		}
		if upd["number"] != "S-001" {
			t.Errorf("untouched field changed: %v", upd["number"])
		}
	}

	// 4) Baja
	{
		st, _ := doReq(t, ts.URL, "DELETE", "/animals/"+id, "alice", nil)
		if st != http.StatusNoContent {
			t.Fatalf("delete: expected 204, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "GET", "/animals/"+id, "alice", nil)
		if st != http.StatusNotFound {
			t.Fatalf("get after delete: expected 404, got %d", st)
		}
	}
}

func TestHTTP_ValidationErrorsCollected(t *testing.T) {
	ts := newTestServer(t)

	st, out := doReq(t, ts.URL, "POST", "/animals", "alice", map[string]any{
		"type":   "Dragon",
		"gender": "Both",
	})
	if st != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", st, string(out))
	}

	var res struct {
		Errors []struct {
			Field string `json:"field"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(out, &res); err != nil {
		t.Fatalf("decode errors: %v", err)
	}
	if len(res.Errors) < 4 {
		t.Errorf("expected every invalid field reported at once, got %+v", res.Errors)
	}
}

func TestHTTP_OwnerIsolation(t *testing.T) {
	ts := newTestServer(t)

	a := createAnimal(t, ts.URL, "bob", map[string]any{
		"type": "Pig", "number": "P-1", "name": "Rosa", "gender": "Female", "status": "Alive",
	})
	id := a["id"].(string)

	// otro owner: el id existe pero debe ser indistinguible de inexistente
	if st, _ := doReq(t, ts.URL, "GET", "/animals/"+id, "alice", nil); st != http.StatusNotFound {
		t.Fatalf("foreign get: expected 404, got %d", st)
	}
	if st, _ := doReq(t, ts.URL, "DELETE", "/animals/"+id, "alice", nil); st != http.StatusNotFound {
		t.Fatalf("foreign delete: expected 404, got %d", st)
	}

	// sin identidad: 401
	if st, _ := doReq(t, ts.URL, "GET", "/animals", "", nil); st != http.StatusUnauthorized {
		t.Fatalf("anonymous list: expected 401, got %d", st)
	}

	// la lista de alice no ve al cerdo de bob
	st, out := doReq(t, ts.URL, "GET", "/animals", "alice", nil)
	if st != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", st)
	}
	var page struct {
		Items []json.RawMessage `json:"items"`
		Total int               `json:"total"`
	}
	if err := json.Unmarshal(out, &page); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if page.Total != 0 || len(page.Items) != 0 {
		t.Errorf("owner isolation broken: %s", string(out))
	}
}

func TestHTTP_ListSortAndPagination(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 12; i++ {
		createAnimal(t, ts.URL, "alice", map[string]any{
			"type":   "Chicken",
			"number": "C-" + strconv.Itoa(10+i),
			"name":   "Gallina " + strconv.Itoa(10+i),
			"gender": "Female",
			"status": "Alive",
		})
	}

	var page struct {
		Items []struct {
			Number string `json:"number"`
		} `json:"items"`
		Page       int `json:"page"`
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
	}

	// página 2 ordenada desc por número
	st, out := doReq(t, ts.URL, "GET", "/animals?sort=number&dir=desc&page=2", "alice", nil)
	if st != http.StatusOK {
		t.Fatalf("list: expected 200, got %d body=%s", st, string(out))
	}
	if err := json.Unmarshal(out, &page); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if page.Total != 12 || page.TotalPages != 2 || page.Page != 2 || len(page.Items) != 2 {
		t.Fatalf("pagination wrong: page=%d total=%d pages=%d items=%d",
			page.Page, page.Total, page.TotalPages, len(page.Items))
	}
	if page.Items[0].Number != "C-11" || page.Items[1].Number != "C-10" {
		t.Errorf("desc order wrong: %+v", page.Items)
	}

	// columna fuera de la whitelist: cae al orden por defecto, nunca error
	st, out = doReq(t, ts.URL, "GET", "/animals?sort=owner_user_id;--&page=1", "alice", nil)
	if st != http.StatusOK {
		t.Fatalf("hostile sort: expected 200, got %d body=%s", st, string(out))
	}
	if err := json.Unmarshal(out, &page); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(page.Items) == 0 || page.Items[0].Number != "C-10" {
		t.Errorf("whitelist fallback wrong: %+v", page.Items)
	}
}

func TestHTTP_LineageAndBreeding(t *testing.T) {
	ts := newTestServer(t)

	dam := createAnimal(t, ts.URL, "alice", map[string]any{
		"type": "Cow", "number": "V-1", "name": "Madre", "gender": "Female", "status": "Alive",
	})
	sire := createAnimal(t, ts.URL, "alice", map[string]any{
		"type": "Cow", "number": "V-2", "name": "Padre", "gender": "Male", "status": "Alive",
	})
	child := createAnimal(t, ts.URL, "alice", map[string]any{
		"type": "Cow", "number": "V-3", "name": "Ternero", "gender": "Male", "status": "Alive",
		"dam_id": dam["id"], "sire_id": sire["id"],
	})

	st, out := doReq(t, ts.URL, "GET", "/animals/"+child["id"].(string)+"/lineage", "alice", nil)
	if st != http.StatusOK {
		t.Fatalf("lineage: expected 200, got %d body=%s", st, string(out))
	}
	var view struct {
		Parents struct {
			Dam *struct {
				Name string `json:"name"`
			} `json:"dam"`
			Sire *struct {
				Name string `json:"name"`
			} `json:"sire"`
		} `json:"parents"`
		Grandparents struct {
			MaternalGrandmother *struct {
				Name string `json:"name"`
			} `json:"maternal_grandmother"`
		} `json:"grandparents"`
	}
	if err := json.Unmarshal(out, &view); err != nil {
		t.Fatalf("decode lineage: %v", err)
	}
	if view.Parents.Dam == nil || view.Parents.Sire == nil {
		t.Fatalf("parents should resolve: %s", string(out))
	}
	if view.Parents.Dam.Name != "Madre" || view.Parents.Sire.Name != "Padre" {
		t.Errorf("parents wrong: %s", string(out))
	}
	if view.Grandparents.MaternalGrandmother != nil {
		t.Errorf("grandparents should be null when unknown")
	}

	st, out = doReq(t, ts.URL, "GET", "/breeding/stock", "alice", nil)
	if st != http.StatusOK {
		t.Fatalf("breeding stock: expected 200, got %d body=%s", st, string(out))
	}
	var stock []struct {
		Number         string `json:"number"`
		OffspringCount int    `json:"offspring_count"`
	}
	if err := json.Unmarshal(out, &stock); err != nil {
		t.Fatalf("decode stock: %v", err)
	}
	if len(stock) != 2 {
		t.Fatalf("expected both parents in stock, got %s", string(out))
	}
	for _, b := range stock {
		if b.OffspringCount != 1 {
			t.Errorf("offspring count for %s = %d, want 1", b.Number, b.OffspringCount)
		}
	}

	st, out = doReq(t, ts.URL, "GET", "/breeding/potential", "alice", nil)
	if st != http.StatusOK {
		t.Fatalf("potential: expected 200, got %d body=%s", st, string(out))
	}
	var potential []struct {
		Number string `json:"number"`
	}
	if err := json.Unmarshal(out, &potential); err != nil {
		t.Fatalf("decode potential: %v", err)
	}
	if len(potential) != 1 || potential[0].Number != "V-3" {
		t.Errorf("potential stock wrong: %s", string(out))
	}
}

func TestHTTP_FinancialReport(t *testing.T) {
	ts := newTestServer(t)

	createAnimal(t, ts.URL, "alice", map[string]any{
		"type": "Sheep", "number": "S-1", "name": "Uno", "gender": "Male", "status": "Sold",
		"date_purchased": "2024-01-10", "purch_cost": "100.00",
		"date_sold": "2024-03-05", "sell_price": "150.00",
	})

	st, out := doReq(t, ts.URL, "GET", "/reports/financial?start=2024-01-01&end=2024-03-31", "alice", nil)
	if st != http.StatusOK {
		t.Fatalf("financial: expected 200, got %d body=%s", st, string(out))
	}
	var rep struct {
		TotalPurchases string `json:"total_purchases"`
		TotalSales     string `json:"total_sales"`
		TotalProfit    string `json:"total_profit"`
		Monthly        []struct {
			Month string `json:"month"`
		} `json:"monthly"`
	}
	if err := json.Unmarshal(out, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.TotalPurchases != "100.00" || rep.TotalSales != "150.00" || rep.TotalProfit != "50.00" {
		t.Errorf("totals wrong: %s", string(out))
	}
	// la serie mensual cubre el rango completo, sin huecos
	months := map[string]bool{}
	for _, m := range rep.Monthly {
		months[m.Month] = true
	}
	for _, m := range []string{"2024-01", "2024-02", "2024-03"} {
		if !months[m] {
			t.Errorf("missing month %s in series: %s", m, string(out))
		}
	}

	// rango invertido: 400
	if st, _ := doReq(t, ts.URL, "GET", "/reports/financial?start=2024-03-01&end=2024-01-01", "alice", nil); st != http.StatusBadRequest {
		t.Fatalf("inverted range: expected 400, got %d", st)
	}
}

func TestHTTP_InventoryReport(t *testing.T) {
	ts := newTestServer(t)

	createAnimal(t, ts.URL, "alice", map[string]any{
		"type": "Pig", "number": "P-1", "name": "Rosa", "gender": "Female", "status": "Alive",
		"purch_cost": "40.00",
	})
	createAnimal(t, ts.URL, "alice", map[string]any{
		"type": "Pig", "number": "P-2", "name": "Chano", "gender": "Male", "status": "Sold",
		"purch_cost": "35.00",
	})

	st, out := doReq(t, ts.URL, "GET", "/reports/inventory", "alice", nil)
	if st != http.StatusOK {
		t.Fatalf("inventory: expected 200, got %d body=%s", st, string(out))
	}
	var rep struct {
		Lines []struct {
			Type  string `json:"type"`
			Count int    `json:"count"`
			Value string `json:"value"`
		} `json:"lines"`
		TotalCount int    `json:"total_count"`
		TotalValue string `json:"total_value"`
	}
	if err := json.Unmarshal(out, &rep); err != nil {
		t.Fatalf("decode inventory: %v", err)
	}
	// solo el vivo cuenta
	if rep.TotalCount != 1 || rep.TotalValue != "40.00" {
		t.Errorf("inventory wrong: %s", string(out))
	}
	if len(rep.Lines) != 1 || rep.Lines[0].Type != "Pig" {
		t.Errorf("lines wrong: %s", string(out))
	}
}

func TestHTTP_ImageUpload(t *testing.T) {
	ts := newTestServer(t)

	a := createAnimal(t, ts.URL, "alice", map[string]any{
		"type": "Turkey", "number": "T-1", "name": "Pavo", "gender": "Male", "status": "Alive",
	})
	id := a["id"].(string)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="pavo.jpg"`)
	hdr.Set("Content-Type", "image/jpeg")
	fw, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create form part: %v", err)
	}
	if _, err := fw.Write([]byte("fake-jpeg-bytes")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	req, err := http.NewRequest("POST", ts.URL+"/animals/"+id+"/image", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Debug-User-ID", "alice")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer res.Body.Close()
	out, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d body=%s", res.StatusCode, string(out))
	}

	var upd map[string]any
	if err := json.Unmarshal(out, &upd); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	img, _ := upd["image"].(string)
	if img == "" {
		t.Fatal("expected stored image filename")
	}
}
