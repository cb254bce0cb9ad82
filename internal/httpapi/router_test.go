package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"labstock/internal/core"
	"labstock/pkg/domain"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	return NewRouter(core.NewInMemoryService())
}

func doJSON(t *testing.T, r *Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %s: %v", rec.Body.String(), err)
	}
	return out
}

func seedTreeHTTP(t *testing.T, r *Router) (shelfA, shelfB string) {
	t.Helper()
	rec := doJSON(t, r, http.MethodPut, "/api/v1/location-tree", map[string]any{
		"tree": []map[string]any{{
			"label": "Lab 330",
			"children": []map[string]any{
				{"label": "Shelf A"},
				{"label": "Shelf B"},
			},
		}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("replace tree: %d %s", rec.Code, rec.Body.String())
	}
	update := decode[core.LocationTreeUpdate](t, rec)
	root := update.Tree[0]
	return root.Children[0].ID, root.Children[1].ID
}

func seedProductHTTP(t *testing.T, r *Router, model string, mode domain.AccountingMode) core.Product {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/api/v1/products", core.ProductInput{
		Name:  model,
		Brand: "Acme",
		Model: model,
		Mode:  mode,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: %d %s", rec.Code, rec.Body.String())
	}
	return decode[core.Product](t, rec)
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, newTestRouter(t), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProductCRUDOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	product := seedProductHTTP(t, r, "X1", domain.ModePooled)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/products/"+product.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/products/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing get: %d", rec.Code)
	}
	body := decode[map[string]map[string]any](t, rec)
	if body["error"]["code"] != string(domain.CodeProductNotFound) {
		t.Fatalf("body = %v", body)
	}

	// duplicate brand+model conflicts
	rec = doJSON(t, r, http.MethodPost, "/api/v1/products", core.ProductInput{Name: "X1", Brand: "acme", Model: "x1", Mode: domain.ModePooled})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodDelete, "/api/v1/products/"+product.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
}

func TestRentalFlowOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	shelfA, _ := seedTreeHTTP(t, r)
	product := seedProductHTTP(t, r, "BNC Cable", domain.ModePooled)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/stock", map[string]any{
		"requests": []core.StockRequest{{ProductID: product.ID, LocationID: shelfA, Quantity: 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add stock: %d %s", rec.Code, rec.Body.String())
	}

	due := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	rec = doJSON(t, r, http.MethodPost, "/api/v1/rentals", core.RentRequest{
		ProductID:  product.ID,
		LocationID: shelfA,
		Quantity:   2,
		Renter:     "kim",
		Borrower:   "kim",
		LoanType:   domain.LoanShortTerm,
		DueDate:    due,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("rent: %d %s", rec.Code, rec.Body.String())
	}

	// pool exhausted, availability is reported
	rec = doJSON(t, r, http.MethodPost, "/api/v1/rentals", core.RentRequest{
		ProductID:  product.ID,
		LocationID: shelfA,
		Quantity:   1,
		Renter:     "park",
		Borrower:   "park",
		LoanType:   domain.LoanShortTerm,
		DueDate:    due,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("overdraw: %d %s", rec.Code, rec.Body.String())
	}
	body := decode[map[string]map[string]any](t, rec)
	if body["error"]["code"] != string(domain.CodeInsufficientStock) || body["error"]["requested"] != float64(1) {
		t.Fatalf("body = %v", body)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v1/rentals/returns", core.ReturnRequest{
		ProductID:  product.ID,
		LocationID: shelfA,
		Renter:     "kim",
		Borrower:   "kim",
		LoanType:   domain.LoanShortTerm,
		Quantity:   2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("return: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/rentals", nil)
	out := decode[core.OutstandingRentals](t, rec)
	if len(out.Groups) != 0 || len(out.Loans) != 0 {
		t.Fatalf("outstanding = %+v", out)
	}
}

func TestTreeReplaceConflictCarriesBlockedIDs(t *testing.T) {
	r := newTestRouter(t)
	shelfA, shelfB := seedTreeHTTP(t, r)
	product := seedProductHTTP(t, r, "Oscilloscope", domain.ModePropertyManaged)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/stock", map[string]any{
		"requests": []core.StockRequest{{ProductID: product.ID, LocationID: shelfA, Quantity: 1}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add stock: %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPut, "/api/v1/location-tree", map[string]any{
		"tree": []map[string]any{{
			"label":    "Lab 330",
			"children": []map[string]any{{"id": shelfB, "label": "Shelf B"}},
		}},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("replace: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Error struct {
			BlockedLocationIDs []string `json:"blocked_location_ids"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Error.BlockedLocationIDs) != 1 || body.Error.BlockedLocationIDs[0] != shelfA {
		t.Fatalf("blocked = %v", body.Error.BlockedLocationIDs)
	}
}

func TestDiscardFlowOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	shelfA, _ := seedTreeHTTP(t, r)
	product := seedProductHTTP(t, r, "BNC Cable", domain.ModePooled)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/stock", map[string]any{
		"requests": []core.StockRequest{{ProductID: product.ID, LocationID: shelfA, Quantity: 3}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add stock: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/discards", nil)
	candidates := decode[map[string][]core.StockEntry](t, rec)
	if len(candidates["stock"]) != 3 {
		t.Fatalf("candidates = %d", len(candidates["stock"]))
	}

	// shared envelope fills the per-item reason and operator
	rec = doJSON(t, r, http.MethodPost, "/api/v1/discards", map[string]any{
		"requests": []core.DiscardRequest{{ProductID: product.ID, LocationID: shelfA, Quantity: 2}},
		"reason":   "water damage",
		"operator": "kim",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("discard: %d %s", rec.Code, rec.Body.String())
	}
	var discarded struct {
		Units []core.StockUnit `json:"units"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &discarded); err != nil || len(discarded.Units) != 2 {
		t.Fatalf("units = %+v err = %v", discarded, err)
	}
	if discarded.Units[0].DiscardInfo == nil || discarded.Units[0].DiscardInfo.Operator != "kim" {
		t.Fatalf("discard info = %+v", discarded.Units[0].DiscardInfo)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/discards/history", nil)
	history := decode[map[string][]core.StockUnit](t, rec)
	if len(history["units"]) != 2 {
		t.Fatalf("history = %d", len(history["units"]))
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/discards", nil)
	candidates = decode[map[string][]core.StockEntry](t, rec)
	if len(candidates["stock"]) != 1 {
		t.Fatalf("remaining candidates = %d", len(candidates["stock"]))
	}
}

func TestMalformedBodyRejected(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString(`{"name":`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAssetTagEndpoints(t *testing.T) {
	r := newTestRouter(t)
	shelfA, _ := seedTreeHTTP(t, r)
	product := seedProductHTTP(t, r, "Oscilloscope", domain.ModePropertyManaged)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/stock", map[string]any{
		"requests": []core.StockRequest{{ProductID: product.ID, LocationID: shelfA, Quantity: 1}},
	})
	var created struct {
		Units []core.StockUnit `json:"units"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || len(created.Units) != 1 {
		t.Fatalf("units = %+v err = %v", created, err)
	}
	unit := created.Units[0]

	rec = doJSON(t, r, http.MethodPut, "/api/v1/asset-tags", core.AssetTagRequest{StockID: unit.ID, TagID: "A-0001"})
	if rec.Code != http.StatusOK {
		t.Fatalf("put tag: %d %s", rec.Code, rec.Body.String())
	}
	action := decode[map[string]string](t, rec)
	if action["action"] != string(core.TagCreated) {
		t.Fatalf("action = %v", action)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/asset-tags/A-0001", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup: %d", rec.Code)
	}
	found := decode[core.StockUnit](t, rec)
	if found.ID != unit.ID {
		t.Fatalf("found = %+v", found)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/asset-tags/A-0404", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing lookup: %d", rec.Code)
	}
}

func TestMethodRouting(t *testing.T) {
	r := newTestRouter(t)
	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/api/v1/stock"},
		{http.MethodPost, "/api/v1/location-tree"},
	} {
		rec := doJSON(t, r, tc.method, tc.path, nil)
		if rec.Code != http.StatusMethodNotAllowed && rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s: %d", tc.method, tc.path, rec.Code)
		}
	}
}
