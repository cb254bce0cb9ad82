package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"labstock/internal/core"
)

func (r *Router) listProducts(w http.ResponseWriter, req *http.Request) {
	products, err := r.svc.ListProducts(req.Context())
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (r *Router) createProduct(w http.ResponseWriter, req *http.Request) {
	var input core.ProductInput
	if err := decodeJSON(req, &input); err != nil {
		r.badRequest(w, err)
		return
	}
	product, err := r.svc.CreateProduct(req.Context(), input)
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (r *Router) getProduct(w http.ResponseWriter, req *http.Request) {
	product, err := r.svc.GetProduct(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (r *Router) updateProduct(w http.ResponseWriter, req *http.Request) {
	var input core.ProductInput
	if err := decodeJSON(req, &input); err != nil {
		r.badRequest(w, err)
		return
	}
	product, err := r.svc.UpdateProduct(req.Context(), mux.Vars(req)["id"], input)
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (r *Router) deleteProduct(w http.ResponseWriter, req *http.Request) {
	if err := r.svc.DeleteProduct(req.Context(), mux.Vars(req)["id"]); err != nil {
		r.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) listStock(w http.ResponseWriter, req *http.Request) {
	entries, err := r.svc.StockList(req.Context())
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"stock": entries})
}

func (r *Router) addStock(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Requests []core.StockRequest `json:"requests"`
	}
	if err := decodeJSON(req, &body); err != nil {
		r.badRequest(w, err)
		return
	}
	units, err := r.svc.AddStock(req.Context(), body.Requests)
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"units": units})
}

func (r *Router) rentableInventory(w http.ResponseWriter, req *http.Request) {
	inv, err := r.svc.RentableInventoryView(req.Context())
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

func (r *Router) outstandingRentals(w http.ResponseWriter, req *http.Request) {
	out, err := r.svc.OutstandingRentalsView(req.Context())
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (r *Router) rent(w http.ResponseWriter, req *http.Request) {
	var body core.RentRequest
	if err := decodeJSON(req, &body); err != nil {
		r.badRequest(w, err)
		return
	}
	records, err := r.svc.Rent(req.Context(), body)
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"rentals": records})
}

func (r *Router) returnRentals(w http.ResponseWriter, req *http.Request) {
	var body core.ReturnRequest
	if err := decodeJSON(req, &body); err != nil {
		r.badRequest(w, err)
		return
	}
	records, err := r.svc.Return(req.Context(), body)
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"rentals": records})
}

func (r *Router) extendRental(w http.ResponseWriter, req *http.Request) {
	var body core.ExtendRequest
	if err := decodeJSON(req, &body); err != nil {
		r.badRequest(w, err)
		return
	}
	record, err := r.svc.ExtendRental(req.Context(), body)
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

func (r *Router) shortTermActive(w http.ResponseWriter, req *http.Request) {
	loans, err := r.svc.ShortTermActive(req.Context())
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"loans": loans})
}

func (r *Router) shortTermAvailable(w http.ResponseWriter, req *http.Request) {
	inv, err := r.svc.ShortTermAvailable(req.Context())
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

func (r *Router) listTransfers(w http.ResponseWriter, req *http.Request) {
	records, err := r.svc.ListTransfers(req.Context())
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transfers": records})
}

func (r *Router) transfer(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Requests []core.TransferRequest `json:"requests"`
	}
	if err := decodeJSON(req, &body); err != nil {
		r.badRequest(w, err)
		return
	}
	records, err := r.svc.Transfer(req.Context(), body.Requests)
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"transfers": records})
}

func (r *Router) transferCandidates(w http.ResponseWriter, req *http.Request) {
	inv, err := r.svc.RentableInventoryView(req.Context())
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

func (r *Router) listDiscarded(w http.ResponseWriter, req *http.Request) {
	units, err := r.svc.ListDiscarded(req.Context())
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"units": units})
}

func (r *Router) discardCandidates(w http.ResponseWriter, req *http.Request) {
	entries, err := r.svc.DiscardCandidates(req.Context())
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"stock": entries})
}

func (r *Router) discard(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Requests []core.DiscardRequest `json:"requests"`
		Reason   string                `json:"reason"`
		Operator string                `json:"operator"`
	}
	if err := decodeJSON(req, &body); err != nil {
		r.badRequest(w, err)
		return
	}
	for i := range body.Requests {
		if body.Requests[i].Reason == "" {
			body.Requests[i].Reason = body.Reason
		}
		if body.Requests[i].Operator == "" {
			body.Requests[i].Operator = body.Operator
		}
	}
	units, err := r.svc.Discard(req.Context(), body.Requests)
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"units": units})
}

func (r *Router) locationTree(w http.ResponseWriter, req *http.Request) {
	tree, err := r.svc.LocationTree(req.Context())
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tree": tree})
}

func (r *Router) replaceLocationTree(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Tree []core.LocationNode `json:"tree"`
	}
	if err := decodeJSON(req, &body); err != nil {
		r.badRequest(w, err)
		return
	}
	update, err := r.svc.ReplaceLocationTree(req.Context(), body.Tree)
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, update)
}

func (r *Router) locationUsage(w http.ResponseWriter, req *http.Request) {
	report, err := r.svc.LocationUsageReport(req.Context())
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"usage": report})
}

func (r *Router) listAssetTags(w http.ResponseWriter, req *http.Request) {
	tags, err := r.svc.ListAssetTags(req.Context())
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (r *Router) putAssetTag(w http.ResponseWriter, req *http.Request) {
	var body core.AssetTagRequest
	if err := decodeJSON(req, &body); err != nil {
		r.badRequest(w, err)
		return
	}
	action, err := r.svc.PutAssetTag(req.Context(), body)
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"action": action})
}

func (r *Router) findStockByTag(w http.ResponseWriter, req *http.Request) {
	unit, err := r.svc.FindStockByTag(req.Context(), mux.Vars(req)["tagID"])
	if err != nil {
		r.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, unit)
}
