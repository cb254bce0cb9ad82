// Package httpapi exposes the ledger service over a JSON REST surface.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"labstock/internal/core"
)

// Router wraps the mux router around one ledger service.
type Router struct {
	*mux.Router
	svc    *core.Service
	logger core.Logger
}

// Option customizes router construction.
type Option func(*Router)

// WithLogger installs the request error logger.
func WithLogger(l core.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetricsHandler mounts a metrics endpoint, typically promhttp.
func WithMetricsHandler(h http.Handler) Option {
	return func(r *Router) {
		if h != nil {
			r.Handle("/metrics", h).Methods(http.MethodGet)
		}
	}
}

// NewRouter builds the full route table over svc.
func NewRouter(svc *core.Service, options ...Option) *Router {
	r := &Router{
		Router: mux.NewRouter(),
		svc:    svc,
		logger: noopLogger{},
	}
	for _, apply := range options {
		apply(r)
	}

	r.HandleFunc("/health", r.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	products := api.PathPrefix("/products").Subrouter()
	products.HandleFunc("", r.listProducts).Methods(http.MethodGet)
	products.HandleFunc("", r.createProduct).Methods(http.MethodPost)
	products.HandleFunc("/{id}", r.getProduct).Methods(http.MethodGet)
	products.HandleFunc("/{id}", r.updateProduct).Methods(http.MethodPut)
	products.HandleFunc("/{id}", r.deleteProduct).Methods(http.MethodDelete)

	stock := api.PathPrefix("/stock").Subrouter()
	stock.HandleFunc("", r.listStock).Methods(http.MethodGet)
	stock.HandleFunc("", r.addStock).Methods(http.MethodPost)
	stock.HandleFunc("/rentable", r.rentableInventory).Methods(http.MethodGet)

	rentals := api.PathPrefix("/rentals").Subrouter()
	rentals.HandleFunc("", r.outstandingRentals).Methods(http.MethodGet)
	rentals.HandleFunc("", r.rent).Methods(http.MethodPost)
	rentals.HandleFunc("/returns", r.returnRentals).Methods(http.MethodPost)
	rentals.HandleFunc("/extend", r.extendRental).Methods(http.MethodPost)
	rentals.HandleFunc("/short-term/active", r.shortTermActive).Methods(http.MethodGet)
	rentals.HandleFunc("/short-term/available", r.shortTermAvailable).Methods(http.MethodGet)

	transfers := api.PathPrefix("/transfers").Subrouter()
	transfers.HandleFunc("", r.listTransfers).Methods(http.MethodGet)
	transfers.HandleFunc("", r.transfer).Methods(http.MethodPost)
	transfers.HandleFunc("/candidates", r.transferCandidates).Methods(http.MethodGet)

	discards := api.PathPrefix("/discards").Subrouter()
	discards.HandleFunc("", r.discardCandidates).Methods(http.MethodGet)
	discards.HandleFunc("", r.discard).Methods(http.MethodPost)
	discards.HandleFunc("/history", r.listDiscarded).Methods(http.MethodGet)

	tree := api.PathPrefix("/location-tree").Subrouter()
	tree.HandleFunc("", r.locationTree).Methods(http.MethodGet)
	tree.HandleFunc("", r.replaceLocationTree).Methods(http.MethodPut)
	tree.HandleFunc("/usage", r.locationUsage).Methods(http.MethodGet)

	tags := api.PathPrefix("/asset-tags").Subrouter()
	tags.HandleFunc("", r.listAssetTags).Methods(http.MethodGet)
	tags.HandleFunc("", r.putAssetTag).Methods(http.MethodPut)
	tags.HandleFunc("/{tagID}", r.findStockByTag).Methods(http.MethodGet)

	return r
}

func (r *Router) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON parses the request body into dst, rejecting unknown fields.
func decodeJSON(req *http.Request, dst any) error {
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
