package httpapi

import (
	"errors"
	"net/http"

	"labstock/pkg/domain"
)

// errorBody is the wire shape of every failure response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    domain.Code `json:"code"`
	Message string      `json:"message"`

	// rule violation context
	Violations         []domain.Violation `json:"violations,omitempty"`
	BlockedLocationIDs []string           `json:"blocked_location_ids,omitempty"`
	NonLeafLocationIDs []string           `json:"non_leaf_location_ids,omitempty"`

	// pooled availability context
	ProductID  string `json:"product_id,omitempty"`
	LocationID string `json:"location_id,omitempty"`
	Requested  int    `json:"requested,omitempty"`
	Available  int    `json:"available,omitempty"`
}

// respondError maps domain errors onto HTTP statuses and a structured body.
func (r *Router) respondError(w http.ResponseWriter, err error) {
	status, detail := classify(err)
	if status >= http.StatusInternalServerError {
		r.logger.Error("request failed", "status", status, "error", err)
	}
	respondJSON(w, status, errorBody{Error: detail})
}

func classify(err error) (int, errorDetail) {
	var ruleErr domain.RuleViolationError
	if errors.As(err, &ruleErr) {
		return http.StatusConflict, errorDetail{
			Code:               domain.CodeInvalidTransition,
			Message:            ruleErr.Error(),
			Violations:         ruleErr.Result.Violations,
			BlockedLocationIDs: ruleErr.Result.EntityIDs(domain.CodeDeleteBlockedStock),
			NonLeafLocationIDs: ruleErr.Result.EntityIDs(domain.CodeLeafRuleViolation),
		}
	}

	var short domain.InsufficientStockError
	if errors.As(err, &short) {
		return http.StatusConflict, errorDetail{
			Code:       domain.CodeInsufficientStock,
			Message:    short.Error(),
			ProductID:  short.ProductID,
			LocationID: short.LocationID,
			Requested:  short.Requested,
			Available:  short.Available,
		}
	}

	var unavailable domain.StoreUnavailableError
	if errors.As(err, &unavailable) {
		return http.StatusServiceUnavailable, errorDetail{Code: domain.CodeStoreUnavailable, Message: unavailable.Error()}
	}

	var coder domain.Coder
	if !errors.As(err, &coder) {
		return http.StatusInternalServerError, errorDetail{Message: err.Error()}
	}

	code := coder.ErrorCode()
	detail := errorDetail{Code: code, Message: err.Error()}
	switch code {
	case domain.CodeStockNotFound, domain.CodeProductNotFound, domain.CodeRentalNotFound,
		domain.CodeLocationNotFound, domain.CodeTagNotFound:
		return http.StatusNotFound, detail
	case domain.CodeDuplicateProduct, domain.CodeProductInUse, domain.CodeAlreadyReturned,
		domain.CodeAlreadyDiscarded, domain.CodeStockDiscarded, domain.CodeNotInStock,
		domain.CodeLocationMismatch, domain.CodeInvalidTransition:
		return http.StatusConflict, detail
	default:
		return http.StatusBadRequest, detail
	}
}

// badRequest reports a malformed body before any domain logic runs.
func (r *Router) badRequest(w http.ResponseWriter, err error) {
	respondJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
		Code:    domain.CodeMissingFields,
		Message: "invalid request body: " + err.Error(),
	}})
}
