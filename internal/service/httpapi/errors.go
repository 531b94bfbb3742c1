package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// errorResponse — формат всех ошибок API.
type errorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string, details map[string]any) {
	writeJSON(w, status, errorResponse{Error: message, Details: details})
}

// writeDomainError отображает доменную ошибку на HTTP-статус.
func writeDomainError(w http.ResponseWriter, err error) {
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeError(w, http.StatusConflict, stockErr.Error(), map[string]any{
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
		return
	}

	switch {
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case domain.IsConflict(err),
		domain.IsVersionConflict(err),
		errors.Is(err, domain.ErrIdempotencyHashMismatch):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, domain.ErrEmptyCart):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func isValidationError(err error) bool {
	validation := []error{
		domain.ErrProductNameRequired,
		domain.ErrProductPriceNegative,
		domain.ErrStockNegative,
		domain.ErrShippingAddressRequired,
		domain.ErrItemQtyInvalid,
		domain.ErrItemPriceInvalid,
		domain.ErrRatingOutOfRange,
		domain.ErrReviewProductRequired,
		domain.ErrReviewProductImmutable,
		domain.ErrOrderStatusInvalid,
		domain.ErrPaymentStatusInvalid,
	}
	for _, target := range validation {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
