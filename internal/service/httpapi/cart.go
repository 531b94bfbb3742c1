package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	view, err := s.cart.Get(principal)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartViewDTO(view))
}

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Qty       int32  `json:"qty"`
}

func (s *Server) handleAddCartItem(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	view, err := s.cart.AddItem(principal, req.ProductID, req.Qty)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartViewDTO(view))
}

type setQuantityRequest struct {
	Qty int32 `json:"qty"`
}

func (s *Server) handleSetCartItemQuantity(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	view, err := s.cart.SetItemQuantity(principal, r.PathValue("productID"), req.Qty)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartViewDTO(view))
}

func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	view, err := s.cart.RemoveItem(principal, r.PathValue("productID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartViewDTO(view))
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	view, err := s.cart.Clear(principal)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartViewDTO(view))
}
