package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalog.List()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.catalog.Get(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(product))
}

type createProductRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         string `json:"price"`
	StockQuantity int32  `json:"stock_quantity"`
	ImageURL      string `json:"image_url"`
	Category      string `json:"category"`
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price", nil)
		return
	}

	product, err := s.catalog.Create(principal, catalog.CreateInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         price,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
		Category:      req.Category,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProductDTO(product))
}

type restockRequest struct {
	Qty int32 `json:"qty"`
}

func (s *Server) handleRestockProduct(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var req restockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	product, err := s.catalog.Restock(principal, r.PathValue("id"), req.Qty)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductDTO(product))
}
