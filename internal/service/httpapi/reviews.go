package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type submitReviewRequest struct {
	ProductID string `json:"product_id"`
	Rating    int32  `json:"rating"`
	Comment   string `json:"comment"`
}

type reviewWithAggregateDTO struct {
	Review  reviewDTO          `json:"review"`
	Product ratingAggregateDTO `json:"product_rating"`
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var req submitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	created, agg, err := s.reviews.Submit(principal, req.ProductID, req.Rating, req.Comment)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reviewWithAggregateDTO{
		Review:  toReviewDTO(created),
		Product: toRatingAggregateDTO(agg),
	})
}

type updateReviewRequest struct {
	ProductID string `json:"product_id"`
	Rating    int32  `json:"rating"`
	Comment   string `json:"comment"`
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var req updateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	updated, agg, err := s.reviews.Update(principal, r.PathValue("id"), req.ProductID, req.Rating, req.Comment)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reviewWithAggregateDTO{
		Review:  toReviewDTO(updated),
		Product: toRatingAggregateDTO(agg),
	})
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	agg, err := s.reviews.Delete(principal, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product_rating": toRatingAggregateDTO(agg),
	})
}

func (s *Server) handleListProductReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.reviews.ListByProduct(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewDTOs(reviews))
}

func (s *Server) handleListOwnReviews(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	reviews, err := s.reviews.ListOwn(principal)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewDTOs(reviews))
}

func (s *Server) handleListAllReviews(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	reviews, err := s.reviews.ListAll(principal, listLimit(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewDTOs(reviews))
}
