package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	headerIdempotencyKey  = "Idempotency-Key"
	idempotencyKeyTTL     = 24 * time.Hour
	defaultOrderListLimit = 100
)

type placeOrderRequest struct {
	ShippingAddress string `json:"shipping_address"`
}

// handlePlaceOrder оформляет заказ из корзины.
// Повтор запроса с тем же Idempotency-Key возвращает сохранённый ответ,
// не оформляя второй заказ.
func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body", nil)
		return
	}

	key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	if key != "" && s.idempotency != nil {
		if s.replayIdempotent(w, principal, key, body) {
			return
		}
	}

	var req placeOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	order, err := s.checkout.PlaceOrder(principal, req.ShippingAddress)
	if err != nil {
		s.finishIdempotent(key, statusForError(err), err)
		writeDomainError(w, err)
		return
	}

	dto := toOrderDTO(order)
	if key != "" && s.idempotency != nil {
		if encoded, marshalErr := json.Marshal(dto); marshalErr == nil {
			if markErr := s.idempotency.MarkDone(key, encoded, http.StatusCreated); markErr != nil {
				s.logger.WithError(markErr).WithField("idempotency_key", key).Warn("failed to mark idempotency key done")
			}
		}
	}

	writeJSON(w, http.StatusCreated, dto)
}

// replayIdempotent регистрирует ключ либо отвечает сохранённым результатом.
// Возвращает true, если ответ уже записан.
func (s *Server) replayIdempotent(w http.ResponseWriter, principal domain.Principal, key string, body []byte) bool {
	hash := requestHash(principal.UserID, body)

	record, err := s.idempotency.CreateProcessing(key, hash, time.Now().UTC().Add(idempotencyKeyTTL))
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		writeError(w, http.StatusConflict, "idempotency key reused with a different request", nil)
		return true
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		if record.Status == domain.IdempotencyStatusProcessing {
			writeError(w, http.StatusConflict, "request with this idempotency key is still being processed", nil)
			return true
		}
		if s.metrics != nil {
			s.metrics.RecordCheckoutReplay()
		}
		s.logger.WithField("idempotency_key", key).Info("replaying stored checkout response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(record.HTTPStatus)
		_, _ = w.Write(record.ResponseBody)
		return true
	default:
		s.logger.WithError(err).WithField("idempotency_key", key).Warn("idempotency lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error", nil)
		return true
	}
}

// finishIdempotent сохраняет неуспешный результат за ключом, чтобы повтор
// получил тот же ответ без повторного исполнения.
func (s *Server) finishIdempotent(key string, status int, execErr error) {
	if key == "" || s.idempotency == nil {
		return
	}
	encoded, err := json.Marshal(errorResponse{Error: execErr.Error()})
	if err != nil {
		return
	}
	if markErr := s.idempotency.MarkFailed(key, encoded, status); markErr != nil {
		s.logger.WithError(markErr).WithField("idempotency_key", key).Warn("failed to mark idempotency key failed")
	}
}

func requestHash(userID string, body []byte) string {
	sum := sha256.Sum256(append([]byte(userID+"\n"), body...))
	return hex.EncodeToString(sum[:])
}

// statusForError повторяет отображение writeDomainError без записи ответа.
func statusForError(err error) int {
	switch {
	case domain.IsInsufficientStock(err):
		return http.StatusConflict
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsConflict(err), domain.IsVersionConflict(err):
		return http.StatusConflict
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusUnprocessableEntity
	case isValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListOwnOrders(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	orders, err := s.orders.ListForUser(principal, listLimit(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTOs(orders))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	order, err := s.orders.Get(principal, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (s *Server) handleOrderTimeline(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	events, err := s.orders.Timeline(principal, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimelineDTOs(events))
}

func (s *Server) handleListAllOrders(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	orders, err := s.orders.ListAll(principal, listLimit(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTOs(orders))
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleSetOrderStatus(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	order, err := s.orders.SetStatus(principal, r.PathValue("id"), domain.OrderStatus(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (s *Server) handleSetPaymentStatus(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	order, err := s.orders.SetPaymentStatus(principal, r.PathValue("id"), domain.PaymentStatus(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func listLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultOrderListLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultOrderListLimit
	}
	return limit
}
