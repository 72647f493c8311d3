package handlers

import (
	"errors"
	"gw-transaction-webhook/internal/api/middlew"
	"gw-transaction-webhook/internal/custom_err"
	"gw-transaction-webhook/internal/models"
	"gw-transaction-webhook/internal/service"
	"gw-transaction-webhook/pkg/response"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type TransactionHandler struct {
	service service.Webhook
}

func NewTransactionHandler(service service.Webhook) *TransactionHandler {
	return &TransactionHandler{
		service: service,
	}
}

// GetTransaction godoc
// @Summary      Получить транзакцию
// @Description  Возвращает текущее состояние записи по transaction_id
// @Tags         transactions
// @Produce      json
// @Param        transaction_id path string true "Идентификатор транзакции"
// @Success      200 {object} models.TransactionResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /v1/transactions/{transaction_id} [get]
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "handler.GetTransaction"
	log := middlew.GetLogger(r.Context())

	id := chi.URLParam(r, "transactionID")
	if id == "" {
		response.WriteJSONError(w, log, http.StatusNotFound, "not_found", "Transaction not found")
		return
	}

	tx, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrNotFound):
			log.Info("transaction not found", slog.String("op", op), slog.String("transaction_id", id))
			response.WriteJSONError(w, log, http.StatusNotFound, "not_found", "Transaction not found")
		default:
			log.Error("failed to get transaction", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Failed to retrieve transaction")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, models.NewTransactionResponse(tx))
}

// ListTransactions godoc
// @Summary      Список транзакций
// @Description  Возвращает записи, отсортированные по received_at (новые первыми)
// @Tags         transactions
// @Produce      json
// @Param        limit  query int false "Размер страницы (по умолчанию 100, максимум 1000)"
// @Param        offset query int false "Смещение"
// @Success      200 {array}  models.TransactionResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /v1/transactions [get]
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	const op = "handler.ListTransactions"
	log := middlew.GetLogger(r.Context())

	limit, err := queryInt(r, "limit", models.DefaultListLimit)
	if err != nil || limit <= 0 {
		response.WriteJSONFieldError(w, log, http.StatusBadRequest, "invalid_request", "limit", "limit must be a positive integer")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		response.WriteJSONFieldError(w, log, http.StatusBadRequest, "invalid_request", "offset", "offset must be a non-negative integer")
		return
	}

	txs, err := h.service.ListTransactions(r.Context(), models.ListParams{Limit: limit, Offset: offset})
	if err != nil {
		log.Error("failed to list transactions", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Failed to list transactions")
		return
	}

	result := make([]models.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		result = append(result, models.NewTransactionResponse(tx))
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, result)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
