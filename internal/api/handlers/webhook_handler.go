package handlers

import (
	"encoding/json"
	"errors"
	"gw-transaction-webhook/internal/api/middlew"
	"gw-transaction-webhook/internal/custom_err"
	"gw-transaction-webhook/internal/models"
	"gw-transaction-webhook/internal/service"
	"gw-transaction-webhook/pkg/response"
	"log/slog"
	"net/http"
)

const maxWebhookBodyBytes = 1 << 20

type WebhookHandler struct {
	service service.Webhook
}

func NewWebhookHandler(service service.Webhook) *WebhookHandler {
	return &WebhookHandler{
		service: service,
	}
}

// ReceiveTransaction godoc
// @Summary      Принять webhook транзакции
// @Description  Сохраняет транзакцию в статусе RECEIVED и сразу отвечает 202. Финализация выполняется в фоне.
// @Description  Повторная доставка того же transaction_id не создает новую запись и возвращает текущий статус.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        request body models.WebhookRequest true "Данные транзакции"
// @Success      202 {object} models.WebhookResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /v1/webhooks/transactions [post]
func (h *WebhookHandler) ReceiveTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "handler.ReceiveTransaction"
	log := middlew.GetLogger(r.Context())

	defer r.Body.Close()

	var req models.WebhookRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)).Decode(&req); err != nil {
		log.Warn("invalid JSON", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	resp, err := h.service.Accept(r.Context(), req)
	if err != nil {
		var vErr *custom_err.ValidationError
		switch {
		case errors.As(err, &vErr):
			log.Warn("invalid webhook payload",
				slog.String("op", op),
				slog.String("field", vErr.Field),
				slog.String("reason", vErr.Reason))
			response.WriteJSONFieldError(w, log, http.StatusBadRequest, "invalid_input", vErr.Field, vErr.Error())
		case errors.Is(err, custom_err.ErrInvalidInput):
			log.Warn("invalid webhook payload", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_input", err.Error())
		default:
			log.Error("failed to accept webhook", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Failed to record transaction")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusAccepted, resp)
}
