package models

import (
	"encoding/json"
	"strings"
	"time"

	"gw-transaction-webhook/internal/custom_err"

	"github.com/shopspring/decimal"
)

// TransactionStatus состояние жизненного цикла транзакции
type TransactionStatus string

const (
	StatusReceived   TransactionStatus = "RECEIVED"
	StatusProcessing TransactionStatus = "PROCESSING"
	StatusProcessed  TransactionStatus = "PROCESSED"
	StatusFailed     TransactionStatus = "FAILED"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case StatusReceived, StatusProcessing, StatusProcessed, StatusFailed:
		return true
	}
	return false
}

// IsTerminal сообщает, что после этого статуса переходы запрещены
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// CanTransitionTo допускает только движение вперед:
// RECEIVED -> PROCESSING -> PROCESSED | FAILED.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case StatusReceived:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusProcessed || next == StatusFailed
	}
	return false
}

const (
	CurrencyCodeLength = 3
	AmountScale        = 2
	AmountPrecision    = 18

	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// MaxAmount исключающая верхняя граница суммы, столбец NUMERIC(18,2)
var MaxAmount = decimal.New(1, AmountPrecision-AmountScale)

// Transaction запись о транзакции, полученной через webhook
type Transaction struct {
	TransactionID      string            `json:"transaction_id" db:"transaction_id"`
	SourceAccount      string            `json:"source_account" db:"source_account"`
	DestinationAccount string            `json:"destination_account" db:"destination_account"`
	Amount             decimal.Decimal   `json:"amount" db:"amount"`
	Currency           string            `json:"currency" db:"currency"`
	Status             TransactionStatus `json:"status" db:"status"`
	ReceivedAt         time.Time         `json:"received_at" db:"received_at"`
	ProcessedAt        *time.Time        `json:"processed_at" db:"processed_at"`
	UpdatedAt          time.Time         `json:"updated_at" db:"updated_at"`
}

// WebhookRequest тело POST /v1/webhooks/transactions.
// Поля-указатели позволяют отличить отсутствующее поле от пустого.
type WebhookRequest struct {
	TransactionID      *string          `json:"transaction_id" example:"txn_1"`
	SourceAccount      *string          `json:"source_account" example:"acc_src"`
	DestinationAccount *string          `json:"destination_account" example:"acc_dst"`
	Amount             *decimal.Decimal `json:"amount" swaggertype:"number" example:"150.50"`
	Currency           *string          `json:"currency" example:"USD"`
}

func (r WebhookRequest) Validate() error {
	if err := requireString("transaction_id", r.TransactionID); err != nil {
		return err
	}
	if id := *r.TransactionID; id != strings.TrimSpace(id) {
		return custom_err.NewValidationError("transaction_id", "must not have leading or trailing whitespace", nil)
	}
	if err := requireString("source_account", r.SourceAccount); err != nil {
		return err
	}
	if err := requireString("destination_account", r.DestinationAccount); err != nil {
		return err
	}

	if r.Amount == nil {
		return custom_err.NewValidationError("amount", "field is required", custom_err.ErrInvalidAmount)
	}
	if r.Amount.IsNegative() {
		return custom_err.NewValidationError("amount", "must be non-negative", custom_err.ErrInvalidAmount)
	}
	if r.Amount.GreaterThanOrEqual(MaxAmount) {
		return custom_err.NewValidationError("amount", "must be less than "+MaxAmount.String(), custom_err.ErrInvalidAmount)
	}
	if !r.Amount.Equal(r.Amount.Truncate(AmountScale)) {
		return custom_err.NewValidationError("amount", "must have at most 2 decimal places", custom_err.ErrInvalidAmount)
	}

	if r.Currency == nil {
		return custom_err.NewValidationError("currency", "field is required", custom_err.ErrInvalidCurrency)
	}
	if !isCurrencyCode(*r.Currency) {
		return custom_err.NewValidationError("currency", "must be a 3-letter code", custom_err.ErrInvalidCurrency)
	}

	return nil
}

// ToTransaction строит новую запись в статусе RECEIVED. Вызывать после Validate.
func (r WebhookRequest) ToTransaction(now time.Time) *Transaction {
	return &Transaction{
		TransactionID:      *r.TransactionID,
		SourceAccount:      *r.SourceAccount,
		DestinationAccount: *r.DestinationAccount,
		Amount:             *r.Amount,
		Currency:           strings.ToUpper(*r.Currency),
		Status:             StatusReceived,
		ReceivedAt:         now,
		UpdatedAt:          now,
	}
}

func requireString(field string, v *string) error {
	if v == nil {
		return custom_err.NewValidationError(field, "field is required", nil)
	}
	if strings.TrimSpace(*v) == "" {
		return custom_err.NewValidationError(field, "must be a non-empty string", nil)
	}
	return nil
}

func isCurrencyCode(code string) bool {
	if len(code) != CurrencyCodeLength {
		return false
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

// WebhookResponse ответ 202 на принятый webhook
type WebhookResponse struct {
	TransactionID string            `json:"transaction_id" example:"txn_1"`
	Status        TransactionStatus `json:"status" example:"RECEIVED"`
}

// TransactionResponse представление записи для клиентов API
type TransactionResponse struct {
	TransactionID      string            `json:"transaction_id" example:"txn_1"`
	SourceAccount      string            `json:"source_account" example:"acc_src"`
	DestinationAccount string            `json:"destination_account" example:"acc_dst"`
	Amount             json.Number       `json:"amount" swaggertype:"number" example:"150.5"`
	Currency           string            `json:"currency" example:"USD"`
	Status             TransactionStatus `json:"status" example:"PROCESSED"`
	ReceivedAt         time.Time         `json:"received_at"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	ProcessedAt        *time.Time        `json:"processed_at"`
}

func NewTransactionResponse(t *Transaction) TransactionResponse {
	resp := TransactionResponse{
		TransactionID:      t.TransactionID,
		SourceAccount:      t.SourceAccount,
		DestinationAccount: t.DestinationAccount,
		Amount:             json.Number(t.Amount.String()),
		Currency:           t.Currency,
		Status:             t.Status,
		ReceivedAt:         t.ReceivedAt.UTC(),
		CreatedAt:          t.ReceivedAt.UTC(),
		UpdatedAt:          t.UpdatedAt.UTC(),
	}
	if t.ProcessedAt != nil {
		processed := t.ProcessedAt.UTC()
		resp.ProcessedAt = &processed
	}
	return resp
}

// ListParams пагинация списка транзакций
type ListParams struct {
	Limit  int
	Offset int
}

// Normalize подставляет значения по умолчанию и ограничивает limit сверху.
func (p ListParams) Normalize() ListParams {
	if p.Limit <= 0 {
		p.Limit = DefaultListLimit
	}
	if p.Limit > MaxListLimit {
		p.Limit = MaxListLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// HealthResponse ответ liveness-пробы
type HealthResponse struct {
	Status      string `json:"status" example:"HEALTHY"`
	CurrentTime string `json:"current_time" example:"2025-01-01T00:00:00Z"`
}
