package models

import (
	"time"

	"github.com/google/uuid"
)

// событие о завершении обработки транзакции (PROCESSED или FAILED)
type TransactionFinalizedEvent struct {
	EventID            uuid.UUID         `json:"event_id"`            // Уникальный ID события
	TransactionID      string            `json:"transaction_id"`      // ID транзакции из webhook
	SourceAccount      string            `json:"source_account"`      // Счет отправителя
	DestinationAccount string            `json:"destination_account"` // Счет получателя
	Amount             string            `json:"amount"`              // Сумма в десятичной записи
	Currency           string            `json:"currency"`            // Валюта
	Status             TransactionStatus `json:"status"`              // Терминальный статус
	Reason             string            `json:"reason,omitempty"`    // Причина FAILED
	ProcessedAt        time.Time         `json:"processed_at"`        // Время перехода
}

func NewTransactionFinalizedEvent(t *Transaction, reason string) TransactionFinalizedEvent {
	event := TransactionFinalizedEvent{
		EventID:            uuid.New(),
		TransactionID:      t.TransactionID,
		SourceAccount:      t.SourceAccount,
		DestinationAccount: t.DestinationAccount,
		Amount:             t.Amount.String(),
		Currency:           t.Currency,
		Status:             t.Status,
		Reason:             reason,
	}
	if t.ProcessedAt != nil {
		event.ProcessedAt = t.ProcessedAt.UTC()
	}
	return event
}
