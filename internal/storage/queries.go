package storage

const (
	// Transaction queries
	InsertTransactionIfAbsentQuery = `
		INSERT INTO transactions
			(transaction_id, source_account, destination_account, amount, currency, status, received_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $7)
		ON CONFLICT (transaction_id) DO NOTHING
		RETURNING transaction_id, source_account, destination_account, amount::text, currency, status,
			received_at, processed_at, updated_at
	`

	GetTransactionByIDQuery = `
		SELECT transaction_id, source_account, destination_account, amount::text, currency, status,
			received_at, processed_at, updated_at
		FROM transactions
		WHERE transaction_id = $1
	`

	// Переход статуса только из ожидаемого состояния
	TransitionTransactionStatusQuery = `
		UPDATE transactions
		SET status = $3,
			processed_at = CASE WHEN $5::boolean THEN $4 ELSE processed_at END,
			updated_at = $4
		WHERE transaction_id = $1 AND status = $2
		RETURNING transaction_id, source_account, destination_account, amount::text, currency, status,
			received_at, processed_at, updated_at
	`

	ListTransactionsQuery = `
		SELECT transaction_id, source_account, destination_account, amount::text, currency, status,
			received_at, processed_at, updated_at
		FROM transactions
		ORDER BY received_at DESC, transaction_id
		LIMIT $1 OFFSET $2
	`
)
