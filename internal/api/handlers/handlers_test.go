package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gw-transaction-webhook/internal/api/middlew"
	"gw-transaction-webhook/internal/downstream"
	"gw-transaction-webhook/internal/kafka"
	"gw-transaction-webhook/internal/models"
	"gw-transaction-webhook/internal/service"
	"gw-transaction-webhook/internal/storage/memory"
	"gw-transaction-webhook/pkg/response"
)

type testEnv struct {
	router *chi.Mux
	store  *memory.MemoryStorage
	events *eventRecorder
}

// eventRecorder counts finalized events per transaction_id.
type eventRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{counts: make(map[string]int)}
}

func (r *eventRecorder) SendTransactionFinalizedEvent(_ context.Context, event models.TransactionFinalizedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[event.TransactionID]++
	return nil
}

func (r *eventRecorder) Close() error { return nil }

func (r *eventRecorder) count(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[id]
}

func (r *eventRecorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.counts {
		n += c
	}
	return n
}

var _ kafka.Producer = (*eventRecorder)(nil)

func setupRouter(t *testing.T, delay time.Duration) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewMemoryStorage()
	events := newEventRecorder()

	finalizer := service.NewFinalizer(store, downstream.NewSimulated(0, 0, log), events, log)
	scheduler := service.NewScheduler(finalizer, service.SchedulerConfig{
		Delay:     delay,
		Timeout:   time.Second,
		Workers:   4,
		QueueSize: 100,
	}, log)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = scheduler.Shutdown(ctx)
	})

	svc := service.NewWebhookService(store, scheduler, 400*time.Millisecond, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlew.WithLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middlew.CORS)
	RegisterRoutes(r, svc)

	return &testEnv{router: r, store: store, events: events}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) getTransaction(t *testing.T, id string) (int, models.TransactionResponse) {
	t.Helper()

	rec := e.do(t, http.MethodGet, "/v1/transactions/"+id, "")
	var tx models.TransactionResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&tx))
	}
	return rec.Code, tx
}

func webhookBody(id string) string {
	return fmt.Sprintf(`{"transaction_id":%q,"source_account":"a","destination_account":"b","amount":150.50,"currency":"USD"}`, id)
}

func decodeWebhookResponse(t *testing.T, rec *httptest.ResponseRecorder) models.WebhookResponse {
	t.Helper()

	var resp models.WebhookResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestReceiveTransaction_FinalizedAfterDelay(t *testing.T) {
	delay := 200 * time.Millisecond
	env := setupRouter(t, delay)

	rec := env.do(t, http.MethodPost, "/v1/webhooks/transactions", webhookBody("txn_1"))

	require.Equal(t, http.StatusAccepted, rec.Code)
	resp := decodeWebhookResponse(t, rec)
	assert.Equal(t, "txn_1", resp.TransactionID)
	assert.Equal(t, models.StatusReceived, resp.Status)

	code, tx := env.getTransaction(t, "txn_1")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.StatusReceived, tx.Status)
	assert.Nil(t, tx.ProcessedAt)
	assert.Equal(t, "150.5", tx.Amount.String())
	assert.Equal(t, "USD", tx.Currency)

	require.Eventually(t, func() bool {
		_, tx := env.getTransaction(t, "txn_1")
		return tx.Status == models.StatusProcessed
	}, 3*time.Second, 20*time.Millisecond)

	_, tx = env.getTransaction(t, "txn_1")
	require.NotNil(t, tx.ProcessedAt)
	assert.GreaterOrEqual(t, tx.ProcessedAt.Sub(tx.ReceivedAt), delay)
	assert.Equal(t, tx.ReceivedAt, tx.CreatedAt)
}

func TestReceiveTransaction_Duplicate(t *testing.T) {
	env := setupRouter(t, 100*time.Millisecond)

	first := env.do(t, http.MethodPost, "/v1/webhooks/transactions", webhookBody("txn_2"))
	second := env.do(t, http.MethodPost, "/v1/webhooks/transactions", webhookBody("txn_2"))

	assert.Equal(t, http.StatusAccepted, first.Code)
	assert.Equal(t, http.StatusAccepted, second.Code)
	assert.Equal(t, 1, env.store.Len())

	require.Eventually(t, func() bool {
		_, tx := env.getTransaction(t, "txn_2")
		return tx.Status == models.StatusProcessed
	}, 3*time.Second, 20*time.Millisecond)

	_, before := env.getTransaction(t, "txn_2")

	third := env.do(t, http.MethodPost, "/v1/webhooks/transactions", webhookBody("txn_2"))
	require.Equal(t, http.StatusAccepted, third.Code)
	assert.Equal(t, models.StatusProcessed, decodeWebhookResponse(t, third).Status)

	time.Sleep(250 * time.Millisecond)

	_, after := env.getTransaction(t, "txn_2")
	assert.Equal(t, models.StatusProcessed, after.Status, "terminal state must not regress")
	require.NotNil(t, after.ProcessedAt)
	assert.True(t, before.ProcessedAt.Equal(*after.ProcessedAt))
	assert.Equal(t, 1, env.store.Len())
}

func TestReceiveTransaction_ConcurrentSameID(t *testing.T) {
	env := setupRouter(t, 100*time.Millisecond)
	const n = 50

	codes := make([]int, n)
	statuses := make([]models.TransactionStatus, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := env.do(t, http.MethodPost, "/v1/webhooks/transactions", webhookBody("txn_same"))
			codes[i] = rec.Code
			var resp models.WebhookResponse
			if json.NewDecoder(rec.Body).Decode(&resp) == nil {
				statuses[i] = resp.Status
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.Equal(t, http.StatusAccepted, codes[i], "request %d", i)
		assert.NotEmpty(t, statuses[i], "request %d", i)
	}
	assert.Equal(t, 1, env.store.Len())

	require.Eventually(t, func() bool {
		_, tx := env.getTransaction(t, "txn_same")
		return tx.Status == models.StatusProcessed
	}, 3*time.Second, 20*time.Millisecond)

	// every duplicate scheduled its own finalization, none may apply twice
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, env.events.count("txn_same"))
	assert.Equal(t, 1, env.store.Len())
}

func TestReceiveTransaction_BurstAllFinalized(t *testing.T) {
	env := setupRouter(t, 100*time.Millisecond)
	const total = 300

	for i := 0; i < total; i++ {
		rec := env.do(t, http.MethodPost, "/v1/webhooks/transactions", webhookBody(fmt.Sprintf("txn_burst_%d", i)))
		require.Equal(t, http.StatusAccepted, rec.Code)
	}
	require.Equal(t, total, env.store.Len())

	require.Eventually(t, func() bool {
		return env.events.total() == total
	}, 5*time.Second, 50*time.Millisecond)

	txs, err := env.store.List(context.Background(), models.ListParams{Limit: models.MaxListLimit})
	require.NoError(t, err)
	require.Len(t, txs, total)
	for _, tx := range txs {
		assert.Equal(t, models.StatusProcessed, tx.Status, tx.TransactionID)
		assert.Equal(t, 1, env.events.count(tx.TransactionID), tx.TransactionID)
	}
}

func TestReceiveTransaction_MissingAmount(t *testing.T) {
	env := setupRouter(t, 50*time.Millisecond)

	rec := env.do(t, http.MethodPost, "/v1/webhooks/transactions",
		`{"transaction_id":"txn_3","source_account":"a","destination_account":"b","currency":"USD"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body response.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "invalid_input", body.Error)
	assert.Equal(t, "amount", body.Field)

	code, _ := env.getTransaction(t, "txn_3")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, 0, env.store.Len())
}

func TestReceiveTransaction_InvalidPayloads(t *testing.T) {
	env := setupRouter(t, time.Hour)

	tests := []struct {
		name      string
		body      string
		wantError string
		wantField string
	}{
		{name: "malformed json", body: `{"transaction_id":`, wantError: "invalid_json"},
		{name: "empty transaction id", body: `{"transaction_id":" ","source_account":"a","destination_account":"b","amount":1,"currency":"USD"}`, wantError: "invalid_input", wantField: "transaction_id"},
		{name: "negative amount", body: `{"transaction_id":"t","source_account":"a","destination_account":"b","amount":-1,"currency":"USD"}`, wantError: "invalid_input", wantField: "amount"},
		{name: "too precise amount", body: `{"transaction_id":"t","source_account":"a","destination_account":"b","amount":1.001,"currency":"USD"}`, wantError: "invalid_input", wantField: "amount"},
		{name: "bad currency", body: `{"transaction_id":"t","source_account":"a","destination_account":"b","amount":1,"currency":"US"}`, wantError: "invalid_input", wantField: "currency"},
		{name: "padded transaction id", body: `{"transaction_id":" t ","source_account":"a","destination_account":"b","amount":1,"currency":"USD"}`, wantError: "invalid_input", wantField: "transaction_id"},
		{name: "amount beyond column range", body: `{"transaction_id":"t","source_account":"a","destination_account":"b","amount":"10000000000000000","currency":"USD"}`, wantError: "invalid_input", wantField: "amount"},
		{name: "missing source", body: `{"transaction_id":"t","destination_account":"b","amount":1,"currency":"USD"}`, wantError: "invalid_input", wantField: "source_account"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/v1/webhooks/transactions", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var body response.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantError, body.Error)
			assert.Equal(t, tt.wantField, body.Field)
		})
	}

	assert.Equal(t, 0, env.store.Len())
}

func TestReceiveTransaction_RespondsFast(t *testing.T) {
	env := setupRouter(t, 30*time.Second)

	for i := 0; i < 20; i++ {
		start := time.Now()
		rec := env.do(t, http.MethodPost, "/v1/webhooks/transactions", webhookBody(fmt.Sprintf("txn_fast_%d", i)))
		elapsed := time.Since(start)

		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Less(t, elapsed, 500*time.Millisecond)
	}
}

func TestReceiveTransaction_StorageFailure(t *testing.T) {
	env := setupRouter(t, time.Hour)
	env.store.WithError(fmt.Errorf("connection refused"))

	rec := env.do(t, http.MethodPost, "/v1/webhooks/transactions", webhookBody("txn_4"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body response.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "internal_error", body.Error)
}

func TestGetTransaction_NotFound(t *testing.T) {
	env := setupRouter(t, time.Hour)

	code, _ := env.getTransaction(t, "unknown")

	assert.Equal(t, http.StatusNotFound, code)
}

func TestListTransactions(t *testing.T) {
	env := setupRouter(t, time.Hour)

	for i := 0; i < 3; i++ {
		rec := env.do(t, http.MethodPost, "/v1/webhooks/transactions", webhookBody(fmt.Sprintf("txn_list_%d", i)))
		require.Equal(t, http.StatusAccepted, rec.Code)
		time.Sleep(2 * time.Millisecond)
	}

	rec := env.do(t, http.MethodGet, "/v1/transactions?limit=2&offset=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page []models.TransactionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	require.Len(t, page, 2)
	assert.Equal(t, "txn_list_2", page[0].TransactionID)
	assert.Equal(t, "txn_list_1", page[1].TransactionID)

	rec = env.do(t, http.MethodGet, "/v1/transactions?offset=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	require.Len(t, page, 1)
	assert.Equal(t, "txn_list_0", page[0].TransactionID)

	rec = env.do(t, http.MethodGet, "/v1/transactions?offset=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListTransactions_InvalidParams(t *testing.T) {
	env := setupRouter(t, time.Hour)

	for _, query := range []string{"limit=abc", "limit=0", "limit=-5", "offset=-1", "offset=x"} {
		rec := env.do(t, http.MethodGet, "/v1/transactions?"+query, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestHealth(t *testing.T) {
	env := setupRouter(t, time.Hour)

	rec := env.do(t, http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body models.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "HEALTHY", body.Status)
	_, err := time.Parse(time.RFC3339, body.CurrentTime)
	assert.NoError(t, err)
}

func TestHealth_FixedClock(t *testing.T) {
	h := &HealthHandler{now: func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("MSK", 3*3600)) }}

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.JSONEq(t, `{"status":"HEALTHY","current_time":"2025-01-02T00:04:05Z"}`, rec.Body.String())
}
