package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rbxstore/fulfillment-service/internal/delivery/http/handlers"
	"github.com/rbxstore/fulfillment-service/internal/delivery/http/middleware"
	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/guard"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/memory"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/metrics"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/notifier"
	"github.com/rbxstore/fulfillment-service/internal/usecase/chat"
	"github.com/rbxstore/fulfillment-service/internal/usecase/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	internalKey = "internal-secret"
	serverKey   = "SB-Mid-server-router"
	jwtSecret   = "jwt-secret"
)

type stubDriver struct {
	err  error
	last domain.PurchaseRequest
}

func (d *stubDriver) Purchase(_ context.Context, req domain.PurchaseRequest) error {
	d.last = req
	return d.err
}

type testServer struct {
	txs    *memory.TransactionRepository
	driver *stubDriver
	tokens *middleware.TokenManager
	h      Handlers
	opts   Options
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewFulfillmentMetrics(reg)
	validate := handlers.NewValidator()

	s := &testServer{
		txs:    memory.NewTransactionRepository(),
		driver: &stubDriver{},
		tokens: middleware.NewTokenManager(jwtSecret, time.Hour),
	}
	payments := payment.NewDefaultPaymentUsecase(
		payment.Config{MidtransServerKey: serverKey, DuitkuMerchantCode: "D1", DuitkuAPIKey: "dk"},
		s.txs, memory.NewUserLedger("user-1"), nil, memory.NewGatewayEventLogger(), nil, nil, m,
	)
	chats := chat.NewDefaultChatUsecase(
		chat.Config{RateLimit: 2, RateWindow: time.Minute, IdempotencyTTL: 5 * time.Second},
		memory.NewChatRepository(), guard.NewMemoryStore(), notifier.LogNotifier{}, m,
	)
	s.h = Handlers{
		Webhook: handlers.NewWebhookHandler(payments, validate),
		BuyPass: handlers.NewBuyPassHandler(s.driver, validate),
		Chat:    handlers.NewChatHandler(chats, validate),
		Health:  &handlers.HealthHandler{},
	}
	s.opts = Options{InternalKey: internalKey, Tokens: s.tokens, Gatherer: reg}
	return s
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	app := New(s.h, s.opts)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body
}

func jsonRequest(method, target string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (s *testServer) seed(t *testing.T, id, orderID string) {
	t.Helper()
	require.NoError(t, s.txs.Create(context.Background(), &domain.Transaction{
		ID:            id,
		InvoiceID:     "INV-" + id,
		UserID:        "user-1",
		CorrelationID: orderID,
		ServiceType:   domain.ServiceRobux,
		Details:       domain.RobuxDetails{Amount: 100},
		FinalAmount:   decimal.NewFromInt(10000),
		PaymentStatus: domain.PaymentPending,
		OrderStatus:   domain.OrderWaitingPayment,
	}))
}

func TestMidtransWebhook(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "tx-1", "ORDER-1")

	status, body := s.do(t, jsonRequest(http.MethodPost, "/webhooks/midtrans", map[string]string{
		"order_id":           "ORDER-1",
		"status_code":        "200",
		"gross_amount":       "10000.00",
		"transaction_status": "settlement",
		"signature_key":      payment.MidtransSignature("ORDER-1", "200", "10000.00", serverKey),
	}))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "ORDER-1", data["correlationId"])
	updated := data["transactionsUpdated"].([]any)
	require.Len(t, updated, 1)

	tx, err := s.txs.GetByID(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSettlement, tx.PaymentStatus)
}

func TestMidtransWebhook_BadSignature(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "tx-1", "ORDER-1")

	status, body := s.do(t, jsonRequest(http.MethodPost, "/webhooks/midtrans", map[string]string{
		"order_id":           "ORDER-1",
		"status_code":        "200",
		"gross_amount":       "10000.00",
		"transaction_status": "settlement",
		"signature_key":      "forged",
	}))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, body["success"])
}

func TestMidtransWebhook_MissingFields(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, jsonRequest(http.MethodPost, "/webhooks/midtrans", map[string]string{"order_id": "X"}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["errors"], "signature_key")
}

func TestDuitkuWebhook_FormEncoded(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "tx-1", "ORDER-2")

	form := url.Values{}
	form.Set("merchantCode", "D1")
	form.Set("amount", "10000")
	form.Set("merchantOrderId", "ORDER-2")
	form.Set("resultCode", "00")
	form.Set("signature", payment.DuitkuSignature("D1", "10000", "ORDER-2", "dk"))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/duitku", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body := s.do(t, req)
	require.Equal(t, http.StatusOK, status, body)
	tx, err := s.txs.GetByID(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderProcessing, tx.OrderStatus)
}

func TestWebhook_UnknownOrderIs404(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, jsonRequest(http.MethodPost, "/webhooks/midtrans", map[string]string{
		"order_id":           "NOPE",
		"status_code":        "200",
		"gross_amount":       "1",
		"transaction_status": "settlement",
		"signature_key":      payment.MidtransSignature("NOPE", "200", "1", serverKey),
	}))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWebhookPing(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, httptest.NewRequest(http.MethodGet, "/webhooks/duitku", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "duitku", body["data"].(map[string]any)["gateway"])
}

func TestBuyPass_RequiresInternalKey(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, jsonRequest(http.MethodPost, "/internal/buy-pass", map[string]any{
		"credential": "c", "productId": "1", "productName": "VIP", "price": 100,
	}))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestBuyPass_Success(t *testing.T) {
	s := newTestServer(t)
	req := jsonRequest(http.MethodPost, "/internal/buy-pass", map[string]any{
		"credential": "cookie", "productId": "42", "productName": "VIP", "price": 100,
	})
	req.Header.Set(middleware.InternalKeyHeader, internalKey)

	status, body := s.do(t, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, domain.PurchaseRequest{Cookie: "cookie", ProductID: "42", ProductName: "VIP", ExpectedPrice: 100}, s.driver.last)
}

func TestBuyPass_PriceMismatch(t *testing.T) {
	s := newTestServer(t)
	s.driver.err = &domain.PurchaseError{Kind: domain.KindPriceMismatch, Expected: 100, Actual: 120}
	req := jsonRequest(http.MethodPost, "/internal/buy-pass", map[string]any{
		"credential": "cookie", "productId": "42", "productName": "VIP", "price": 100,
	})
	req.Header.Set(middleware.InternalKeyHeader, internalKey)

	status, body := s.do(t, req)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])
	assert.EqualValues(t, 100, body["expectedPrice"])
	assert.EqualValues(t, 120, body["actualPrice"])
}

func TestBuyPass_FailureHidesRawError(t *testing.T) {
	s := newTestServer(t)
	s.driver.err = &domain.PurchaseError{Kind: domain.KindElementTimeout, Err: context.DeadlineExceeded}
	req := jsonRequest(http.MethodPost, "/internal/buy-pass", map[string]any{
		"credential": "cookie", "productId": "42", "productName": "VIP", "price": 100,
	})
	req.Header.Set(middleware.InternalKeyHeader, internalKey)

	status, body := s.do(t, req)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "element_timeout", body["kind"])
	assert.NotContains(t, body["message"], "deadline")
}

func TestChat_RequiresToken(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, jsonRequest(http.MethodPost, "/chat/rooms/r1/messages", map[string]string{"content": "hi"}))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestChat_SendDuplicateAndRateLimit(t *testing.T) {
	s := newTestServer(t)
	token, err := s.tokens.Generate("user-1", "buyer")
	require.NoError(t, err)
	send := func(content string) (int, map[string]any) {
		req := jsonRequest(http.MethodPost, "/chat/rooms/r1/messages", map[string]string{"content": content})
		req.Header.Set("Authorization", "Bearer "+token)
		return s.do(t, req)
	}

	status, body := send("halo")
	require.Equal(t, http.StatusCreated, status, body)
	first := body["data"].(map[string]any)
	assert.Equal(t, "user-1", first["senderId"])

	status, body = send("halo")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["data"].(map[string]any)["duplicate"])
	assert.Equal(t, first["id"], body["data"].(map[string]any)["id"])

	status, _ = send("kedua")
	require.Equal(t, http.StatusCreated, status)
	status, _ = send("ketiga")
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestMetricsAndHealth(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, status)
}

type recordingHolds struct {
	got domain.HoldResolution
	err error
}

func (r *recordingHolds) ReleaseHold(_ context.Context, txID, _ string, resolution domain.HoldResolution) (*domain.Transaction, error) {
	r.got = resolution
	if r.err != nil {
		return nil, r.err
	}
	return &domain.Transaction{ID: txID, OrderStatus: domain.OrderCompleted}, nil
}

func TestReleaseHold_PassesResolution(t *testing.T) {
	s := newTestServer(t)
	holds := &recordingHolds{}
	s.h.Transaction = handlers.NewTransactionHandler(holds)

	req := jsonRequest(http.MethodPost, "/internal/transactions/tx-1/release-hold", map[string]string{"resolution": "purchased"})
	req.Header.Set(middleware.InternalKeyHeader, internalKey)
	status, body := s.do(t, req)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, domain.HoldPurchased, holds.got)
	assert.Equal(t, "completed", body["data"].(map[string]any)["orderStatus"])

	req = httptest.NewRequest(http.MethodPost, "/internal/transactions/tx-1/release-hold", nil)
	req.Header.Set(middleware.InternalKeyHeader, internalKey)
	status, _ = s.do(t, req)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, holds.got)

	holds.err = domain.ErrNoHold
	req = httptest.NewRequest(http.MethodPost, "/internal/transactions/tx-1/release-hold", nil)
	req.Header.Set(middleware.InternalKeyHeader, internalKey)
	status, _ = s.do(t, req)
	assert.Equal(t, http.StatusConflict, status)
}
