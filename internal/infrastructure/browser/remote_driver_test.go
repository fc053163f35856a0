package browser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/delivery/http/dto/buypass"
	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteServer(t *testing.T, status int, resp buypass.BuyPassResponse, seen *buypass.BuyPassRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("X-Internal-Key"))
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteDriver_Success(t *testing.T) {
	var seen buypass.BuyPassRequest
	srv := remoteServer(t, http.StatusOK, buypass.BuyPassResponse{Success: true}, &seen)
	d := NewRemoteDriver(srv.URL, "k", time.Second)

	require.NoError(t, d.Purchase(context.Background(), purchaseReq(100)))
	assert.Equal(t, buypass.BuyPassRequest{Credential: "secret-cookie", ProductID: "12345", ProductName: "VIP Pass!", Price: 100}, seen)
}

func TestRemoteDriver_PriceMismatch(t *testing.T) {
	expected, actual := int64(100), int64(150)
	srv := remoteServer(t, http.StatusConflict, buypass.BuyPassResponse{
		Kind: string(domain.KindPriceMismatch), ExpectedPrice: &expected, ActualPrice: &actual,
	}, nil)
	d := NewRemoteDriver(srv.URL, "k", time.Second)

	err := d.Purchase(context.Background(), purchaseReq(100))
	pe, ok := domain.AsPurchaseError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindPriceMismatch, pe.Kind)
	assert.Equal(t, int64(150), pe.Actual)
}

func TestRemoteDriver_KindIsForwarded(t *testing.T) {
	srv := remoteServer(t, http.StatusBadGateway, buypass.BuyPassResponse{
		Message: "Pembelian gagal: possibly_committed", Kind: string(domain.KindPossiblyCommitted),
	}, nil)
	d := NewRemoteDriver(srv.URL, "k", time.Second)

	err := d.Purchase(context.Background(), purchaseReq(100))
	assert.Equal(t, domain.KindPossiblyCommitted, kindOf(t, err))
}

func TestRemoteDriver_Unreachable(t *testing.T) {
	d := NewRemoteDriver("http://127.0.0.1:1", "k", time.Second)
	err := d.Purchase(context.Background(), purchaseReq(100))
	assert.Equal(t, domain.KindNavigation, kindOf(t, err))
}
