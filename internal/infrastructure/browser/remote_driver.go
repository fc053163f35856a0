package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/delivery/http/dto/buypass"
	"github.com/rbxstore/fulfillment-service/internal/domain"
)

// RemoteDriver delegates the purchase to another instance's
// POST /internal/buy-pass, for deployments where the browser runs elsewhere.
type RemoteDriver struct {
	Address     string
	InternalKey string
	client      *http.Client
}

func NewRemoteDriver(address, internalKey string, timeout time.Duration) *RemoteDriver {
	if timeout <= 0 {
		timeout = DefaultFlowTimeout + 5*time.Second
	}
	return &RemoteDriver{
		Address:     address,
		InternalKey: internalKey,
		client:      &http.Client{Timeout: timeout},
	}
}

func (d *RemoteDriver) Purchase(ctx context.Context, req domain.PurchaseRequest) error {
	requestBodyBytes, err := json.Marshal(buypass.BuyPassRequest{
		Credential:  req.Cookie,
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		Price:       req.ExpectedPrice,
	})
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Address, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return &domain.PurchaseError{Kind: domain.KindLaunch, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Internal-Key", d.InternalKey)

	response, err := d.client.Do(httpReq)
	if err != nil {
		// The remote side may have started the flow already.
		if errors.Is(err, context.DeadlineExceeded) {
			return &domain.PurchaseError{Kind: domain.KindPossiblyCommitted, Err: err}
		}
		return &domain.PurchaseError{Kind: domain.KindNavigation, Err: err}
	}
	defer response.Body.Close()
	responseBodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return &domain.PurchaseError{Kind: domain.KindPossiblyCommitted, Err: err}
	}

	var body buypass.BuyPassResponse
	if err := json.Unmarshal(responseBodyBytes, &body); err != nil {
		return &domain.PurchaseError{Kind: domain.KindNavigation, Err: fmt.Errorf("remote buy-pass status %d: %w", response.StatusCode, err)}
	}
	if body.Success {
		return nil
	}
	if body.ExpectedPrice != nil && body.ActualPrice != nil {
		return &domain.PurchaseError{Kind: domain.KindPriceMismatch, Expected: *body.ExpectedPrice, Actual: *body.ActualPrice}
	}
	kind := domain.PurchaseErrorKind(body.Kind)
	if kind == "" {
		kind = domain.KindElementTimeout
	}
	return &domain.PurchaseError{Kind: kind, Err: errors.New(body.Message)}
}
