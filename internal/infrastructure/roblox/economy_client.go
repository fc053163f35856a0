package roblox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	robloxResponse "github.com/rbxstore/fulfillment-service/internal/delivery/http/dto/roblox"
	"github.com/rbxstore/fulfillment-service/internal/domain"
)

// EconomyClient reads live robux balances from the Roblox economy API.
type EconomyClient struct {
	Address string
	client  *http.Client
}

func NewEconomyClient(address string) *EconomyClient {
	return &EconomyClient{
		Address: strings.TrimRight(address, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *EconomyClient) FetchRobux(ctx context.Context, cookie string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/user/currency", c.Address), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: ".ROBLOSECURITY", Value: cookie})

	response, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer response.Body.Close()
	responseBodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, err
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		var currency robloxResponse.CurrencyResponse
		if err := json.Unmarshal(responseBodyBytes, &currency); err != nil {
			return 0, err
		}
		return currency.Robux, nil
	}
	if response.StatusCode == http.StatusUnauthorized {
		return 0, domain.ErrInvalidCookie
	}
	var errorResponse robloxResponse.ErrorResponse
	if err := json.Unmarshal(responseBodyBytes, &errorResponse); err == nil && len(errorResponse.Errors) > 0 {
		return 0, fmt.Errorf("roblox economy api: %s", errorResponse.Errors[0].Message)
	}
	return 0, fmt.Errorf("roblox economy api: status %d", response.StatusCode)
}
