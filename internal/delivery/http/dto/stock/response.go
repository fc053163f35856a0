package stock

import (
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
)

// StockAccountResponse never carries the cookie.
type StockAccountResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Robux         int64     `json:"robux"`
	ReservedRobux int64     `json:"reservedRobux"`
	Status        string    `json:"status"`
	LastChecked   time.Time `json:"lastChecked"`
}

func FromDomain(a *domain.StockAccount) StockAccountResponse {
	return StockAccountResponse{
		ID:            a.ID,
		Username:      a.Username,
		Robux:         a.Robux,
		ReservedRobux: a.ReservedRobux,
		Status:        string(a.Status),
		LastChecked:   a.LastChecked,
	}
}
