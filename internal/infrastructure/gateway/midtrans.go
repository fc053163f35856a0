package gateway

import (
	"context"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
)

// MidtransStatus is the authoritative state reported by the Midtrans API.
type MidtransStatus struct {
	TransactionStatus string
	FraudStatus       string
	StatusCode        string
	GrossAmount       string
}

// MidtransStatusChecker re-reads a transaction from Midtrans so a replayed
// notification cannot push a stale state.
type MidtransStatusChecker struct {
	client coreapi.Client
}

func NewMidtransStatusChecker(serverKey string, production bool) *MidtransStatusChecker {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	var c coreapi.Client
	c.New(serverKey, env)
	return &MidtransStatusChecker{client: c}
}

func (m *MidtransStatusChecker) CheckStatus(_ context.Context, orderID string) (*MidtransStatus, error) {
	res, mErr := m.client.CheckTransaction(orderID)
	if mErr != nil {
		return nil, mErr
	}
	return &MidtransStatus{
		TransactionStatus: res.TransactionStatus,
		FraudStatus:       res.FraudStatus,
		StatusCode:        res.StatusCode,
		GrossAmount:       res.GrossAmount,
	}, nil
}
