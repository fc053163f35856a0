package webhook

// MidtransNotification is the HTTP notification body sent by Midtrans.
type MidtransNotification struct {
	OrderID           string `json:"order_id" validate:"required"`
	StatusCode        string `json:"status_code" validate:"required"`
	GrossAmount       string `json:"gross_amount" validate:"required"`
	SignatureKey      string `json:"signature_key" validate:"required"`
	TransactionStatus string `json:"transaction_status" validate:"required"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	TransactionID     string `json:"transaction_id"`
}

// DuitkuCallback arrives form encoded; JSON is accepted as well.
type DuitkuCallback struct {
	MerchantCode    string `json:"merchantCode" form:"merchantCode" validate:"required"`
	Amount          string `json:"amount" form:"amount" validate:"required"`
	MerchantOrderID string `json:"merchantOrderId" form:"merchantOrderId" validate:"required"`
	ResultCode      string `json:"resultCode" form:"resultCode" validate:"required"`
	Signature       string `json:"signature" form:"signature" validate:"required"`
	Reference       string `json:"reference" form:"reference"`
	PaymentCode     string `json:"paymentCode" form:"paymentCode"`
}
