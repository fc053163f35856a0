package buypass

type BuyPassResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Kind          string `json:"kind,omitempty"`
	ExpectedPrice *int64 `json:"expectedPrice,omitempty"`
	ActualPrice   *int64 `json:"actualPrice,omitempty"`
}
