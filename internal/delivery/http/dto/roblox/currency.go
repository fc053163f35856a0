package roblox

type CurrencyResponse struct {
	Robux int64 `json:"robux"`
}

type ErrorResponse struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}
