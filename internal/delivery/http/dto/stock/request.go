package stock

type CreateStockAccountRequest struct {
	Username     string `json:"username" validate:"required,max=64"`
	RobloxCookie string `json:"robloxCookie" validate:"required"`
}

type UpdateStockAccountRequest struct {
	Username     *string `json:"username" validate:"omitempty,max=64"`
	RobloxCookie *string `json:"robloxCookie"`
	Status       *string `json:"status" validate:"omitempty,oneof=active inactive invalid"`
}
