package buypass

type BuyPassRequest struct {
	Credential  string `json:"credential" validate:"required"`
	ProductID   string `json:"productId" validate:"required"`
	ProductName string `json:"productName" validate:"required"`
	Price       int64  `json:"price" validate:"required,gt=0"`
}
