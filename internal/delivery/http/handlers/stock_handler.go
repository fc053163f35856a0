package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	stockdto "github.com/rbxstore/fulfillment-service/internal/delivery/http/dto/stock"
	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/usecase/stock"
)

type StockHandler struct {
	Stock    stock.StockUsecase
	Validate *validator.Validate
}

func NewStockHandler(uc stock.StockUsecase, validate *validator.Validate) *StockHandler {
	return &StockHandler{Stock: uc, Validate: validate}
}

func actor(c *fiber.Ctx) string {
	if a := c.Get("X-Actor"); a != "" {
		return "admin:" + a
	}
	return "admin"
}

func (h *StockHandler) List(c *fiber.Ctx) error {
	accounts, err := h.Stock.ListActive(c.UserContext())
	if err != nil {
		return WriteError(c, err)
	}
	out := make([]stockdto.StockAccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, stockdto.FromDomain(a))
	}
	return JsonOK(c, "", out)
}

func (h *StockHandler) Create(c *fiber.Ctx) error {
	var req stockdto.CreateStockAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return JsonError(c, fiber.StatusBadRequest, "Payload tidak valid")
	}
	if err := h.Validate.Struct(req); err != nil {
		return WriteValidationError(c, err)
	}
	account, err := h.Stock.CreateAccount(c.UserContext(), stock.CreateAccountInput{
		Username:     req.Username,
		RobloxCookie: req.RobloxCookie,
		Actor:        actor(c),
	})
	if err != nil {
		return WriteError(c, err)
	}
	return JsonCreated(c, "Akun stok ditambahkan", stockdto.FromDomain(account))
}

func (h *StockHandler) Update(c *fiber.Ctx) error {
	var req stockdto.UpdateStockAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return JsonError(c, fiber.StatusBadRequest, "Payload tidak valid")
	}
	if err := h.Validate.Struct(req); err != nil {
		return WriteValidationError(c, err)
	}
	in := stock.UpdateAccountInput{
		ID:           c.Params("id"),
		Username:     req.Username,
		RobloxCookie: req.RobloxCookie,
		Actor:        actor(c),
	}
	if req.Status != nil {
		s := domain.StockAccountStatus(*req.Status)
		in.Status = &s
	}
	account, err := h.Stock.UpdateAccount(c.UserContext(), in)
	if err != nil {
		return WriteError(c, err)
	}
	return JsonOK(c, "Akun stok diperbarui", stockdto.FromDomain(account))
}

func (h *StockHandler) Refresh(c *fiber.Ctx) error {
	account, err := h.Stock.RefreshAccount(c.UserContext(), c.Params("id"), actor(c))
	if err != nil {
		return WriteError(c, err)
	}
	return JsonOK(c, "Saldo akun diperbarui", stockdto.FromDomain(account))
}
