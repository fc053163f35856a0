package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	chatdto "github.com/rbxstore/fulfillment-service/internal/delivery/http/dto/chat"
	"github.com/rbxstore/fulfillment-service/internal/delivery/http/middleware"
	"github.com/rbxstore/fulfillment-service/internal/usecase/chat"
)

type ChatHandler struct {
	Chat     chat.ChatUsecase
	Validate *validator.Validate
}

func NewChatHandler(uc chat.ChatUsecase, validate *validator.Validate) *ChatHandler {
	return &ChatHandler{Chat: uc, Validate: validate}
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req chatdto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return JsonError(c, fiber.StatusBadRequest, "Payload tidak valid")
	}
	if err := h.Validate.Struct(req); err != nil {
		return WriteValidationError(c, err)
	}

	out, err := h.Chat.SendMessage(c.UserContext(), chat.SendMessageInput{
		SenderID: middleware.UserID(c),
		RoomID:   c.Params("roomId"),
		Content:  req.Content,
	})
	if err != nil {
		return WriteError(c, err)
	}
	if out.Duplicate {
		return JsonOK(c, "Pesan sudah terkirim", chatdto.FromDomain(out.Message, true))
	}
	return JsonCreated(c, "Pesan terkirim", chatdto.FromDomain(out.Message, false))
}
