package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/giftroom/internal/services"
	"github.com/localnerve/giftroom/internal/types"
	"github.com/localnerve/giftroom/internal/utils"
	"gorm.io/gorm"
)

// MessageHandler handles private message routes
type MessageHandler struct {
	DB *gorm.DB
}

type messageBody struct {
	Sender   types.FlexUint64 `json:"sender"`
	Receiver types.FlexUint64 `json:"receiver"`
	Subject  string           `json:"subject"`
	Content  string           `json:"content"`
}

// SendMessage handles POST /api/messages
// @Summary Send a message
// @Description Store a private note from one user to another
// @Tags Messages
// @Accept json
// @Produce json
// @Param message body handlers.messageBody true "Message fields"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorMapStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /messages [post]
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	var body messageBody
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Malformed request body")
	}
	message, err := services.CreateMessage(h.DB, services.MessageInput{
		SenderID:   body.Sender.Uint(),
		ReceiverID: body.Receiver.Uint(),
		Subject:    body.Subject,
		Content:    body.Content,
	})
	if err != nil {
		return serviceError(c, err, "sendMessage")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       message.ID,
		"sender":   message.SenderID,
		"receiver": message.ReceiverID,
		"subject":  message.Subject,
		"content":  message.Content,
	})
}

// ListMessages handles GET /api/messages?user=...
// @Summary List received messages
// @Description Messages addressed to the calling user, newest first
// @Tags Messages
// @Accept json
// @Produce json
// @Param user query int true "Calling user ID"
// @Success 200 {array} map[string]interface{}
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /messages [get]
func (h *MessageHandler) ListMessages(c *fiber.Ctx) error {
	messages, err := services.GetMessages(h.DB, callerID(c))
	if err != nil {
		return serviceError(c, err, "listMessages")
	}
	views := make([]fiber.Map, len(messages))
	for i, m := range messages {
		views[i] = fiber.Map{
			"id":       m.ID,
			"sender":   m.SenderID,
			"receiver": m.ReceiverID,
			"subject":  m.Subject,
			"content":  m.Content,
			"date":     m.CreatedAt,
		}
	}
	return c.Status(fiber.StatusOK).JSON(views)
}
