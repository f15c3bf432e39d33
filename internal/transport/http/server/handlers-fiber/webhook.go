package handlers_fiber

import (
	"github.com/aneeshsharma72067/reposage/internal/entities"

	"github.com/gofiber/fiber/v2"
	"github.com/google/go-github/v68/github"
)

type webhookAck struct {
	Received bool `json:"received"`
}

// PostGithubWebhook acknowledges every delivery with 200; processing outcomes are only logged.
func (h *Handler) PostGithubWebhook(c *fiber.Ctx) error {
	body := make([]byte, len(c.Body()))
	copy(body, c.Body())

	h.uc.HandleWebhook(c.UserContext(), entities.WebhookDelivery{
		EventType:  c.Get(github.EventTypeHeader),
		DeliveryID: c.Get(github.DeliveryIDHeader),
		Signature:  c.Get(github.SHA256SignatureHeader),
		Body:       body,
	})

	return c.Status(fiber.StatusOK).JSON(webhookAck{Received: true})
}
