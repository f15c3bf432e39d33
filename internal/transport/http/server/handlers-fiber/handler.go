// Package handlers_fiber wires HTTP delivery components.
package handlers_fiber

import (
	"context"

	"github.com/aneeshsharma72067/reposage/internal/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports backend readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the webhook, installation and analysis endpoints.
type Handler struct {
	log    *zap.SugaredLogger
	uc     usecase.InterfaceUsecase
	pinger Pinger
}

// NewHandler constructs an HTTP server with service dependencies.
func NewHandler(log *zap.SugaredLogger, usecase usecase.InterfaceUsecase, pinger Pinger) *Handler {
	return &Handler{
		log:    log.Named("http"),
		uc:     usecase,
		pinger: pinger,
	}
}

// RegisterHandlers mounts every route on r.
func RegisterHandlers(r fiber.Router, h *Handler) {
	r.Get("/healthz", h.GetHealthz)
	r.Get("/readyz", h.GetReadyz)
	r.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	r.Post("/webhooks/github", h.PostGithubWebhook)

	r.Post("/installations/:installationId/sync", h.PostInstallationSync)
	r.Post("/installations/:installationId/link", h.PostInstallationLink)

	r.Get("/repositories/:owner/:repo/installation", h.GetRepositoryInstallation)
	r.Get("/repositories/:owner/:repo", h.GetRepository)

	r.Get("/analysis-runs/:runId", h.GetAnalysisRun)
}

// GetHealthz reports liveness.
func (h *Handler) GetHealthz(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

// GetReadyz reports whether the store is reachable.
func (h *Handler) GetReadyz(c *fiber.Ctx) error {
	if err := h.pinger.Ping(c.UserContext()); err != nil {
		h.log.Warnw("readiness check failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse("NOT_READY", "store unavailable"))
	}
	return c.SendStatus(fiber.StatusOK)
}
