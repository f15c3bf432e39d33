package handlers_fiber

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/aneeshsharma72067/reposage/internal/entities"

	"github.com/gofiber/fiber/v2"
)

type linkInstallationRequest struct {
	UserLogin string `json:"user_login"`
}

type installationResponse struct {
	ID                string  `json:"id"`
	InstallationID    int64   `json:"installation_id"`
	AccountLogin      string  `json:"account_login"`
	AccountType       string  `json:"account_type"`
	InstalledByUserID *string `json:"installed_by_user_id"`
}

type repositoryInstallationResponse struct {
	Owner          string `json:"owner"`
	Repo           string `json:"repo"`
	InstallationID int64  `json:"installation_id"`
}

func installationIDParam(c *fiber.Ctx) (int64, error) {
	raw := c.Params("installationId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid installation id %q", entities.ErrInvalidArgument, raw)
	}
	return id, nil
}

// PostInstallationSync mirrors an installation's repositories into the store.
func (h *Handler) PostInstallationSync(c *fiber.Ctx) error {
	id, err := installationIDParam(c)
	if err != nil {
		return writeError(c, err)
	}

	res, err := h.uc.SyncInstallationRepositories(c.UserContext(), id)
	if err != nil {
		h.log.Warnw("installation sync failed", "installation_id", id, "error", err)
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(res)
}

// PostInstallationLink attaches an installation to a local user.
func (h *Handler) PostInstallationLink(c *fiber.Ctx) error {
	id, err := installationIDParam(c)
	if err != nil {
		return writeError(c, err)
	}

	var body linkInstallationRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(http.StatusBadRequest).JSON(errorResponse("INVALID_ARGUMENT", "invalid body"))
	}

	inst, err := h.uc.LinkInstallation(c.UserContext(), id, body.UserLogin)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(installationResponse{
		ID:                inst.ID,
		InstallationID:    inst.InstallationID,
		AccountLogin:      inst.AccountLogin,
		AccountType:       inst.AccountType,
		InstalledByUserID: inst.InstalledByUserID,
	})
}

// GetRepositoryInstallation resolves which installation backs owner/repo.
func (h *Handler) GetRepositoryInstallation(c *fiber.Ctx) error {
	owner, repo := strings.TrimSpace(c.Params("owner")), strings.TrimSpace(c.Params("repo"))

	id, err := h.uc.ResolveInstallation(c.UserContext(), owner, repo)
	if err != nil {
		h.log.Warnw("installation lookup failed", "owner", owner, "repo", repo, "error", err)
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(repositoryInstallationResponse{Owner: owner, Repo: repo, InstallationID: id})
}

// GetRepository returns live repository details and recent commits.
func (h *Handler) GetRepository(c *fiber.Ctx) error {
	owner, repo := strings.TrimSpace(c.Params("owner")), strings.TrimSpace(c.Params("repo"))

	details, err := h.uc.RepositoryDetails(c.UserContext(), owner, repo)
	if err != nil {
		h.log.Warnw("repository details failed", "owner", owner, "repo", repo, "error", err)
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(details)
}
