package handlers_fiber

import (
	"errors"
	"net/http"

	"github.com/aneeshsharma72067/reposage/internal/entities"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"
	msg := "internal error"

	switch {
	case errors.Is(err, entities.ErrInvalidArgument):
		status = http.StatusBadRequest
		code = "INVALID_ARGUMENT"
		msg = err.Error()
	case errors.Is(err, entities.ErrConfigMissing):
		code = "GITHUB_APP_CONFIG_MISSING"
		msg = "GitHub App ID or private key path is not configured"
	case errors.Is(err, entities.ErrKeyNotFound):
		code = "GITHUB_APP_PRIVATE_KEY_NOT_FOUND"
		msg = "GitHub App private key file not found"
	case errors.Is(err, entities.ErrKeyInvalid):
		code = "GITHUB_APP_PRIVATE_KEY_INVALID"
		msg = "GitHub App private key is invalid"
	case errors.Is(err, entities.ErrAppJWTInvalid):
		status = http.StatusUnauthorized
		code = "GITHUB_APP_JWT_INVALID"
		msg = "GitHub rejected the App JWT; check the App ID, key and server clock"
	case errors.Is(err, entities.ErrInstallationNotFound):
		status = http.StatusNotFound
		code = "GITHUB_INSTALLATION_NOT_FOUND"
		msg = "installation not found"
	case errors.Is(err, entities.ErrInstallationIDMissing):
		status = http.StatusBadGateway
		code = "GITHUB_INSTALLATION_ID_MISSING"
		msg = "GitHub response did not include an installation id"
	case errors.Is(err, entities.ErrTokenExchangeFailed):
		status = http.StatusBadGateway
		code = "GITHUB_TOKEN_EXCHANGE_FAILED"
		msg = err.Error()
	case errors.Is(err, entities.ErrOwnerNotResolved):
		status = http.StatusNotFound
		code = "USER_NOT_FOUND"
		msg = "no local user with that GitHub login"
	case errors.Is(err, entities.ErrRunNotFound):
		status = http.StatusNotFound
		code = "ANALYSIS_RUN_NOT_FOUND"
		msg = "analysis run not found"
	}

	return c.Status(status).JSON(errorResponse(code, msg))
}

func errorResponse(code, msg string) ErrorResponse {
	return ErrorResponse{Error: code, Message: msg}
}
