package githubapp

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aneeshsharma72067/reposage/internal/entities"

	"github.com/google/go-github/v68/github"
)

// UpstreamError is a failed GitHub call classified into an error kind.
type UpstreamError struct {
	Kind    error
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: github responded %d: %s", e.Kind, e.Status, e.Message)
}

// Unwrap exposes the kind to errors.Is.
func (e *UpstreamError) Unwrap() error { return e.Kind }

// classify maps a go-github failure onto an error kind and logs the upstream Date
// next to local time, since a skewed clock makes GitHub reject otherwise valid JWTs.
func (i *Issuer) classify(op string, resp *github.Response, err error) error {
	message := err.Error()
	var ger *github.ErrorResponse
	if errors.As(err, &ger) && ger.Message != "" {
		message = ger.Message
	}

	if resp == nil || resp.Response == nil {
		i.log.Errorw("github request failed", "op", op, "error", err)
		return &UpstreamError{Kind: entities.ErrTokenExchangeFailed, Message: message}
	}

	status := resp.StatusCode
	kind := entities.ErrTokenExchangeFailed
	switch status {
	case http.StatusUnauthorized:
		kind = entities.ErrAppJWTInvalid
	case http.StatusNotFound:
		kind = entities.ErrInstallationNotFound
	}

	local := i.now().UTC()
	fields := []any{
		"op", op,
		"status", status,
		"error", message,
		"local_time", local.Format(time.RFC3339),
		"github_date", resp.Header.Get("Date"),
	}
	if upstream, perr := http.ParseTime(resp.Header.Get("Date")); perr == nil {
		fields = append(fields, "clock_skew_seconds", int64(local.Sub(upstream).Seconds()))
	}
	i.log.Warnw("github app request rejected", fields...)

	return &UpstreamError{Kind: kind, Status: status, Message: message}
}
