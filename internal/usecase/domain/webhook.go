package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/aneeshsharma72067/reposage/internal/entities"
	"github.com/aneeshsharma72067/reposage/internal/mapper"
	"github.com/aneeshsharma72067/reposage/internal/metrics"

	"github.com/google/go-github/v68/github"
)

const (
	eventPush         = "push"
	eventInstallation = "installation"
	actionCreated     = "created"
)

// HandleWebhook ingests one delivery. Every failure is logged with the delivery id and swallowed,
// so the provider is always acknowledged.
func (u *Usecase) HandleWebhook(ctx context.Context, d entities.WebhookDelivery) {
	log := u.log.With("event", d.EventType, "delivery_id", d.DeliveryID)
	outcome := "ignored"
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("webhook handler panicked", "panic", fmt.Sprint(r))
			outcome = "panic"
		}
		metrics.WebhookDeliveries.WithLabelValues(d.EventType, outcome).Inc()
	}()

	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	if u.webhookSecret != nil {
		if err := github.ValidateSignature(d.Signature, d.Body, u.webhookSecret); err != nil {
			log.Warnw("webhook signature rejected", "error", err)
			outcome = "rejected"
			return
		}
	}

	if d.EventType != eventPush && d.EventType != eventInstallation {
		log.Debugw("webhook event ignored")
		return
	}

	payload, err := github.ParseWebHook(d.EventType, d.Body)
	if err != nil {
		log.Warnw("webhook payload unparsable", "error", err)
		outcome = "malformed"
		return
	}

	switch ev := payload.(type) {
	case *github.PushEvent:
		outcome = u.handlePush(ctx, d.DeliveryID, ev)
	case *github.InstallationEvent:
		outcome = u.handleInstallation(ctx, d.DeliveryID, ev)
	}
}

func (u *Usecase) handlePush(ctx context.Context, deliveryID string, ev *github.PushEvent) string {
	log := u.log.With("event", eventPush, "delivery_id", deliveryID)

	trigger, err := mapper.FromPushEvent(deliveryID, ev)
	if err != nil {
		log.Warnw("push payload rejected", "error", err)
		return "malformed"
	}
	if trigger.Deleted {
		log.Infow("branch deletion skipped", "ref", trigger.Ref, "repo_id", trigger.ExternalRepoID)
		return "ignored"
	}

	run, err := u.TriggerAnalysisFromPush(ctx, trigger)
	switch {
	case err == nil:
		log.Infow("analysis triggered",
			"analysis_run_id", run.AnalysisRunID,
			"event_id", run.EventID,
			"repository_id", run.RepositoryID,
		)
		return "triggered"
	case errors.Is(err, entities.ErrRepositoryNotTracked):
		log.Infow("push for untracked repository", "repo_id", trigger.ExternalRepoID)
		return "untracked"
	case errors.Is(err, entities.ErrEventAlreadyProcessed):
		log.Infow("duplicate push delivery", "repo_id", trigger.ExternalRepoID, "head_sha", trigger.HeadSHA)
		return "duplicate"
	default:
		log.Errorw("analysis trigger failed", "error", err, "repo_id", trigger.ExternalRepoID)
		return "error"
	}
}

func (u *Usecase) handleInstallation(ctx context.Context, deliveryID string, ev *github.InstallationEvent) string {
	log := u.log.With("event", eventInstallation, "delivery_id", deliveryID, "action", ev.GetAction())

	if ev.GetAction() != actionCreated {
		log.Debugw("installation action ignored")
		return "ignored"
	}

	link, err := mapper.FromInstallationEvent(ev)
	if err != nil {
		log.Warnw("installation payload rejected", "error", err)
		return "malformed"
	}

	inst, err := u.linkInstallation(ctx, link)
	switch {
	case err == nil:
		log.Infow("installation linked", "installation_id", inst.InstallationID, "owner_login", link.OwnerLogin)
		return "linked"
	case errors.Is(err, entities.ErrOwnerNotResolved):
		log.Warnw("installation owner not resolvable, dropped",
			"installation_id", link.InstallationID,
			"owner_login", link.OwnerLogin,
			"account_login", link.AccountLogin,
		)
		return "unresolved"
	default:
		log.Errorw("installation link failed", "error", err, "installation_id", link.InstallationID)
		return "error"
	}
}
