// Package entities contains core business entities and errors.
package entities

import "errors"

var (
	// ErrInvalidArgument signals failed input validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConfigMissing is returned when the App ID or private key path is not configured.
	ErrConfigMissing = errors.New("github app configuration missing")
	// ErrKeyNotFound is returned when the private key file does not exist.
	ErrKeyNotFound = errors.New("github app private key not found")
	// ErrKeyInvalid is returned when the private key cannot be parsed.
	ErrKeyInvalid = errors.New("github app private key invalid")
	// ErrAppJWTInvalid is returned when GitHub rejects the App JWT (HTTP 401).
	ErrAppJWTInvalid = errors.New("github app jwt invalid")
	// ErrInstallationNotFound is returned when GitHub or the store has no such installation.
	ErrInstallationNotFound = errors.New("installation not found")
	// ErrInstallationIDMissing is returned when GitHub omits the installation id.
	ErrInstallationIDMissing = errors.New("installation id missing in response")
	// ErrTokenExchangeFailed covers every other upstream failure; retryable by the caller.
	ErrTokenExchangeFailed = errors.New("github token exchange failed")

	// ErrInvalidLifecycleTransition is returned when a guarded transition affects zero rows.
	ErrInvalidLifecycleTransition = errors.New("invalid lifecycle transition")
	// ErrRunFailed reports a job whose run was moved to FAILED; there is nothing left to retry.
	ErrRunFailed = errors.New("analysis run failed")
	// ErrRunNotFound signals a missing analysis run.
	ErrRunNotFound = errors.New("analysis run not found")
	// ErrRepositoryNotTracked signals a webhook for an unknown repository.
	ErrRepositoryNotTracked = errors.New("repository not tracked")
	// ErrEventAlreadyProcessed signals a redelivered event that already has a run.
	ErrEventAlreadyProcessed = errors.New("event already processed")
	// ErrOwnerNotResolved signals an installation with no local owner.
	ErrOwnerNotResolved = errors.New("installation owner not resolved")
)
