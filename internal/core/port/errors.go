package port

import "errors"

var (
	// ErrNotFound is returned by use cases when a referenced entity does
	// not exist (or belongs to a different bot).
	ErrNotFound = errors.New("not found")

	// ErrNoEligibleDelivery is returned by the claim queue when no pending
	// delivery of an active campaign exists for the bot. It is a normal
	// idle signal, not a failure; callers back off and retry.
	ErrNoEligibleDelivery = errors.New("no eligible delivery")

	// ErrRateLimited is returned by the claim queue when the bot's send
	// slot for the current window is already taken.
	ErrRateLimited = errors.New("bot rate limited")

	// ErrMessageLocked rejects campaign message mutations once deliveries
	// exist for the campaign.
	ErrMessageLocked = errors.New("campaign message is locked after dispatch began")

	// ErrInvalidInput marks requests rejected by use case validation.
	ErrInvalidInput = errors.New("invalid input")
)
