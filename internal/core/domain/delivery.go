package domain

import (
	"fmt"
	"time"
)

// DeliveryState is the lifecycle state of a single delivery. The numeric
// values are wire-stable: they round-trip unchanged through storage and the
// reporting surface, so they must never be renumbered.
type DeliveryState int

const (
	DeliveryStatePending  DeliveryState = 0
	DeliveryStateProgress DeliveryState = 1
	DeliveryStateSuccess  DeliveryState = 2
	DeliveryStateFail     DeliveryState = 3
)

// Terminal reports whether no further transitions are permitted from s.
func (s DeliveryState) Terminal() bool {
	return s == DeliveryStateSuccess || s == DeliveryStateFail
}

func (s DeliveryState) String() string {
	switch s {
	case DeliveryStatePending:
		return "pending"
	case DeliveryStateProgress:
		return "progress"
	case DeliveryStateSuccess:
		return "success"
	case DeliveryStateFail:
		return "fail"
	default:
		return fmt.Sprintf("DeliveryState(%d)", int(s))
	}
}

// ParseDeliveryState converts the textual form used on URLs back into a
// state value.
func ParseDeliveryState(s string) (DeliveryState, error) {
	switch s {
	case "pending":
		return DeliveryStatePending, nil
	case "progress":
		return DeliveryStateProgress, nil
	case "success":
		return DeliveryStateSuccess, nil
	case "fail":
		return DeliveryStateFail, nil
	default:
		return 0, fmt.Errorf("unknown delivery state %q", s)
	}
}

// Delivery is the central work item: one row per (campaign, recipient) pair.
// BotID always equals the owning campaign's BotID; it is denormalized so the
// claim query never joins through campaigns for the bot filter. Attempts
// counts failed transport attempts and bounds retries. Rows are never
// deleted; success and fail are terminal.
type Delivery struct {
	ID         int64
	CampaignID int64
	BotID      int64
	TelegramID int64
	State      DeliveryState
	Attempts   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DeliveryTakeResult joins a freshly claimed delivery with its campaign and
// target user: everything a dispatch worker needs to perform the send. It is
// constructed on claim and never persisted.
type DeliveryTakeResult struct {
	Delivery Delivery
	Campaign Campaign
	User     User
}
