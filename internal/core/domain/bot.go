package domain

import "time"

// Bot is a messaging bot identity used as the sending channel for campaigns.
// RRAccessTime and RRPossiblyEmpty belong to the dispatch scheduler: the
// access time is advanced by the rate limiter on every granted send slot and
// orders bots for round-robin rotation; the possibly-empty flag is a hint set
// by the claim queue when a scan found no eligible delivery. The hint is
// advisory only and is cleared when new deliveries appear for the bot.
type Bot struct {
	ID              int64
	Title           string
	Token           string
	RRAccessTime    time.Time
	RRPossiblyEmpty bool
}
