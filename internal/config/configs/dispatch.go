package configs

import "time"

// Dispatch tunes the send worker pool and the retry/reclaim machinery.
type Dispatch struct {
	// Workers is the number of concurrent send workers.
	Workers int `env:"WORKERS" envDefault:"4"`

	// SendTimeout bounds a single transport send.
	SendTimeout time.Duration `env:"SEND_TIMEOUT" envDefault:"15s"`

	// MaxAttempts caps retryable failures per delivery before it is marked
	// failed.
	MaxAttempts int `env:"MAX_ATTEMPTS" envDefault:"3"`

	// BackoffMin and BackoffMax bound the exponential backoff applied when
	// a worker finds nothing to do or is rate limited.
	BackoffMin time.Duration `env:"BACKOFF_MIN" envDefault:"200ms"`
	BackoffMax time.Duration `env:"BACKOFF_MAX" envDefault:"10s"`

	// ReclaimAfter is how long a delivery may sit in progress before the
	// sweep considers it abandoned and returns it to pending.
	ReclaimAfter time.Duration `env:"RECLAIM_AFTER" envDefault:"5m"`

	// SweepInterval is how often the reclaim sweep runs.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`

	// GlobalRate caps the whole process's sends per second across all bots.
	GlobalRate int `env:"GLOBAL_RATE" envDefault:"25"`
}
