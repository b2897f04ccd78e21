package configs

import "time"

// Rate bounds how often each bot may send. A bot is granted at most
// SendsPerWindow slots per Window; with the defaults that is one message
// per second per bot, matching the Bot API's per-chat guidance.
type Rate struct {
	Window         time.Duration `env:"WINDOW" envDefault:"1s"`
	SendsPerWindow int           `env:"SENDS_PER_WINDOW" envDefault:"1"`
}
