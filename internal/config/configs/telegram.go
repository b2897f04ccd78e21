package configs

// Telegram configures the outbound transport. With Enabled false the
// service logs sends instead of calling the Bot API, which is the safe
// default for local runs.
type Telegram struct {
	Enabled bool `env:"ENABLED" envDefault:"false"`

	// APIURL overrides the Bot API server, e.g. a self-hosted instance.
	// Empty uses api.telegram.org.
	APIURL string `env:"API_URL"`
}
