package configs

// Store selects which record store backs the service. "postgres" is the
// production driver; "memory" keeps everything in process for demos and
// local runs.
type Store struct {
	Driver string `env:"DRIVER" envDefault:"postgres"`
}
