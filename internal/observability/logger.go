package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger tags the process-wide logger with the app and node name so
// client and server logs interleave cleanly in combined output. Call after
// logging has been configured.
func InitLogger(app, node string) zerolog.Logger {
	logger := log.With().
		Str("app", app).
		Str("node", node).
		Logger()
	log.Logger = logger
	return logger
}
