package config

import (
	"time"

	"github.com/foldlink/foldlink/internal/session"
)

// SessionConfig converts the TOML transport/timeout sections into the
// session layer's config. Zero timeouts fall through to session defaults.
func SessionConfig(transport TransportConfig, timeouts TimeoutConfig) session.Config {
	cfg := session.Config{
		ConnectTimeout:    msDuration(timeouts.ConnectMS),
		HandshakeTimeout:  msDuration(timeouts.HandshakeMS),
		ReadTimeout:       msDuration(timeouts.ReadMS),
		WriteTimeout:      msDuration(timeouts.WriteMS),
		CallTimeout:       msDuration(timeouts.CallMS),
		KeepaliveInterval: msDuration(timeouts.KeepaliveMS),
		SecurityMode:      session.NormalizeSecurityMode(session.SecurityMode(transport.SecurityMode)),
		TLS: session.TLSConfig{
			Enabled:            transport.TLS,
			Mutual:             transport.MutualTLS,
			CAFile:             transport.CAFile,
			CertFile:           transport.CertFile,
			KeyFile:            transport.KeyFile,
			ServerName:         transport.ServerName,
			InsecureSkipVerify: transport.InsecureSkipVerify,
		},
	}
	return cfg.WithDefaults()
}

func msDuration(ms int64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
