package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/foldlink/foldlink/internal/session"
)

// settings is the CLI's effective configuration after overlaying the config
// file onto defaults. Only keys present in the file override a default.
type settings struct {
	NodeID     string
	Nick       string
	ServerAddr string
	Username   string
	Password   string
	Session    session.Config
}

func defaultSettings() settings {
	return settings{
		NodeID:     "foldlink-client",
		Nick:       "foldlink-client",
		ServerAddr: "localhost:7331",
		Session:    session.DefaultConfig(),
	}
}

type fileConfig struct {
	NodeID     string `toml:"node_id"`
	Nick       string `toml:"nick"`
	ServerAddr string `toml:"server_addr"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`

	Transport struct {
		SecurityMode       string `toml:"security_mode"`
		TLS                bool   `toml:"tls"`
		MutualTLS          bool   `toml:"mutual_tls"`
		CAFile             string `toml:"ca_file"`
		CertFile           string `toml:"cert_file"`
		KeyFile            string `toml:"key_file"`
		ServerName         string `toml:"server_name"`
		InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
	} `toml:"transport"`

	Timeouts struct {
		ConnectMS   int64 `toml:"connect_ms"`
		CallMS      int64 `toml:"call_ms"`
		KeepaliveMS int64 `toml:"keepalive_ms"`
	} `toml:"timeouts"`
}

func loadSettings(path string) (settings, error) {
	cfg := defaultSettings()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return settings{}, fmt.Errorf("load client config: %w", err)
	}

	if meta.IsDefined("node_id") {
		if id := strings.TrimSpace(raw.NodeID); id != "" {
			cfg.NodeID = id
		}
	}
	if meta.IsDefined("nick") {
		cfg.Nick = strings.TrimSpace(raw.Nick)
	}
	if meta.IsDefined("server_addr") {
		if addr := strings.TrimSpace(raw.ServerAddr); addr != "" {
			cfg.ServerAddr = addr
		}
	}
	if meta.IsDefined("username") {
		cfg.Username = strings.TrimSpace(raw.Username)
	}
	if meta.IsDefined("password") {
		cfg.Password = raw.Password
	}

	if meta.IsDefined("transport", "security_mode") {
		cfg.Session.SecurityMode = session.SecurityMode(strings.TrimSpace(raw.Transport.SecurityMode))
	}
	if meta.IsDefined("transport", "tls") {
		cfg.Session.TLS.Enabled = raw.Transport.TLS
	}
	if meta.IsDefined("transport", "mutual_tls") {
		cfg.Session.TLS.Mutual = raw.Transport.MutualTLS
	}
	if meta.IsDefined("transport", "ca_file") {
		cfg.Session.TLS.CAFile = strings.TrimSpace(raw.Transport.CAFile)
	}
	if meta.IsDefined("transport", "cert_file") {
		cfg.Session.TLS.CertFile = strings.TrimSpace(raw.Transport.CertFile)
	}
	if meta.IsDefined("transport", "key_file") {
		cfg.Session.TLS.KeyFile = strings.TrimSpace(raw.Transport.KeyFile)
	}
	if meta.IsDefined("transport", "server_name") {
		cfg.Session.TLS.ServerName = strings.TrimSpace(raw.Transport.ServerName)
	}
	if meta.IsDefined("transport", "insecure_skip_verify") {
		cfg.Session.TLS.InsecureSkipVerify = raw.Transport.InsecureSkipVerify
	}

	if meta.IsDefined("timeouts", "connect_ms") {
		cfg.Session.ConnectTimeout = time.Duration(raw.Timeouts.ConnectMS) * time.Millisecond
	}
	if meta.IsDefined("timeouts", "call_ms") {
		cfg.Session.CallTimeout = time.Duration(raw.Timeouts.CallMS) * time.Millisecond
	}
	if meta.IsDefined("timeouts", "keepalive_ms") {
		cfg.Session.KeepaliveInterval = time.Duration(raw.Timeouts.KeepaliveMS) * time.Millisecond
	}

	return cfg, nil
}
