package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// TransportConfig is the [transport] section shared by both binaries.
type TransportConfig struct {
	SecurityMode       string `toml:"security_mode" envconfig:"SECURITY_MODE"`
	TLS                bool   `toml:"tls" envconfig:"TLS"`
	MutualTLS          bool   `toml:"mutual_tls" envconfig:"MUTUAL_TLS"`
	CAFile             string `toml:"ca_file" envconfig:"CA_FILE"`
	CertFile           string `toml:"cert_file" envconfig:"CERT_FILE"`
	KeyFile            string `toml:"key_file" envconfig:"KEY_FILE"`
	ServerName         string `toml:"server_name" envconfig:"SERVER_NAME"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify" envconfig:"INSECURE_SKIP_VERIFY"`
}

// TimeoutConfig is the [timeouts] section; values are in milliseconds so
// configs stay integer-only.
type TimeoutConfig struct {
	ConnectMS   int64 `toml:"connect_ms" envconfig:"CONNECT_MS"`
	HandshakeMS int64 `toml:"handshake_ms" envconfig:"HANDSHAKE_MS"`
	ReadMS      int64 `toml:"read_ms" envconfig:"READ_MS"`
	WriteMS     int64 `toml:"write_ms" envconfig:"WRITE_MS"`
	CallMS      int64 `toml:"call_ms" envconfig:"CALL_MS"`
	KeepaliveMS int64 `toml:"keepalive_ms" envconfig:"KEEPALIVE_MS"`
}

// AccountConfig seeds one directory account at daemon startup.
type AccountConfig struct {
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	DisplayName string `toml:"display_name"`
}

// ServerConfig configures the foldlinkd daemon.
type ServerConfig struct {
	NodeID      string          `toml:"node_id" envconfig:"NODE_ID"`
	Nick        string          `toml:"nick" envconfig:"NICK"`
	Addr        string          `toml:"addr" envconfig:"ADDR"`
	OpsAddr     string          `toml:"ops_addr" envconfig:"OPS_ADDR"`
	LinkBaseURL string          `toml:"link_base_url" envconfig:"LINK_BASE_URL"`
	Transport   TransportConfig `toml:"transport"`
	Timeouts    TimeoutConfig   `toml:"timeouts"`
	Accounts    []AccountConfig `toml:"accounts"`
}

// ClientConfig configures the foldlink CLI.
type ClientConfig struct {
	NodeID     string          `toml:"node_id" envconfig:"NODE_ID"`
	Nick       string          `toml:"nick" envconfig:"NICK"`
	ServerAddr string          `toml:"server_addr" envconfig:"SERVER_ADDR"`
	Username   string          `toml:"username" envconfig:"USERNAME"`
	Password   string          `toml:"password" envconfig:"PASSWORD"`
	Transport  TransportConfig `toml:"transport"`
	Timeouts   TimeoutConfig   `toml:"timeouts"`
}

// LoadServerConfig reads the daemon config, applies FOLDLINKD_* environment
// overrides, fills defaults, and validates.
func LoadServerConfig(path string) (ServerConfig, error) {
	var cfg ServerConfig
	if err := loadToml(path, &cfg); err != nil {
		return ServerConfig{}, err
	}
	if err := envconfig.Process("FOLDLINKD", &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("config env overrides failed: %w", err)
	}
	if cfg.Nick == "" {
		cfg.Nick = cfg.NodeID
	}
	if cfg.Addr == "" {
		cfg.Addr = ":7331"
	}
	if cfg.OpsAddr == "" {
		cfg.OpsAddr = ":7332"
	}
	if err := ValidateServerConfig(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// LoadClientConfig reads the CLI config with FOLDLINK_* environment
// overrides.
func LoadClientConfig(path string) (ClientConfig, error) {
	var cfg ClientConfig
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if err := envconfig.Process("FOLDLINK", &cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("config env overrides failed: %w", err)
	}
	if cfg.Nick == "" {
		cfg.Nick = cfg.NodeID
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateServerConfig(cfg ServerConfig) error {
	if strings.TrimSpace(cfg.NodeID) == "" {
		return fmt.Errorf("server config missing node_id")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("server config missing addr")
	}
	for i, acc := range cfg.Accounts {
		if strings.TrimSpace(acc.Username) == "" {
			return fmt.Errorf("account[%d] invalid: username is required", i)
		}
		if acc.Password == "" {
			return fmt.Errorf("account[%d] invalid: password is required", i)
		}
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.NodeID) == "" {
		return fmt.Errorf("client config missing node_id")
	}
	if strings.TrimSpace(cfg.ServerAddr) == "" {
		return fmt.Errorf("client config missing server_addr")
	}
	return nil
}
