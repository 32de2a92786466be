package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "server":
		return serverTemplate, nil
	case "client":
		return clientTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const serverTemplate = `node_id = "foldlink-server"
nick = "foldlink-server"
addr = ":7331"
ops_addr = ":7332"
link_base_url = "https://links.foldlink.local"

[transport]
security_mode = "development"
tls = false

[timeouts]
call_ms = 20000
keepalive_ms = 10000

[[accounts]]
username = "admin"
password = "change-me"
display_name = "Administrator"
`

const clientTemplate = `node_id = "foldlink-client"
nick = "foldlink-client"
server_addr = "localhost:7331"
username = "admin"
password = "change-me"

[transport]
security_mode = "development"
tls = false

[timeouts]
call_ms = 20000
`
