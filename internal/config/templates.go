package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "fetcher":
		return fetcherTemplate, nil
	case "web":
		return webTemplate, nil
	case "install":
		return installTemplate, nil
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

const fetcherTemplate = `app = "fetcher"
database_path = "rss-fetcher.db"
pid_dir = "/var/run/rss-fetcher"

workers = 4
job_timeout_secs = 60
fetch_timeout_secs = 30

max_feeds = 10000
refill_period_mins = 5
default_interval_mins = 720
minimum_interval_mins = 15
user_agent = "rss-fetcher/1.0 (+https://mediacloud.org)"
`

const webTemplate = `app = "fetcher-web"
addr = ":8000"
database_path = "rss-fetcher.db"
# api_key falls back to $RSS_FETCHER_API_KEY when unset
api_key = ""
cors_origins = ["http://localhost:3000"]
default_days = 30
max_days = 365
`

// installTemplate is the shell-style KEY=value config consumed by the
// platform install/uninstall scripting, not TOML. Values may reference
// earlier keys.
const installTemplate = `# platform install configuration
APT_KEYRING_DIR="/usr/share/keyrings"
DOKKU_APT_URL="https://packagecloud.io/dokku/dokku"
DOKKU_APT_COMPONENT="main"
DOKKU_KEYRING="${APT_KEYRING_DIR}/dokku.gpg"
INSTALL_DIR="/opt/rss-fetcher"
VENV_DIR="${INSTALL_DIR}/venv"
`
