package instance

import (
	"os"

	"github.com/orbsphere/orbzy-backend/pkg/env"
)

const fallbackID = "local"

// ID names this process in logs. ORBZY_INSTANCE_ID wins over the platform
// dyno name, which wins over the hostname.
func ID() string {
	if id := env.First("ORBZY_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
