package projections

import (
	"embed"
)

// ConfigFiles embeds the projection catalog, one YAML file per algorithm kind.
//
//go:embed all:config
var ConfigFiles embed.FS
