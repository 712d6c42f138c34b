// Package web holds the dashboard templates.
package web

import "embed"

// Templates contains the dashboard layouts and pages under templates/.
//
//go:embed templates
var Templates embed.FS
