// Package assets embeds the provisioning scripts and configuration templates
// that pipelines reference by relative path.
package assets

import "embed"

//go:embed scripts templates
var FS embed.FS
