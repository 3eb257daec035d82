// Package appfs embeds the static files shipped with the binaries:
// database migrations and email templates.
package appfs

import "embed"

//go:embed migrations assets
var FS embed.FS
