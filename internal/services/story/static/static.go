// Package static embeds the browser assets served under /static/.
package static

import (
	"embed"
	"io/fs"
)

// ClientScript is the story client entry point.
const ClientScript = "story.js"

//go:embed story.js story.css
var assets embed.FS

// FS returns the embedded assets.
func FS() fs.FS {
	return assets
}
