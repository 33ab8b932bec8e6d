// Package web embeds the static front-end.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFiles embed.FS

// StaticFS is rooted at the static directory so index.html serves at /.
var StaticFS, _ = fs.Sub(staticFiles, "static")
