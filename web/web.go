// Package web embeds the widget page and the host embed script.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var files embed.FS

// Static is the asset tree rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
