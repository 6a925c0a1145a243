// Package assets embeds the files the server ships with: the default vocabulary,
// HTML templates, browser script and SQL migrations.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed vocab.txt templates/*.html static/* sql/*.sql
var FS embed.FS

// VocabFile is the name of the embedded default word list.
const VocabFile = "vocab.txt"

// Templates returns the HTML templates directory.
func Templates() fs.FS { return sub("templates") }

// Static returns the browser assets served under /static/.
func Static() fs.FS { return sub("static") }

// Migrations returns the SQL migration scripts.
func Migrations() fs.FS { return sub("sql") }

func sub(dir string) fs.FS {
	f, err := fs.Sub(FS, dir)
	if err != nil {
		// Only reachable if the embed directive above is changed.
		panic(err)
	}
	return f
}
