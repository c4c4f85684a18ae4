package assets

import (
	"embed"
	"io/fs"
)

//go:embed icons.txt sql/*.sql
var FS embed.FS

// Icons returns the embedded default icon list.
func Icons() ([]byte, error) {
	return FS.ReadFile("icons.txt")
}

// Migrations returns the embedded SQL migrations rooted at sql/.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		panic(err) // directory is embedded above
	}
	return sub
}
