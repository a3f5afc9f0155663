// Package source fetches module files and templates by name.
//
// Two implementations of lazyload.Source are provided: Dir reads from an
// fs.FS such as os.DirFS, and HTTP fetches relative to a base URL.
//
// # Usage
//
//	src := source.NewDir(os.DirFS("modules"))
//	body, err := src.Fetch(ctx, "charts.lua")
//
//	remote := source.NewHTTP("https://cdn.example.com/modules/", http.DefaultClient, logger)
//	body, err = remote.Fetch(ctx, "charts.lua")
//
// Missing files yield an error matching ErrNotFound.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package source
