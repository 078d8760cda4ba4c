package ui

import "embed"

// Dist embeds the preview UI. The page is a single static file served at /,
// so there is no frontend build step before go build.
//
//go:embed all:dist
var Dist embed.FS
