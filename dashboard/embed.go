// Package dashboard provides the embedded web UI for idscout.
//
// The page shows the engine's health figures and a live list of hits fed by
// the Server-Sent Events stream. It is compiled into the binary so the
// scanner deploys as a single file.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Hit feed and health page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
