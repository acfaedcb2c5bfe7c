package webui

import "embed"

// Assets holds the single-page UI served at the web root.
//
//go:embed index.html graph.js
var Assets embed.FS
