package pubcorpus

import "embed"

// EmbeddedAssets contains static assets served under /assets/ by the
// preview server: style.css.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
