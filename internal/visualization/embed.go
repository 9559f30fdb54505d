package visualization

import "embed"

// templates contains the embedded HTML templates.
//
//go:embed templates/*
var templates embed.FS

// schemas contains the JSON Schemas for API request bodies.
//
//go:embed schemas/*
var schemas embed.FS
