// Package web holds the HTML templates compiled into the binary.
package web

import "embed"

// TemplateDir is the directory of the templates inside Templates.
const TemplateDir = "templates"

//go:embed templates/*.html
var Templates embed.FS
