// Package export writes finished runs as JSON, CSV or SVG.
package export
