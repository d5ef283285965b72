// Package render prints pass reports and schemas.
package render

import (
	"fmt"

	"github.com/komsit37/stocksync/pkg/stocksync/pipeline"
)

type Options struct {
	Color       bool
	PrettyJSON  bool
	MaxColWidth int
}

// Formats lists the names New accepts.
var Formats = []string{"table", "json", "syms"}

// New returns the renderer for format.
func New(format string, opts Options) (pipeline.Renderer, error) {
	switch format {
	case "", "table":
		return &TableRenderer{Opts: opts}, nil
	case "json":
		return &JSONRenderer{Opts: opts}, nil
	case "syms":
		return SymsRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown format %q (want one of %v)", format, Formats)
}
