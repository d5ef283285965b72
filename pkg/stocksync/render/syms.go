package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/komsit37/stocksync/pkg/stocksync/pipeline"
)

// SymsRenderer prints the synced symbols in a single comma-separated line.
type SymsRenderer struct{}

func (SymsRenderer) Render(w io.Writer, rep *pipeline.Report) error {
	symbols := make([]string, 0, len(rep.Symbols))
	for _, s := range rep.Symbols {
		if s.OK() {
			symbols = append(symbols, s.Symbol)
		}
	}
	_, err := fmt.Fprintln(w, strings.Join(symbols, ","))
	return err
}
