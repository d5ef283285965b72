package render

import (
	"encoding/json"
	"io"
	"time"

	"github.com/komsit37/stocksync/pkg/stocksync/pipeline"
	"github.com/komsit37/stocksync/pkg/stocksync/upsert"
)

// jsonReport is the output shape for JSONRenderer.
type jsonReport struct {
	RunID        string            `json:"run_id"`
	Schema       []string          `json:"schema"`
	Symbols      []jsonSymbol      `json:"symbols"`
	Destinations []jsonDestination `json:"destinations"`
	Succeeded    int               `json:"succeeded"`
	Total        int               `json:"total"`
}

type jsonSymbol struct {
	Symbol  string            `json:"symbol"`
	Company string            `json:"company,omitempty"`
	OK      bool              `json:"ok"`
	Error   string            `json:"error,omitempty"`
	Values  map[string]string `json:"values,omitempty"`
}

type jsonDestination struct {
	Name     string   `json:"name"`
	Updated  int      `json:"updated"`
	Inserted int      `json:"inserted"`
	Failed   []string `json:"failed,omitempty"`
	Error    string   `json:"error,omitempty"`
}

type JSONRenderer struct{ Opts Options }

func (r *JSONRenderer) Render(w io.Writer, rep *pipeline.Report) error {
	out := jsonReport{
		RunID:        rep.RunID,
		Schema:       rep.Schema,
		Symbols:      make([]jsonSymbol, 0, len(rep.Symbols)),
		Destinations: make([]jsonDestination, 0, len(rep.Destinations)),
		Succeeded:    rep.Succeeded(),
		Total:        len(rep.Symbols),
	}
	cols := displayColumns(rep.Schema)
	for _, s := range rep.Symbols {
		js := jsonSymbol{Symbol: s.Symbol, OK: s.OK()}
		if !s.OK() {
			js.Error = s.Err.Error()
		} else {
			js.Company = s.Record.Company
			js.Values = map[string]string{}
			for i, v := range upsert.BuildRow(cols, s.Record, time.Time{}) {
				js.Values[cols[i]] = v
			}
		}
		out.Symbols = append(out.Symbols, js)
	}
	for _, d := range rep.Destinations {
		jd := jsonDestination{Name: d.Destination, Updated: d.Updated, Inserted: d.Inserted}
		for _, f := range d.Failed {
			jd.Failed = append(jd.Failed, f.Error())
		}
		if d.Err != nil {
			jd.Error = d.Err.Error()
		}
		out.Destinations = append(out.Destinations, jd)
	}
	enc := json.NewEncoder(w)
	if r.Opts.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}
