package gsheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/komsit37/stocksync/pkg/stocksync/columns"
	"github.com/komsit37/stocksync/pkg/stocksync/dest"
	"github.com/komsit37/stocksync/pkg/stocksync/types"
	"github.com/komsit37/stocksync/pkg/stocksync/upsert"
)

func record(sym, company string) types.MetricRecord {
	r := types.NewMetricRecord(sym)
	r.Company = company
	r.Series[types.SeriesKey{Key: types.FreeCashFlow, Period: types.FY(2024)}] = "10B"
	return r
}

func TestUpsertAgainstRemote(t *testing.T) {
	ctx := context.Background()
	client := NewMemClient([]string{"Symbol", "Company"}, []string{"xyz", "old"})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	w := upsert.New(upsert.Options{Now: func() time.Time { return now }})

	recs := []types.MetricRecord{record("XYZ", "XYZ Corp"), record("ABC", "ABC Inc")}
	schema := columns.BuildSchema(columns.SeenColumns(recs), nil)

	res, err := w.Reconcile(ctx, NewSheet(client, nil), schema, recs)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Inserted)

	rows := client.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, schema, rows[0])
	assert.Equal(t, "XYZ", rows[1][0])
	assert.Equal(t, "XYZ Corp", rows[1][1])
	assert.Equal(t, "ABC", rows[2][0])

	_, err = w.Reconcile(ctx, NewSheet(client, nil), schema, recs)
	require.NoError(t, err)
	assert.Equal(t, rows, client.Rows())
}

func TestRemoteRowFailureDoesNotAbort(t *testing.T) {
	client := NewMemClient()
	client.FailRow = func(row []string) error {
		if row[0] == "BBB" {
			return errors.New("googleapi: Error 503: backend error")
		}
		return nil
	}
	recs := []types.MetricRecord{record("AAA", "A"), record("BBB", "B"), record("CCC", "C")}
	schema := columns.BuildSchema(columns.SeenColumns(recs), nil)

	res, err := upsert.New(upsert.Options{}).Reconcile(context.Background(), NewSheet(client, nil), schema, recs)
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "BBB", res.Failed[0].Symbol)

	rows := client.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "AAA", rows[1][0])
	assert.Equal(t, "CCC", rows[2][0])
}

type failingClient struct{ *MemClient }

func (failingClient) GetRows(context.Context) ([][]string, error) {
	return nil, errors.New("permission denied")
}

func TestRemoteLoadFailure(t *testing.T) {
	_, err := NewSheet(failingClient{NewMemClient()}, nil).Load(context.Background())
	var le *dest.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "remote", le.Destination)
}

func TestRemoteReplaceRowsKeepsHeader(t *testing.T) {
	ctx := context.Background()
	client := NewMemClient([]string{"A", "B"}, []string{"1", "2"})
	s := NewSheet(client, nil)
	_, err := s.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SetHeader(ctx, []string{"B", "A"}))
	require.NoError(t, s.ReplaceRows(ctx, [][]string{{"2", "1"}}))
	assert.Equal(t, [][]string{{"B", "A"}, {"2", "1"}}, client.Rows())
}

func TestGroupLayout(t *testing.T) {
	got := GroupLayout(types.GroupModel{
		"Tech":  {"AAPL", "MSFT", "NVDA"},
		"Banks": {"JPM"},
		"Empty": nil,
	})
	assert.Equal(t, [][]string{
		{"Banks", "Empty", "Tech"},
		{"JPM", "", "AAPL"},
		{"", "", "MSFT"},
		{"", "", "NVDA"},
	}, got)
	assert.Nil(t, GroupLayout(types.GroupModel{}))
}

func TestGroupSheetReplaceGroups(t *testing.T) {
	client := NewMemClient([]string{"stale"}, []string{"x"})
	require.NoError(t, NewGroupSheet(client).ReplaceGroups(context.Background(), types.GroupModel{"A": {"X"}}))
	assert.Equal(t, [][]string{{"A"}, {"X"}}, client.Rows())
	assert.Equal(t, 1, client.Replaces())
}

// sheetsServer answers the values endpoints the client uses.
type sheetsServer struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
}

func (s *sheetsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
	s.bodies = append(s.bodies, string(body))
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":          "Data!A1:B3",
			"majorDimension": "ROWS",
			"values":         [][]any{{"Symbol", "Company"}, {"ABC", "ABC Inc"}, {"DEF", 12.5}},
		})
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sheets": []any{map[string]any{"properties": map[string]any{"title": "Data"}}},
		})
	default:
		_, _ = io.WriteString(w, "{}")
	}
}

func TestSheetsClientOverHTTP(t *testing.T) {
	ctx := context.Background()
	srv := &sheetsServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	svc, err := NewService(ctx, "", option.WithEndpoint(ts.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)
	c := NewSheetsClient(svc, "sheet-id", "Data")

	require.NoError(t, c.EnsureSheet(ctx))
	rows, err := c.GetRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"ABC", "ABC Inc"}, {"DEF", "12.5"}}, rows)

	require.NoError(t, c.UpdateRow(ctx, 3, []string{"DEF", "DEF Co"}))

	s := NewSheet(c, nil)
	_, err = s.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, s.AppendRow(ctx, []string{"GHI", "GHI Ltd"}))

	srv.mu.Lock()
	defer srv.mu.Unlock()
	last := len(srv.requests) - 1
	assert.Contains(t, srv.requests[2], "PUT")
	assert.Contains(t, srv.requests[2], "'Data'!A3")
	assert.Contains(t, srv.requests[2], "valueInputOption=RAW")
	assert.Contains(t, srv.bodies[2], "DEF Co")
	assert.Contains(t, srv.requests[last], "PUT")
	assert.Contains(t, srv.requests[last], "'Data'!A4")
	assert.Contains(t, srv.bodies[last], "GHI Ltd")
	for _, r := range srv.requests {
		assert.NotContains(t, r, ":append")
	}
}

func TestRemoteAppendSkipsBlankGap(t *testing.T) {
	ctx := context.Background()
	client := NewMemClient(
		[]string{"Symbol", "Company"},
		[]string{"AAA", "A"},
		[]string{},
		[]string{"BBB", "B"},
	)
	s := NewSheet(client, nil)
	_, err := s.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, s.AppendRow(ctx, []string{"CCC", "C"}))
	require.NoError(t, s.AppendRow(ctx, []string{"DDD", "D"}))
	require.NoError(t, s.UpdateRow(ctx, 4, []string{"BBB", "B2"}))

	rows := client.Rows()
	require.Len(t, rows, 6)
	assert.Empty(t, rows[2], "the gap row stays blank")
	assert.Equal(t, []string{"BBB", "B2"}, rows[3])
	assert.Equal(t, []string{"CCC", "C"}, rows[4])
	assert.Equal(t, []string{"DDD", "D"}, rows[5])
}

func TestRemoteAppendAfterReplaceRows(t *testing.T) {
	ctx := context.Background()
	client := NewMemClient([]string{"Symbol"}, []string{"A"}, []string{"B"}, []string{"C"})
	s := NewSheet(client, nil)
	_, err := s.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceRows(ctx, [][]string{{"Z"}}))
	require.NoError(t, s.AppendRow(ctx, []string{"Y"}))
	assert.Equal(t, [][]string{{"Symbol"}, {"Z"}, {"Y"}}, client.Rows())
}
