package extract

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/joonhk-lab/kosis-agent/internal/domain"
	"github.com/joonhk-lab/kosis-agent/internal/kosis"
)

type fakeProvider struct {
	tables  []kosis.TableDescriptor
	listErr error
	rows    map[string][]kosis.RawRow
	dataErr map[string]error
}

func (p *fakeProvider) ListTables(context.Context, kosis.ListParams) ([]kosis.TableDescriptor, error) {
	return p.tables, p.listErr
}

func (p *fakeProvider) FetchTableData(_ context.Context, tableID string, _ kosis.DataParams) ([]kosis.RawRow, error) {
	if err := p.dataErr[tableID]; err != nil {
		return nil, err
	}
	return p.rows[tableID], nil
}

func (p *fakeProvider) FetchMetadata(_ context.Context, tableID string) (*kosis.TableMetadata, error) {
	return &kosis.TableMetadata{TableID: tableID, FetchedAt: "2023-01-01T00:00:00Z"}, nil
}

type recordingSink struct {
	records []interface{}
	err     error
}

func (s *recordingSink) Emit(_ context.Context, record interface{}) error {
	s.records = append(s.records, record)
	return s.err
}

func (s *recordingSink) normalized() []domain.NormalizedRecord {
	var out []domain.NormalizedRecord
	for _, r := range s.records {
		if n, ok := r.(domain.NormalizedRecord); ok {
			out = append(out, n)
		}
	}
	return out
}

func (s *recordingSink) last() interface{} {
	if len(s.records) == 0 {
		return nil
	}
	return s.records[len(s.records)-1]
}

type countingSleeper struct {
	calls  int
	delays []time.Duration
}

func (s *countingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.calls++
	s.delays = append(s.delays, d)
	return nil
}

func newTestService(provider Provider, sink *recordingSink, sleeper *countingSleeper, credential string) *Service {
	return NewService(sink,
		WithClientFactory(func(string) (Provider, error) { return provider, nil }),
		WithSleeper(sleeper.sleep),
		WithCredentialLookup(func() string { return credential }),
	)
}

func descriptorsFor(names ...string) []kosis.TableDescriptor {
	out := make([]kosis.TableDescriptor, 0, len(names))
	for _, name := range names {
		out = append(out, kosis.TableDescriptor{TblID: "DT_" + name, TblNm: name, OrgID: "101"})
	}
	return out
}

func sampleRows() []kosis.RawRow {
	return []kosis.RawRow{
		{"TBL_NM": "인구총조사", "PRD_DE": "2023", "DT": "100", "UNIT_NM": "명"},
		{"TBL_NM": "인구총조사", "PRD_DE": "2022", "DT": "99", "UNIT_NM": "명"},
	}
}

func TestRunWithoutCredentialServesDemo(t *testing.T) {
	sink := &recordingSink{}
	sleeper := &countingSleeper{}
	svc := newTestService(&fakeProvider{}, sink, sleeper, "")

	result, err := svc.Run(context.Background(), domain.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.DemoMode {
		t.Fatalf("expected demo mode")
	}
	if result.DataPoints != len(demoPool) {
		t.Fatalf("dataPoints = %d, want %d", result.DataPoints, len(demoPool))
	}

	normalized := sink.normalized()
	if len(normalized) != len(demoPool) {
		t.Fatalf("normalized = %d, want %d", len(normalized), len(demoPool))
	}
	for _, r := range normalized {
		if r.Metadata["demo"] != true {
			t.Fatalf("demo record missing demo marker: %+v", r.Metadata)
		}
		if r.ExtractedAt == "" || r.LastUpdated == "" {
			t.Fatalf("demo record timestamps not stamped")
		}
	}

	summary, ok := sink.last().(*DemoSummaryRecord)
	if !ok {
		t.Fatalf("last record = %T, want *DemoSummaryRecord", sink.last())
	}
	if summary.Count != len(demoPool) {
		t.Fatalf("summary count = %d", summary.Count)
	}
	if summary.RegistrationInfo == "" {
		t.Fatalf("demo summary must carry registration info")
	}
	if sleeper.calls != 0 {
		t.Fatalf("demo mode must not rate limit, slept %d times", sleeper.calls)
	}
}

func TestRunDemoKeywordAndLimit(t *testing.T) {
	tests := []struct {
		name string
		opts domain.Options
		want int
	}{
		{name: "category keyword", opts: domain.Options{"searchKeyword": "물가"}, want: 2},
		{name: "data type keyword", opts: domain.Options{"searchKeyword": "labor"}, want: 2},
		{name: "max items truncation", opts: domain.Options{"maxItems": 3}, want: 3},
		{name: "no match", opts: domain.Options{"searchKeyword": "zzz"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			svc := newTestService(&fakeProvider{}, sink, &countingSleeper{}, "")

			result, err := svc.Run(context.Background(), tt.opts)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if result.DataPoints != tt.want {
				t.Fatalf("dataPoints = %d, want %d", result.DataPoints, tt.want)
			}
			if _, ok := sink.last().(*DemoSummaryRecord); !ok {
				t.Fatalf("demo summary missing, last = %T", sink.last())
			}
		})
	}
}

func TestRunAuthFailureFallsBackToDemo(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "structured 401", err: &kosis.APIError{Op: "list_tables", Kind: kosis.KindHTTPError, StatusCode: http.StatusUnauthorized, Message: "unauthorized"}},
		{name: "structured 403", err: &kosis.APIError{Op: "list_tables", Kind: kosis.KindHTTPError, StatusCode: http.StatusForbidden, Message: "forbidden"}},
		{name: "legacy 401 substring", err: errors.New("provider rejected: 401")},
		{name: "legacy API substring", err: errors.New("API key not registered")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			svc := newTestService(&fakeProvider{listErr: tt.err}, sink, &countingSleeper{}, "key")

			result, err := svc.Run(context.Background(), domain.Options{})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if !result.DemoMode {
				t.Fatalf("auth failure must degrade to demo mode")
			}
			for _, r := range sink.records {
				if _, ok := r.(*ErrorRecord); ok {
					t.Fatalf("auth fallback must not emit an error record")
				}
			}
		})
	}
}

func TestRunListFailureEmitsErrorThenDemo(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(&fakeProvider{listErr: errors.New("connection reset")}, sink, &countingSleeper{}, "key")

	result, err := svc.Run(context.Background(), domain.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.DemoMode {
		t.Fatalf("systemic failure must degrade to demo mode")
	}

	errRec, ok := sink.records[0].(*ErrorRecord)
	if !ok {
		t.Fatalf("first record = %T, want *ErrorRecord", sink.records[0])
	}
	if errRec.Scope != "run" {
		t.Fatalf("scope = %q, want run", errRec.Scope)
	}
	if errRec.Config == nil {
		t.Fatalf("run-scope error must carry the config")
	}
}

func TestRunEmptyListingEmitsMessage(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(&fakeProvider{}, sink, &countingSleeper{}, "key")

	result, err := svc.Run(context.Background(), domain.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.DemoMode {
		t.Fatalf("empty listing is not a systemic failure")
	}
	if result.DataPoints != 0 || result.TablesProcessed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	msg, ok := sink.last().(*MessageRecord)
	if !ok {
		t.Fatalf("last record = %T, want *MessageRecord", sink.last())
	}
	if msg.Message != "no data found for the given criteria" {
		t.Fatalf("message = %q", msg.Message)
	}
}

func TestRunDelaySkipsSuccessfulLastTable(t *testing.T) {
	provider := &fakeProvider{
		tables: descriptorsFor("인구 A", "인구 B", "인구 C"),
		rows: map[string][]kosis.RawRow{
			"DT_인구 A": sampleRows(),
			"DT_인구 B": sampleRows(),
			"DT_인구 C": sampleRows(),
		},
	}
	sink := &recordingSink{}
	sleeper := &countingSleeper{}
	svc := newTestService(provider, sink, sleeper, "key")

	if _, err := svc.Run(context.Background(), domain.Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sleeper.calls != 2 {
		t.Fatalf("sleeps = %d, want 2", sleeper.calls)
	}
	for _, d := range sleeper.delays {
		if d != domain.DefaultDelay {
			t.Fatalf("delay = %v, want %v", d, domain.DefaultDelay)
		}
	}
}

func TestRunDelayAppliesToFailedLastTable(t *testing.T) {
	provider := &fakeProvider{
		tables: descriptorsFor("인구 A", "인구 B"),
		rows:   map[string][]kosis.RawRow{"DT_인구 A": sampleRows()},
		dataErr: map[string]error{
			"DT_인구 B": &kosis.APIError{Op: "fetch_data", TableID: "DT_인구 B", Kind: kosis.KindNoResponse, Message: "timeout"},
		},
	}
	sleeper := &countingSleeper{}
	svc := newTestService(provider, &recordingSink{}, sleeper, "key")

	if _, err := svc.Run(context.Background(), domain.Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sleeper.calls != 2 {
		t.Fatalf("sleeps = %d, want 2 (failed last table still pauses)", sleeper.calls)
	}
}

func TestRunPerTableIsolation(t *testing.T) {
	provider := &fakeProvider{
		tables: descriptorsFor("인구 A", "인구 B"),
		rows:   map[string][]kosis.RawRow{"DT_인구 B": sampleRows()},
		dataErr: map[string]error{
			"DT_인구 A": &kosis.APIError{Op: "fetch_data", TableID: "DT_인구 A", Kind: kosis.KindHTTPError, StatusCode: 500, Message: "server error"},
		},
	}
	sink := &recordingSink{}
	svc := newTestService(provider, sink, &countingSleeper{}, "key")

	result, err := svc.Run(context.Background(), domain.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.DemoMode {
		t.Fatalf("one failed table must not trigger demo mode")
	}
	if result.TablesProcessed != 2 {
		t.Fatalf("tablesProcessed = %d, want 2", result.TablesProcessed)
	}
	if result.DataPoints != len(sampleRows()) {
		t.Fatalf("dataPoints = %d, want %d", result.DataPoints, len(sampleRows()))
	}

	var tableErr *ErrorRecord
	for _, r := range sink.records {
		if e, ok := r.(*ErrorRecord); ok {
			tableErr = e
		}
	}
	if tableErr == nil || tableErr.Scope != "table" || tableErr.TableID != "DT_인구 A" {
		t.Fatalf("table error record wrong: %+v", tableErr)
	}
}

func TestRunMaxItemsLimitsTables(t *testing.T) {
	provider := &fakeProvider{
		tables: descriptorsFor("인구 A", "인구 B", "인구 C", "인구 D", "인구 E"),
		rows: map[string][]kosis.RawRow{
			"DT_인구 A": sampleRows(),
			"DT_인구 B": sampleRows(),
		},
	}
	sink := &recordingSink{}
	svc := newTestService(provider, sink, &countingSleeper{}, "key")

	result, err := svc.Run(context.Background(), domain.Options{"maxItems": 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.TablesProcessed != 2 {
		t.Fatalf("tablesProcessed = %d, want 2", result.TablesProcessed)
	}
}

func TestRunKeywordFiltersTables(t *testing.T) {
	provider := &fakeProvider{
		tables: []kosis.TableDescriptor{
			{TblID: "T1", TblNm: "인구총조사", OrgID: "101"},
			{TblID: "T2", TblNm: "어업생산동향", OrgID: "101"},
			{ListID: "L1", ListNm: "인구동향", OrgID: "101"},
		},
		rows: map[string][]kosis.RawRow{"T1": sampleRows(), "L1": sampleRows()},
	}
	sink := &recordingSink{}
	svc := newTestService(provider, sink, &countingSleeper{}, "key")

	result, err := svc.Run(context.Background(), domain.Options{"searchKeyword": "인구"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.TablesProcessed != 2 {
		t.Fatalf("tablesProcessed = %d, want 2 (keyword should drop 어업생산동향)", result.TablesProcessed)
	}
}

func TestRunOutputFormats(t *testing.T) {
	provider := func() *fakeProvider {
		return &fakeProvider{
			tables: descriptorsFor("인구 A"),
			rows:   map[string][]kosis.RawRow{"DT_인구 A": sampleRows()},
		}
	}

	t.Run("structured only", func(t *testing.T) {
		sink := &recordingSink{}
		svc := newTestService(provider(), sink, &countingSleeper{}, "key")
		if _, err := svc.Run(context.Background(), domain.Options{}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(sink.normalized()) != 2 {
			t.Fatalf("normalized = %d, want 2", len(sink.normalized()))
		}
		for _, r := range sink.records {
			if _, ok := r.(*RawRecord); ok {
				t.Fatalf("structured format must not emit raw records")
			}
		}
	})

	t.Run("raw only", func(t *testing.T) {
		sink := &recordingSink{}
		svc := newTestService(provider(), sink, &countingSleeper{}, "key")
		if _, err := svc.Run(context.Background(), domain.Options{"outputFormat": "raw"}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(sink.normalized()) != 0 {
			t.Fatalf("raw format must not emit normalized records")
		}
		var raw *RawRecord
		for _, r := range sink.records {
			if rr, ok := r.(*RawRecord); ok {
				raw = rr
			}
		}
		if raw == nil || len(raw.Rows) != 2 || raw.TableID != "DT_인구 A" {
			t.Fatalf("raw record wrong: %+v", raw)
		}
	})

	t.Run("both", func(t *testing.T) {
		sink := &recordingSink{}
		svc := newTestService(provider(), sink, &countingSleeper{}, "key")
		if _, err := svc.Run(context.Background(), domain.Options{"outputFormat": "both"}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		var rawSeen bool
		for _, r := range sink.records {
			if _, ok := r.(*RawRecord); ok {
				rawSeen = true
			}
		}
		if !rawSeen || len(sink.normalized()) != 2 {
			t.Fatalf("both format must emit raw and normalized records")
		}
	})
}

func TestRunSummaryIsLastRecord(t *testing.T) {
	provider := &fakeProvider{
		tables: descriptorsFor("인구 A"),
		rows:   map[string][]kosis.RawRow{"DT_인구 A": sampleRows()},
	}
	sink := &recordingSink{}
	svc := newTestService(provider, sink, &countingSleeper{}, "key")

	if _, err := svc.Run(context.Background(), domain.Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	summary, ok := sink.last().(*SummaryRecord)
	if !ok {
		t.Fatalf("last record = %T, want *SummaryRecord", sink.last())
	}
	if summary.TablesProcessed != 1 || summary.DataPoints != 2 {
		t.Fatalf("summary wrong: %+v", summary)
	}
	if summary.FinishedAt == "" {
		t.Fatalf("summary must carry a finish timestamp")
	}
}

func TestRunChartFailureIsNonFatal(t *testing.T) {
	provider := &fakeProvider{
		tables: descriptorsFor("인구 A"),
		rows:   map[string][]kosis.RawRow{"DT_인구 A": sampleRows()},
	}
	sink := &recordingSink{}
	var chartRecords int
	svc := NewService(sink,
		WithClientFactory(func(string) (Provider, error) { return provider, nil }),
		WithSleeper((&countingSleeper{}).sleep),
		WithCredentialLookup(func() string { return "key" }),
		WithChart(func(_ context.Context, runID string, records []domain.NormalizedRecord) error {
			chartRecords = len(records)
			return errors.New("render failed")
		}),
	)

	result, err := svc.Run(context.Background(), domain.Options{})
	if err != nil {
		t.Fatalf("chart failure must not fail the run: %v", err)
	}
	if chartRecords != 2 {
		t.Fatalf("chart received %d records, want 2", chartRecords)
	}
	if result.DataPoints != 2 {
		t.Fatalf("dataPoints = %d, want 2", result.DataPoints)
	}
}

func TestRunSinkFailureIsNonFatal(t *testing.T) {
	provider := &fakeProvider{
		tables: descriptorsFor("인구 A"),
		rows:   map[string][]kosis.RawRow{"DT_인구 A": sampleRows()},
	}
	sink := &recordingSink{err: errors.New("disk full")}
	svc := newTestService(provider, sink, &countingSleeper{}, "key")

	if _, err := svc.Run(context.Background(), domain.Options{}); err != nil {
		t.Fatalf("sink failure must not fail the run: %v", err)
	}
}

func TestResolveDescriptor(t *testing.T) {
	tests := []struct {
		name      string
		in        kosis.TableDescriptor
		index     int
		wantID    string
		wantTitle string
	}{
		{name: "table fields", in: kosis.TableDescriptor{TblID: "T1", TblNm: "인구"}, wantID: "T1", wantTitle: "인구"},
		{name: "list fallback", in: kosis.TableDescriptor{ListID: "L1", ListNm: "목록"}, wantID: "L1", wantTitle: "목록"},
		{name: "synthesized", in: kosis.TableDescriptor{}, index: 2, wantID: "table_3", wantTitle: "Table 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, title := resolveDescriptor(tt.in, tt.index)
			if id != tt.wantID || title != tt.wantTitle {
				t.Fatalf("resolveDescriptor = (%q, %q), want (%q, %q)", id, title, tt.wantID, tt.wantTitle)
			}
		})
	}
}

func TestSleepWithContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sleepWithContext(ctx, time.Hour); err == nil {
		t.Fatalf("cancelled context must abort the sleep")
	}
	if err := sleepWithContext(context.Background(), 0); err != nil {
		t.Fatalf("zero delay should return immediately: %v", err)
	}
}
