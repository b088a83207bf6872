package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/joonhk-lab/kosis-agent/internal/domain"
	"github.com/joonhk-lab/kosis-agent/internal/kosis"
	"github.com/joonhk-lab/kosis-agent/internal/normalize"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/constants"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/logger"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/metrics"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/store"
	"github.com/spf13/viper"
)

// Sink accepts one output record at a time. Emission order is the only
// ordering guarantee it may rely on.
type Sink interface {
	Emit(ctx context.Context, record interface{}) error
}

// Sleeper is the injected delay primitive so tests can observe invocations.
type Sleeper func(ctx context.Context, d time.Duration) error

// ChartFunc receives the full accumulated structured-record sequence of a run
// and produces a side-channel image artifact. Failures are non-fatal.
type ChartFunc func(ctx context.Context, runID string, records []domain.NormalizedRecord) error

// Provider is the slice of the KOSIS client the orchestrator depends on.
type Provider interface {
	ListTables(ctx context.Context, params kosis.ListParams) ([]kosis.TableDescriptor, error)
	FetchTableData(ctx context.Context, tableID string, params kosis.DataParams) ([]kosis.RawRow, error)
	FetchMetadata(ctx context.Context, tableID string) (*kosis.TableMetadata, error)
}

type ClientFactory func(apiKey string) (Provider, error)

// Service sequences one extraction run: validate input, list tables, fetch +
// normalize + emit per table with inter-request delay and per-table error
// isolation, then emit a summary. Systemic failures degrade to the demo
// dataset; a run never terminates with zero output.
type Service struct {
	sink       Sink
	newClient  ClientFactory
	sleep      Sleeper
	chart      ChartFunc
	store      store.Store
	metrics    *metrics.Metrics
	credential func() string
}

type Option func(*Service)

func WithClientFactory(factory ClientFactory) Option {
	return func(s *Service) {
		if factory != nil {
			s.newClient = factory
		}
	}
}

func WithSleeper(sleep Sleeper) Option {
	return func(s *Service) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

func WithChart(chart ChartFunc) Option {
	return func(s *Service) {
		s.chart = chart
	}
}

func WithStore(st store.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithCredentialLookup(lookup func() string) Option {
	return func(s *Service) {
		if lookup != nil {
			s.credential = lookup
		}
	}
}

func NewService(sink Sink, opts ...Option) *Service {
	svc := &Service{
		sink: sink,
		newClient: func(apiKey string) (Provider, error) {
			return kosis.NewClient(apiKey)
		},
		sleep:      sleepWithContext,
		credential: defaultCredential,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// defaultCredential checks the environment variable first, then the
// configuration store, in that order.
func defaultCredential() string {
	if key := strings.TrimSpace(os.Getenv(constants.EnvKeyAPIKey)); key != "" {
		return key
	}
	return strings.TrimSpace(viper.GetString(constants.ViperKeyAPIKey))
}

type RunResult struct {
	RunID           string `json:"runId"`
	DemoMode        bool   `json:"demoMode"`
	TablesProcessed int    `json:"tablesProcessed"`
	DataPoints      int    `json:"dataPoints"`
}

// Run executes one extraction run for the given raw options.
func (s *Service) Run(ctx context.Context, opts domain.Options) (*RunResult, error) {
	cfg := domain.NewConfig(opts)
	runID := uuid.NewString()
	ctx = domain.WithRunID(ctx, runID)

	logger.Infof(ctx, "starting extraction: keyword=%q maxItems=%d format=%s",
		cfg.SearchKeyword, cfg.MaxItems, cfg.OutputFormat)
	s.recordRunStart(ctx, runID, cfg)

	key := s.credential()
	if key == "" {
		logger.Warnf(ctx, "no api key configured, serving demo dataset")
		return s.finishDemo(ctx, runID, cfg)
	}

	client, err := s.newClient(key)
	if err != nil {
		// Unreachable in practice: the credential presence check above is the
		// only precondition the factory enforces.
		s.recordRunFinish(ctx, runID, domain.RunStatusFailed, 0, 0)
		return nil, fmt.Errorf("build api client: %w", err)
	}

	descriptors, err := client.ListTables(ctx, kosis.ListParams{
		ViewCode: cfg.ViewCode,
		ParentID: cfg.ParentID,
	})
	if err != nil {
		if isAuthFailure(err) {
			logger.Warnf(ctx, "table listing rejected as auth failure, serving demo dataset: %s", err)
			return s.finishDemo(ctx, runID, cfg)
		}
		logger.Errorf(ctx, "table listing failed: %s", err)
		s.emit(ctx, &ErrorRecord{Type: RecordTypeError, Scope: "run", Message: err.Error(), Config: &cfg})
		s.metrics.IncError("run")
		return s.finishDemo(ctx, runID, cfg)
	}

	// The list endpoint has no native keyword filter; apply the keyword
	// client-side, best effort, before truncation.
	if cfg.SearchKeyword != "" {
		descriptors = filterDescriptors(descriptors, cfg.SearchKeyword)
	}

	if len(descriptors) == 0 {
		logger.Infof(ctx, "no tables matched the given criteria")
		s.emit(ctx, &MessageRecord{Type: RecordTypeMessage, Message: "no data found for the given criteria", Config: cfg})
		s.recordRunFinish(ctx, runID, domain.RunStatusCompleted, 0, 0)
		s.metrics.IncRun("live")
		return &RunResult{RunID: runID}, nil
	}

	if len(descriptors) > cfg.MaxItems {
		descriptors = descriptors[:cfg.MaxItems]
	}

	var accumulated []domain.NormalizedRecord
	dataPoints := 0
	for i, descriptor := range descriptors {
		tableID, title := resolveDescriptor(descriptor, i)
		failed := s.processTable(ctx, client, cfg, tableID, title, descriptor, &accumulated, &dataPoints)

		// Rate limiting applies uniformly regardless of success or failure;
		// only a successful last table skips the pause.
		last := i == len(descriptors)-1
		if !last || failed {
			if err := s.sleep(ctx, cfg.DelayBetweenRequests); err != nil {
				s.recordRunFinish(ctx, runID, domain.RunStatusFailed, i+1, dataPoints)
				return nil, err
			}
		}
	}

	if len(accumulated) > 0 && s.chart != nil {
		if err := s.chart(ctx, runID, accumulated); err != nil {
			logger.Errorf(ctx, "chart generation failed: %s", err)
			s.metrics.IncError("chart")
		}
	}

	s.emit(ctx, &SummaryRecord{
		Type:            RecordTypeSummary,
		TablesProcessed: len(descriptors),
		DataPoints:      dataPoints,
		Config:          cfg,
		FinishedAt:      time.Now().UTC().Format(time.RFC3339),
	})
	s.recordRunFinish(ctx, runID, domain.RunStatusCompleted, len(descriptors), dataPoints)
	s.metrics.IncRun("live")
	s.metrics.IncTables(len(descriptors))

	logger.Infof(ctx, "extraction finished: tables=%d dataPoints=%d", len(descriptors), dataPoints)
	return &RunResult{RunID: runID, TablesProcessed: len(descriptors), DataPoints: dataPoints}, nil
}

// processTable handles one table in isolation: metadata (best effort), data
// fetch, raw/structured emission. Reports whether the table failed.
func (s *Service) processTable(
	ctx context.Context,
	client Provider,
	cfg domain.Config,
	tableID, title string,
	descriptor kosis.TableDescriptor,
	accumulated *[]domain.NormalizedRecord,
	dataPoints *int,
) bool {
	var meta *kosis.TableMetadata
	if cfg.IncludeMetadata {
		m, err := client.FetchMetadata(ctx, tableID)
		if err != nil {
			// Metadata is best effort; the table goes on without it.
			logger.Warnf(ctx, "metadata fetch failed for %s, continuing without: %s", tableID, err)
		} else {
			meta = m
		}
	}

	start := time.Now()
	rows, err := client.FetchTableData(ctx, tableID, kosis.DataParams{OrgID: descriptor.OrgID})
	s.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		logger.Errorf(ctx, "table %s failed: %s", tableID, err)
		s.emit(ctx, &ErrorRecord{Type: RecordTypeError, Scope: "table", TableID: tableID, Message: err.Error()})
		s.metrics.IncError("table")
		return true
	}

	if cfg.OutputFormat.IncludesRaw() {
		s.emit(ctx, &RawRecord{Type: RecordTypeRaw, TableID: tableID, TableTitle: title, Metadata: meta, Rows: rows})
	}

	if cfg.OutputFormat.IncludesStructured() {
		records := normalize.Records(rows, meta, tableID)
		for _, record := range records {
			s.emit(ctx, record)
		}
		*accumulated = append(*accumulated, records...)
		*dataPoints += len(records)
		s.metrics.IncRecords(len(records))
	}

	logger.Debugf(ctx, "processed table %s (%s): %d rows", tableID, title, len(rows))
	return false
}

func (s *Service) finishDemo(ctx context.Context, runID string, cfg domain.Config) (*RunResult, error) {
	count := s.runDemo(ctx, cfg)
	s.recordRunFinish(ctx, runID, domain.RunStatusDemo, 0, count)
	s.metrics.IncRun("demo")
	return &RunResult{RunID: runID, DemoMode: true, DataPoints: count}, nil
}

// emit hands one record to the sink. Sink failures never abort a run.
func (s *Service) emit(ctx context.Context, record interface{}) {
	if err := s.sink.Emit(ctx, record); err != nil {
		logger.Errorf(ctx, "sink emit failed: %s", err)
		s.metrics.IncError("sink")
	}
}

func (s *Service) recordRunStart(ctx context.Context, runID string, cfg domain.Config) {
	if s.store == nil {
		return
	}
	payload, err := sonic.Marshal(cfg)
	if err != nil {
		payload = []byte("{}")
	}
	run := &domain.Run{
		ID:        runID,
		Status:    domain.RunStatusRunning,
		Config:    payload,
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		logger.Errorf(ctx, "store.CreateRun: %s", err)
	}
}

func (s *Service) recordRunFinish(ctx context.Context, runID string, status domain.RunStatus, tables, dataPoints int) {
	if s.store == nil {
		return
	}
	if err := s.store.FinishRun(ctx, runID, status, tables, dataPoints); err != nil {
		logger.Errorf(ctx, "store.FinishRun: %s", err)
	}
}

// resolveDescriptor picks a usable id/title via fallback field priority,
// synthesizing positional ones when the descriptor carries neither.
func resolveDescriptor(d kosis.TableDescriptor, index int) (string, string) {
	tableID := d.TblID
	if tableID == "" {
		tableID = d.ListID
	}
	if tableID == "" {
		tableID = fmt.Sprintf("table_%d", index+1)
	}

	title := d.TblNm
	if title == "" {
		title = d.ListNm
	}
	if title == "" {
		title = fmt.Sprintf("Table %d", index+1)
	}

	return tableID, title
}

func filterDescriptors(descriptors []kosis.TableDescriptor, keyword string) []kosis.TableDescriptor {
	lowered := strings.ToLower(keyword)
	out := make([]kosis.TableDescriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if strings.Contains(strings.ToLower(d.TblNm), lowered) ||
			strings.Contains(strings.ToLower(d.ListNm), lowered) {
			out = append(out, d)
		}
	}
	return out
}

// isAuthFailure dispatches on the structured status first; the message
// substring check stays as a fallback for errors that arrive unwrapped.
func isAuthFailure(err error) bool {
	if kosis.IsAuthError(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "401") ||
		strings.Contains(msg, "403") ||
		strings.Contains(msg, "API")
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
