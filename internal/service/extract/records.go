package extract

import (
	"github.com/joonhk-lab/kosis-agent/internal/domain"
	"github.com/joonhk-lab/kosis-agent/internal/kosis"
)

// Tagged record shapes handed to the sink alongside plain
// domain.NormalizedRecord values (whose shape is their own tag).
const (
	RecordTypeRaw         = "raw"
	RecordTypeError       = "error"
	RecordTypeMessage     = "message"
	RecordTypeSummary     = "summary"
	RecordTypeDemoSummary = "demo_summary"
)

type RawRecord struct {
	Type       string               `json:"type"`
	TableID    string               `json:"tableId"`
	TableTitle string               `json:"tableTitle"`
	Metadata   *kosis.TableMetadata `json:"metadata"`
	Rows       []kosis.RawRow       `json:"rows"`
}

type ErrorRecord struct {
	Type    string         `json:"type"`
	Scope   string         `json:"scope"`
	TableID string         `json:"tableId,omitempty"`
	Message string         `json:"message"`
	Config  *domain.Config `json:"config,omitempty"`
}

type MessageRecord struct {
	Type    string        `json:"type"`
	Message string        `json:"message"`
	Config  domain.Config `json:"config"`
}

type SummaryRecord struct {
	Type            string        `json:"type"`
	TablesProcessed int           `json:"tablesProcessed"`
	DataPoints      int           `json:"dataPoints"`
	Config          domain.Config `json:"config"`
	FinishedAt      string        `json:"finishedAt"`
}

type DemoSummaryRecord struct {
	Type             string        `json:"type"`
	Count            int           `json:"count"`
	Config           domain.Config `json:"config"`
	RegistrationInfo string        `json:"registrationInfo"`
	Note             string        `json:"note"`
}
