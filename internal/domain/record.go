package domain

// RegionNational is the region sentinel used when no region-like field is
// detected in a provider row.
const RegionNational = "national"

// DataTypeError tags the sentinel record produced when a whole batch fails
// to normalize.
const DataTypeError = "error"

// NormalizedRecord is the canonical, provider-independent output unit. Every
// field is always populated; malformed input maps to sentinel values, never
// to a dropped record.
type NormalizedRecord struct {
	StatName      string                 `json:"statName"`
	SurveyDate    string                 `json:"surveyDate"`
	Region        string                 `json:"region"`
	Category1     string                 `json:"category1"`
	Category2     string                 `json:"category2"`
	Value         float64                `json:"value"`
	Unit          string                 `json:"unit"`
	SourceTableID string                 `json:"sourceTableId"`
	DataType      string                 `json:"dataType"`
	LastUpdated   string                 `json:"lastUpdated"`
	Metadata      map[string]interface{} `json:"metadata"`
	ExtractedAt   string                 `json:"extractedAt"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}
