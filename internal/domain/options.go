package domain

import (
	"strconv"
	"strings"
	"time"
)

// Options is the raw, possibly malformed input for one extraction run.
// Keys are the ones documented for the agent (searchKeyword, vwCd/viewCode,
// parentId, maxItems, includeMetadata, outputFormat, delayBetweenRequestsMs);
// anything else is ignored.
type Options map[string]interface{}

type OutputFormat string

const (
	OutputStructured OutputFormat = "structured"
	OutputRaw        OutputFormat = "raw"
	OutputBoth       OutputFormat = "both"
)

// IncludesRaw reports whether raw provider payloads should be emitted.
func (f OutputFormat) IncludesRaw() bool {
	return f == OutputRaw || f == OutputBoth
}

// IncludesStructured reports whether normalized records should be emitted.
func (f OutputFormat) IncludesStructured() bool {
	return f == OutputStructured || f == OutputBoth
}

const (
	DefaultViewCode = "MT_ZTITLE"
	DefaultParentID = "A"
	DefaultMaxItems = 10
	MinMaxItems     = 1
	MaxMaxItems     = 100
	DefaultDelay    = 1000 * time.Millisecond
	MinDelay        = 500 * time.Millisecond
)

// Config is the validated, immutable configuration of one run. Every field is
// inside its declared bounds; nothing downstream re-validates.
type Config struct {
	SearchKeyword        string        `json:"searchKeyword"`
	ViewCode             string        `json:"viewCode"`
	ParentID             string        `json:"parentId"`
	MaxItems             int           `json:"maxItems"`
	IncludeMetadata      bool          `json:"includeMetadata"`
	OutputFormat         OutputFormat  `json:"outputFormat"`
	DelayBetweenRequests time.Duration `json:"delayBetweenRequestsMs"`
}

// NewConfig normalizes and bounds raw options into a Config. It never fails:
// missing or malformed fields fall back to their defaults.
func NewConfig(opts Options) Config {
	cfg := Config{
		SearchKeyword:        strings.TrimSpace(optString(opts, "searchKeyword")),
		ViewCode:             DefaultViewCode,
		ParentID:             DefaultParentID,
		MaxItems:             DefaultMaxItems,
		IncludeMetadata:      true,
		OutputFormat:         OutputStructured,
		DelayBetweenRequests: DefaultDelay,
	}

	if v := strings.TrimSpace(firstString(opts, "vwCd", "viewCode")); v != "" {
		cfg.ViewCode = v
	}
	if v := strings.TrimSpace(optString(opts, "parentId")); v != "" {
		cfg.ParentID = v
	}

	if v, ok := optInt(opts, "maxItems"); ok && v != 0 {
		switch {
		case v < MinMaxItems:
			cfg.MaxItems = MinMaxItems
		case v > MaxMaxItems:
			cfg.MaxItems = MaxMaxItems
		default:
			cfg.MaxItems = v
		}
	}

	if v, ok := optBool(opts, "includeMetadata"); ok {
		cfg.IncludeMetadata = v
	}

	switch OutputFormat(strings.ToLower(strings.TrimSpace(optString(opts, "outputFormat")))) {
	case OutputRaw:
		cfg.OutputFormat = OutputRaw
	case OutputBoth:
		cfg.OutputFormat = OutputBoth
	}

	if v, ok := optInt(opts, "delayBetweenRequestsMs"); ok {
		delay := time.Duration(v) * time.Millisecond
		if delay < MinDelay {
			delay = MinDelay
		}
		cfg.DelayBetweenRequests = delay
	}

	return cfg
}

func firstString(opts Options, keys ...string) string {
	for _, key := range keys {
		if v := optString(opts, key); v != "" {
			return v
		}
	}
	return ""
}

func optString(opts Options, key string) string {
	switch v := opts[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func optInt(opts Options, key string) (int, bool) {
	switch v := opts[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func optBool(opts Options, key string) (bool, bool) {
	switch v := opts[key].(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, false
		}
		return parsed, true
	default:
		return false, false
	}
}
