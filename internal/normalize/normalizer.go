package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/joonhk-lab/kosis-agent/internal/domain"
	"github.com/joonhk-lab/kosis-agent/internal/kosis"
	"github.com/shopspring/decimal"
)

const (
	unknownStat   = "Unknown Statistic"
	unknownPeriod = "Unknown Period"
)

// Field-priority lists: the first present field wins. KOSIS field names come
// first, generic aliases last.
var (
	statNameFields = []string{"TBL_NM", "STAT_NAME", "ITM_NM", "C1_NM", "title"}
	valueFields    = []string{"DT", "DATA", "VALUE", "dt"}
	unitFields     = []string{"UNIT_NM", "UNIT", "unit"}
	periodFields   = []string{"PRD_DE", "TIME", "period"}
)

// regionIndicators mark a classification field as geographic. Sido names per
// the KOSIS regional taxonomy, plus the administrative suffixes.
var regionIndicators = []string{
	"서울", "부산", "대구", "인천", "광주", "대전", "울산", "세종",
	"경기", "강원", "충북", "충남", "전북", "전남", "경북", "경남", "제주",
	"특별시", "광역시", "자치도", "자치시",
}

// Records maps provider rows into the uniform record schema. It never raises:
// a failure anywhere in the batch discards partial output and yields exactly
// one sentinel record carrying the failure message and the original payload.
func Records(rows []kosis.RawRow, meta *kosis.TableMetadata, sourceTableID string) (out []domain.NormalizedRecord) {
	defer func() {
		if r := recover(); r != nil {
			out = []domain.NormalizedRecord{sentinelRecord(rows, sourceTableID, fmt.Sprint(r))}
		}
	}()

	now := time.Now().UTC().Format(time.RFC3339)
	out = make([]domain.NormalizedRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, record(row, meta, sourceTableID, now))
	}
	return out
}

func record(row kosis.RawRow, meta *kosis.TableMetadata, sourceTableID, now string) domain.NormalizedRecord {
	statName := firstField(row, statNameFields)
	if statName == "" {
		statName = unknownStat
	}

	period := firstField(row, periodFields)
	if period == "" {
		period = unknownPeriod
	}

	category1 := firstField(row, []string{"C1_NM", "ITM_NM"})
	category2 := firstField(row, []string{"C2_NM"})

	lastUpdated := firstField(row, []string{"LST_CHN_DE"})
	if lastUpdated == "" {
		lastUpdated = now
	}

	metadata := map[string]interface{}{
		"raw": row,
		"classifications": map[string]interface{}{
			"C1":     stringField(row, "C1"),
			"C1_NM":  stringField(row, "C1_NM"),
			"C2_NM":  stringField(row, "C2_NM"),
			"ITM_NM": stringField(row, "ITM_NM"),
		},
	}
	if meta != nil {
		metadata["table"] = meta
	}

	return domain.NormalizedRecord{
		StatName:      statName,
		SurveyDate:    period,
		Region:        region(row),
		Category1:     category1,
		Category2:     category2,
		Value:         parseValue(row, valueFields),
		Unit:          firstField(row, unitFields),
		SourceTableID: sourceTableID,
		DataType:      Classify(statName),
		LastUpdated:   lastUpdated,
		Metadata:      metadata,
		ExtractedAt:   now,
	}
}

// region returns the classification value when it looks geographic, otherwise
// the national sentinel.
func region(row kosis.RawRow) string {
	for _, key := range []string{"C1_NM", "C1"} {
		value := stringField(row, key)
		if value == "" {
			continue
		}
		for _, indicator := range regionIndicators {
			if strings.Contains(value, indicator) {
				return value
			}
		}
	}
	return domain.RegionNational
}

func firstField(row kosis.RawRow, keys []string) string {
	for _, key := range keys {
		if value := stringField(row, key); value != "" {
			return value
		}
	}
	return ""
}

func stringField(row kosis.RawRow, key string) string {
	switch v := row[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return decimal.NewFromFloat(v).String()
	default:
		return ""
	}
}

// parseValue coerces the first present value field to a number. Comma-grouped
// numeric strings are accepted; anything unparseable is 0, never a failure.
func parseValue(row kosis.RawRow, keys []string) float64 {
	for _, key := range keys {
		raw, ok := row[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case string:
			cleaned := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
			if cleaned == "" {
				return 0
			}
			parsed, err := decimal.NewFromString(cleaned)
			if err != nil {
				return 0
			}
			return parsed.InexactFloat64()
		default:
			return 0
		}
	}
	return 0
}

func sentinelRecord(rows []kosis.RawRow, sourceTableID, errMsg string) domain.NormalizedRecord {
	now := time.Now().UTC().Format(time.RFC3339)
	return domain.NormalizedRecord{
		StatName:      unknownStat,
		SurveyDate:    unknownPeriod,
		Region:        domain.RegionNational,
		Category1:     "",
		Category2:     "",
		Value:         0,
		Unit:          "",
		SourceTableID: sourceTableID,
		DataType:      domain.DataTypeError,
		LastUpdated:   now,
		Metadata: map[string]interface{}{
			"error": errMsg,
			"raw":   rows,
		},
		ExtractedAt: now,
	}
}
