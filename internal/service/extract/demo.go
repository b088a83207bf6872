package extract

import (
	"context"
	"strings"
	"time"

	"github.com/joonhk-lab/kosis-agent/internal/domain"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/logger"
)

const registrationInfo = "Register at https://kosis.kr/openapi to obtain an API key and unlock live data."

// demoPool is the fixed fallback dataset served when live KOSIS access is
// unavailable or fails authentication. Values mirror published 2023 figures.
var demoPool = []domain.NormalizedRecord{
	{
		StatName:      "총인구 (Total Population)",
		SurveyDate:    "2023",
		Region:        domain.RegionNational,
		Category1:     "인구",
		Value:         51712619,
		Unit:          "명",
		SourceTableID: "DEMO_DT_1B040A3",
		DataType:      "population",
	},
	{
		StatName:      "출생아수 (Live Births)",
		SurveyDate:    "2023",
		Region:        domain.RegionNational,
		Category1:     "인구동향",
		Value:         230000,
		Unit:          "명",
		SourceTableID: "DEMO_DT_1B81A01",
		DataType:      "population",
	},
	{
		StatName:      "실업률 (Unemployment Rate)",
		SurveyDate:    "2023",
		Region:        domain.RegionNational,
		Category1:     "고용",
		Value:         2.7,
		Unit:          "%",
		SourceTableID: "DEMO_DT_1DA7002",
		DataType:      "labor",
	},
	{
		StatName:      "고용률 (Employment Rate)",
		SurveyDate:    "2023",
		Region:        domain.RegionNational,
		Category1:     "고용",
		Value:         62.6,
		Unit:          "%",
		SourceTableID: "DEMO_DT_1DA7001",
		DataType:      "labor",
	},
	{
		StatName:      "국내총생산 (Gross Domestic Product)",
		SurveyDate:    "2023",
		Region:        domain.RegionNational,
		Category1:     "국민계정",
		Value:         2236.3,
		Unit:          "조원",
		SourceTableID: "DEMO_DT_102Y002",
		DataType:      "economic",
	},
	{
		StatName:      "경제성장률 (Economic Growth Rate)",
		SurveyDate:    "2023",
		Region:        domain.RegionNational,
		Category1:     "국민계정",
		Value:         1.4,
		Unit:          "%",
		SourceTableID: "DEMO_DT_102Y003",
		DataType:      "economic",
	},
	{
		StatName:      "소비자물가지수 (Consumer Price Index)",
		SurveyDate:    "2023",
		Region:        domain.RegionNational,
		Category1:     "물가",
		Value:         111.59,
		Unit:          "2020=100",
		SourceTableID: "DEMO_DT_1J22003",
		DataType:      "prices",
	},
	{
		StatName:      "전월세전환율 (Rent Conversion Rate)",
		SurveyDate:    "2023",
		Region:        "서울특별시",
		Category1:     "물가",
		Value:         4.9,
		Unit:          "%",
		SourceTableID: "DEMO_DT_1J22112",
		DataType:      "prices",
	},
}

// runDemo emits the filtered demo records followed by a demo_summary record.
// Deterministic: emission order is pool order.
func (s *Service) runDemo(ctx context.Context, cfg domain.Config) int {
	selected := filterDemoPool(cfg)
	now := time.Now().UTC().Format(time.RFC3339)

	for _, record := range selected {
		record.LastUpdated = now
		record.ExtractedAt = now
		record.Metadata = map[string]interface{}{"demo": true}
		s.emit(ctx, record)
	}

	s.emit(ctx, &DemoSummaryRecord{
		Type:             RecordTypeDemoSummary,
		Count:            len(selected),
		Config:           cfg,
		RegistrationInfo: registrationInfo,
		Note:             "demo dataset served because live KOSIS access was unavailable",
	})

	logger.Infof(ctx, "demo mode: emitted %d sample records", len(selected))
	return len(selected)
}

func filterDemoPool(cfg domain.Config) []domain.NormalizedRecord {
	keyword := strings.ToLower(cfg.SearchKeyword)
	out := make([]domain.NormalizedRecord, 0, len(demoPool))
	for _, record := range demoPool {
		if keyword != "" && !demoMatches(record, keyword) {
			continue
		}
		out = append(out, record)
		if len(out) == cfg.MaxItems {
			break
		}
	}
	return out
}

func demoMatches(record domain.NormalizedRecord, keyword string) bool {
	return strings.Contains(strings.ToLower(record.StatName), keyword) ||
		strings.Contains(strings.ToLower(record.Category1), keyword) ||
		strings.Contains(strings.ToLower(record.DataType), keyword)
}
