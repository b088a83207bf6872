package normalize

import "strings"

// DataTypeGeneral is the classification for names no keyword set matches.
const DataTypeGeneral = "general"

type keywordSet struct {
	dataType string
	keywords []string
}

// topicKeywords is checked in order; the first set with a matching keyword
// wins. Keywords are lower-case; matching is case-insensitive substring.
var topicKeywords = []keywordSet{
	{"population", []string{"인구", "가구", "출생", "사망", "혼인", "population", "household", "birth"}},
	{"economic", []string{"경제", "국내총생산", "gdp", "성장률", "경기", "economic", "economy"}},
	{"labor", []string{"고용", "실업", "취업", "노동", "임금", "employment", "unemployment", "labor", "wage"}},
	{"industry", []string{"산업", "제조업", "광공업", "서비스업", "기업", "industry", "manufacturing"}},
	{"education", []string{"교육", "학교", "학생", "교원", "education", "school"}},
	{"health", []string{"보건", "의료", "건강", "질병", "병원", "health", "medical"}},
	{"environment", []string{"환경", "대기", "수질", "폐기물", "environment", "emission"}},
	{"housing", []string{"주택", "주거", "부동산", "건설", "housing", "construction"}},
	{"income", []string{"소득", "가계수지", "분배", "income"}},
	{"prices", []string{"물가", "가격", "소비자", "price", "consumer"}},
}

// Classify infers a coarse topic category from a statistic's display name.
func Classify(name string) string {
	lowered := strings.ToLower(name)
	for _, set := range topicKeywords {
		for _, keyword := range set.keywords {
			if strings.Contains(lowered, keyword) {
				return set.dataType
			}
		}
	}
	return DataTypeGeneral
}
