package dataset

import (
	"github.com/tidwall/gjson"
)

// Trend kinds in the lexical trend document.
const (
	TrendRising    = "rising"
	TrendDeclining = "declining"
)

// Trends wraps the lexical trend document. Its schema belongs to the
// sparkline renderer, so only the parts the story reads are interpreted.
type Trends struct {
	raw string
}

// Word is one word's trend summary.
type Word struct {
	Word         string    `json:"word"`
	Change       float64   `json:"change"`
	RecentPer10k float64   `json:"recent_per_10k"`
	Series       []float64 `json:"series"`
}

// ParseTrends validates data as JSON with rising and declining lists.
func ParseTrends(data []byte) (Trends, error) {
	if !gjson.ValidBytes(data) {
		return Trends{}, invalid(TrendsFile, "not valid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return Trends{}, invalid(TrendsFile, "top level must be an object")
	}
	for _, kind := range []string{TrendRising, TrendDeclining} {
		if list := doc.Get(kind); list.Exists() && !list.IsArray() {
			return Trends{}, invalid(TrendsFile, "%s must be a list", kind)
		}
	}
	return Trends{raw: string(data)}, nil
}

// Raw returns the document as loaded.
func (t Trends) Raw() string {
	return t.raw
}

// Get looks up a gjson path in the document.
func (t Trends) Get(path string) gjson.Result {
	return gjson.Get(t.raw, path)
}

// Words returns up to limit words of the given kind. A non-positive limit
// returns every word.
func (t Trends) Words(kind string, limit int) []Word {
	var words []Word
	gjson.Get(t.raw, kind).ForEach(func(_, value gjson.Result) bool {
		if limit > 0 && len(words) >= limit {
			return false
		}
		word := Word{
			Word:         value.Get("word").String(),
			Change:       value.Get("change").Float(),
			RecentPer10k: value.Get("recent_per_10k").Float(),
		}
		for _, point := range value.Get("timeseries.#.per_10k").Array() {
			word.Series = append(word.Series, point.Float())
		}
		words = append(words, word)
		return true
	})
	return words
}
