// Package search answers catalog questions: it classifies query intent,
// retrieves candidates from the published index with intent-tuned
// parameters, and synthesizes a grounded reply through the LLM provider.
package search

import "strings"

// Intent buckets for retrieval tuning.
const (
	IntentTheme   = "theme"
	IntentSize    = "size"
	IntentYear    = "year"
	IntentPrice   = "price"
	IntentGeneral = "general"
)

// Strategy pairs a query intent with its retrieval parameters. Theme
// queries widen k for recall, price queries narrow it for precision.
type Strategy struct {
	Intent    string
	K         int
	Threshold float64
}

// strategies is evaluated top to bottom; the first entry with a keyword
// contained in the lowercased query wins.
var strategies = []struct {
	Strategy
	keywords []string
}{
	{Strategy{IntentTheme, 15, 0.7}, []string{"star wars", "marvel", "harry potter", "disney"}},
	{Strategy{IntentSize, 20, 0.6}, []string{"big", "large", "small", "pieces", "parts"}},
	{Strategy{IntentYear, 10, 0.8}, []string{"2024", "2023", "2022", "recent", "old"}},
	{Strategy{IntentPrice, 12, 0.75}, []string{"expensive", "cheap", "price", "cost"}},
}

// defaultStrategy backs queries matching no keyword list.
var defaultStrategy = Strategy{IntentGeneral, 8, 0.8}

// ClassifyIntent buckets a free-text query and returns the retrieval
// parameters tuned for that bucket.
func ClassifyIntent(query string) Strategy {
	q := strings.ToLower(query)
	for _, s := range strategies {
		for _, kw := range s.keywords {
			if strings.Contains(q, kw) {
				return s.Strategy
			}
		}
	}
	return defaultStrategy
}
