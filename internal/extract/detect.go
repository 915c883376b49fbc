package extract

import "strings"

type DetectResult struct {
	Relevant bool
	Score    float64
	Hits     []string
}

var detectKeywords = []string{
	"carbon", "hydrogen", "battery", "hybrid", "electric", "zero emission",
	"mining", "construction", "low-emission", "zero-emission",
}

// DetectRelevance decides whether a fetched page is about low-carbon
// equipment and worth extracting. One keyword hit is enough.
func DetectRelevance(text string) DetectResult {
	low := strings.ToLower(text)
	hits := []string{}
	for _, kw := range detectKeywords {
		if strings.Contains(low, kw) {
			hits = append(hits, kw)
		}
	}
	score := float64(len(hits)) / 4
	if score > 1 {
		score = 1
	}
	return DetectResult{Relevant: len(hits) > 0, Score: score, Hits: hits}
}
