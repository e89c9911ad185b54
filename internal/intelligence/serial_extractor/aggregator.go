package serial_extractor

import "fmt"

// Suggestion texts returned alongside results.
const (
	SuggestionNoSerials  = "No serial numbers found; check the input or create a pattern"
	SuggestionNoPatterns = "No patterns matched; consider creating one"
)

// Aggregator merges candidates from every source. For a repeated serial the
// higher confidence wins and ties keep the first-seen entry; output keeps
// first-seen order.
type Aggregator struct {
	highThreshold float64
	index         map[string]int
	items         []ExtractedSerial
	failures      []ParseFailure
}

// NewAggregator returns an empty Aggregator that counts confidences at or
// above highThreshold as high.
func NewAggregator(highThreshold float64) *Aggregator {
	return &Aggregator{
		highThreshold: highThreshold,
		index:         make(map[string]int),
	}
}

// Add offers a candidate.
func (a *Aggregator) Add(c ExtractedSerial) {
	if i, ok := a.index[c.Serial]; ok {
		if c.Confidence > a.items[i].Confidence {
			a.items[i] = c
		}
		return
	}
	a.index[c.Serial] = len(a.items)
	a.items = append(a.items, c)
}

// Fail records a non-fatal failure.
func (a *Aggregator) Fail(f ParseFailure) {
	a.failures = append(a.failures, f)
}

// Len returns the number of distinct serials collected so far.
func (a *Aggregator) Len() int { return len(a.items) }

// Result builds the final ExtractionResult.
func (a *Aggregator) Result() *ExtractionResult {
	res := &ExtractionResult{
		ExtractedSerials: make([]string, 0, len(a.items)),
		DetailedResults:  make([]ExtractedSerial, 0, len(a.items)),
		Failures:         make([]ParseFailure, 0, len(a.failures)),
	}
	var sum float64
	for _, it := range a.items {
		res.ExtractedSerials = append(res.ExtractedSerials, it.Serial)
		res.DetailedResults = append(res.DetailedResults, it)
		sum += it.Confidence
		if it.Confidence >= a.highThreshold {
			res.Statistics.HighConfidenceCount++
		}
		if it.PatternMatched() {
			res.Statistics.PatternMatchedCount++
		}
	}
	res.Statistics.TotalExtracted = len(a.items)
	if len(a.items) > 0 {
		res.Statistics.AverageConfidence = sum / float64(len(a.items))
	}
	res.Failures = append(res.Failures, a.failures...)
	res.Suggestions = a.suggestions(res.Statistics)
	return res
}

func (a *Aggregator) suggestions(st Statistics) []string {
	out := make([]string, 0, 2)
	switch {
	case st.TotalExtracted == 0:
		out = append(out, SuggestionNoSerials)
	case st.PatternMatchedCount == 0:
		out = append(out, SuggestionNoPatterns)
	}

	var parseFailures int
	for _, f := range a.failures {
		if !f.IsPatternFailure() {
			parseFailures++
		}
	}
	if parseFailures > 0 {
		out = append(out, fmt.Sprintf("%d expression(s) could not be parsed", parseFailures))
	}
	for _, f := range a.failures {
		if f.IsPatternFailure() {
			out = append(out, fmt.Sprintf("Pattern %s has an invalid configuration", f.Expression))
		}
	}
	return out
}

//Personal.AI order the ending
