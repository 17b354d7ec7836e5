package pipeline

import "strings"

type DetectResult struct {
	IsValuation bool
	Score       float64
	Reason      string
}

var detectKeywords = []string{"净值", "估值", "披露", "理财", "nav", "valuation"}

// DetectValuationReport scores whether a message carries fund valuation data
// at all. Anything below threshold is skipped rather than polluting the
// observation store.
func DetectValuationReport(subject, text string, attachmentNames []string) DetectResult {
	subjectLower := strings.ToLower(subject)
	textLower := strings.ToLower(text)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subjectLower, kw) {
			score += 0.3
		}
		if strings.Contains(textLower, kw) {
			score += 0.1
		}
	}

	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if strings.HasSuffix(ln, ".xlsx") || strings.HasSuffix(ln, ".xls") || strings.HasSuffix(ln, ".pdf") {
			score += 0.25
		}
		if strings.Contains(name, "净值") || strings.Contains(name, "估值") {
			score += 0.3
		}
	}

	if score > 1 {
		score = 1
	}

	isValuation := score >= 0.45
	reason := "rules_negative"
	if isValuation {
		reason = "rules_positive"
	}

	return DetectResult{IsValuation: isValuation, Score: score, Reason: reason}
}
