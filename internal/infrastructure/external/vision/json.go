package vision

import (
	"encoding/json"
	"strings"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/pricing"
)

// ParseError reports model output that could not be turned into an analysis
type ParseError struct {
	Reason  string
	Content string
}

func (e *ParseError) Error() string {
	return "unparseable model output: " + e.Reason
}

// ExtractJSON returns the first balanced JSON object in content. Markdown fences
// and surrounding prose are ignored.
func ExtractJSON(content string) (string, error) {
	for start := strings.IndexByte(content, '{'); start >= 0; {
		if end := findJSONEnd(content, start); end > start {
			return content[start:end], nil
		}
		next := strings.IndexByte(content[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", &ParseError{Reason: "no JSON object found", Content: truncate(content, 500)}
}

// findJSONEnd returns the index just past the brace closing the object at start, or -1
func findJSONEnd(content string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(content); i++ {
		c := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// modelOutput mirrors the JSON the prompt asks for. json.Number also accepts quoted numbers.
type modelOutput struct {
	DetectedLanguage       string      `json:"detected_language"`
	DocumentType           string      `json:"document_type"`
	Complexity             string      `json:"complexity"`
	WordCount              json.Number `json:"word_count"`
	PageCount              json.Number `json:"page_count"`
	OCRConfidence          json.Number `json:"ocr_confidence"`
	LanguageConfidence     json.Number `json:"language_confidence"`
	DocumentTypeConfidence json.Number `json:"document_type_confidence"`
	ComplexityConfidence   json.Number `json:"complexity_confidence"`
	Notes                  string      `json:"notes"`
}

// parseAnalysis decodes model content into a normalized analysis
func parseAnalysis(content string) (*port.DocumentAnalysis, error) {
	raw, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	var out modelOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &ParseError{Reason: err.Error(), Content: truncate(raw, 500)}
	}

	complexity := pricing.Complexity(strings.ToLower(strings.TrimSpace(out.Complexity)))
	complexityConfidence := clamp01(number(out.ComplexityConfidence))
	if !complexity.IsValid() {
		complexity = pricing.ComplexityMedium
		complexityConfidence = 0
	}

	return &port.DocumentAnalysis{
		DetectedLanguage:       strings.ToLower(strings.TrimSpace(out.DetectedLanguage)),
		DocumentType:           strings.TrimSpace(out.DocumentType),
		Complexity:             complexity,
		WordCount:              max(int(number(out.WordCount)), 0),
		PageCount:              max(int(number(out.PageCount)), 0),
		OCRConfidence:          clamp01(number(out.OCRConfidence)),
		LanguageConfidence:     clamp01(number(out.LanguageConfidence)),
		DocumentTypeConfidence: clamp01(number(out.DocumentTypeConfidence)),
		ComplexityConfidence:   complexityConfidence,
		Notes:                  strings.TrimSpace(out.Notes),
	}, nil
}

func number(n json.Number) float64 {
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return f
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
