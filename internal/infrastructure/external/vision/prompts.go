package vision

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptConfig holds the document analysis prompt and its model parameters
type PromptConfig struct {
	DocumentAnalysis struct {
		Temperature  float32 `yaml:"temperature"`
		MaxTokens    int     `yaml:"max_tokens"`
		System       string  `yaml:"system"`
		UserTemplate string  `yaml:"user_template"`
	} `yaml:"document_analysis"`
}

const defaultSystemPrompt = `You are a certified translation project estimator. You read scanned or photographed documents
and report what a translator needs to quote the job. Answer with one JSON object and nothing else.`

const defaultUserTemplate = `Analyze the attached document "{{.FileName}}" ({{.MimeType}}{{if .PageCount}}, {{.PageCount}} page(s){{end}}).
{{- if .GroupHint}}

Other documents in the same order: {{.GroupHint}}
{{- end}}
{{- if .PriorText}}

Text layer extracted from the file (may be incomplete):
"""
{{.PriorText}}
"""
{{- end}}

Return JSON with exactly these fields:
{
  "detected_language": ISO 639-1 code of the source language,
  "document_type": short label such as "birth_certificate", "diploma", "bank_statement",
  "complexity": "easy" | "medium" | "hard",
  "word_count": integer count of words to translate across all pages,
  "page_count": integer,
  "ocr_confidence": 0..1, how legible the text is,
  "language_confidence": 0..1,
  "document_type_confidence": 0..1,
  "complexity_confidence": 0..1,
  "notes": anything the reviewer should know (stamps, handwriting, missing pages)
}`

// DefaultPrompts returns the built-in prompts used when no YAML file is configured
func DefaultPrompts() *PromptConfig {
	var p PromptConfig
	p.DocumentAnalysis.Temperature = 0.1
	p.DocumentAnalysis.MaxTokens = 1024
	p.DocumentAnalysis.System = defaultSystemPrompt
	p.DocumentAnalysis.UserTemplate = defaultUserTemplate
	return &p
}

// LoadPrompts reads prompts from a YAML file. An empty path returns the defaults,
// and fields missing from the file keep their default values.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	prompts := DefaultPrompts()
	if promptsPath == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	if err := yaml.Unmarshal(data, prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}
	if _, err := template.New("check").Parse(prompts.DocumentAnalysis.UserTemplate); err != nil {
		return nil, fmt.Errorf("invalid user_template: %w", err)
	}
	return prompts, nil
}

// promptData is the template context for the user prompt
type promptData struct {
	FileName  string
	MimeType  string
	PageCount int
	PriorText string
	GroupHint string
}

func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}
