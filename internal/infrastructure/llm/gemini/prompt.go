package gemini

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

type promptSources struct {
	Classify                string `yaml:"classify"`
	ClassifyMulti           string `yaml:"classify_multi"`
	ExtractBill             string `yaml:"extract_bill"`
	ExtractDischargeSummary string `yaml:"extract_discharge_summary"`
	Decision                string `yaml:"decision"`
}

// Prompts is the parsed prompt catalog.
type Prompts struct {
	classify      *template.Template
	classifyMulti *template.Template
	extract       map[domain.DocumentType]*template.Template
	decision      *template.Template
}

// LoadPrompts parses the embedded catalog and overlays path when it is set.
// Keys missing from the override keep their embedded text.
func LoadPrompts(path string) (*Prompts, error) {
	var src promptSources
	if err := yaml.Unmarshal(defaultPromptsYAML, &src); err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompts file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &src); err != nil {
			return nil, fmt.Errorf("parse prompts file %s: %w", path, err)
		}
	}
	return compilePrompts(src)
}

// DefaultPrompts returns the embedded catalog; it panics only on a broken build.
func DefaultPrompts() *Prompts {
	p, err := LoadPrompts("")
	if err != nil {
		panic(err)
	}
	return p
}

func compilePrompts(src promptSources) (*Prompts, error) {
	parse := func(name, text string) (*template.Template, error) {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("prompt %q is empty", name)
		}
		tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse prompt %q: %w", name, err)
		}
		return tmpl, nil
	}

	p := &Prompts{extract: make(map[domain.DocumentType]*template.Template, 2)}
	var err error
	if p.classify, err = parse("classify", src.Classify); err != nil {
		return nil, err
	}
	if p.classifyMulti, err = parse("classify_multi", src.ClassifyMulti); err != nil {
		return nil, err
	}
	if p.extract[domain.DocumentTypeBill], err = parse("extract_bill", src.ExtractBill); err != nil {
		return nil, err
	}
	if p.extract[domain.DocumentTypeDischargeSummary], err = parse("extract_discharge_summary", src.ExtractDischargeSummary); err != nil {
		return nil, err
	}
	if p.decision, err = parse("decision", src.Decision); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Prompts) Classification(filenames []string, multiType bool) (string, error) {
	quoted, err := json.Marshal(filenames)
	if err != nil {
		return "", fmt.Errorf("encode filenames: %w", err)
	}
	tmpl := p.classify
	if multiType {
		tmpl = p.classifyMulti
	}
	return render(tmpl, map[string]any{"Filenames": string(quoted)})
}

func (p *Prompts) Extraction(docType domain.DocumentType, fields []string) (string, error) {
	tmpl, ok := p.extract[docType]
	if !ok {
		return "", fmt.Errorf("no extraction prompt for type %q", docType)
	}
	return render(tmpl, map[string]any{
		"Type":   string(docType),
		"Fields": strings.Join(fields, ", "),
	})
}

func (p *Prompts) Decision(documents []domain.ExtractedDocument) (string, error) {
	payload, err := json.MarshalIndent(map[string]any{"documents": documents}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode claim data: %w", err)
	}
	return render(p.decision, map[string]any{"Data": string(payload)})
}

func render(tmpl *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}
