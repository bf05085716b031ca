// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cta picks promotional call-to-action blocks and appends them to
// article HTML.
package cta

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/daily-digest/pkg/types"
)

// PerArticle is the number of blocks inserted into one article.
const PerArticle = 2

// CTA is one promotional block.
type CTA struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Text   string `json:"text" yaml:"text"`
	URL    string `json:"url" yaml:"url"`
	Button string `json:"button" yaml:"button"`
}

var blockTmpl = template.Must(template.New("cta").Parse(`<div class="cta" data-cta="{{.ID}}">
{{- if .Title}}<h3>{{.Title}}</h3>{{end -}}
{{- if .Text}}<p>{{.Text}}</p>{{end -}}
<a class="cta-button" href="{{.URL}}" target="_blank" rel="noopener">{{if .Button}}{{.Button}}{{else}}Подробнее{{end}}</a>
</div>`))

// Provider holds the configured CTAs.
type Provider struct {
	ctas []CTA
	Now  func() time.Time
}

// New returns a provider over ctas, dropping entries without a URL.
func New(ctas []CTA) *Provider {
	p := &Provider{Now: time.Now}
	for _, c := range ctas {
		if strings.TrimSpace(c.URL) == "" {
			continue
		}
		p.ctas = append(p.ctas, c)
	}
	return p
}

// Load reads CTAs from cfg: the inline JSON wins over the file. YAML and
// JSON files are both accepted. No source configured yields an empty
// provider.
func Load(cfg types.CTAConfig) (*Provider, error) {
	var ctas []CTA
	switch {
	case strings.TrimSpace(cfg.JSON) != "":
		if err := json.Unmarshal([]byte(cfg.JSON), &ctas); err != nil {
			return nil, fmt.Errorf("parsing inline CTAs: %w", err)
		}
	case cfg.File != "":
		data, err := os.ReadFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("reading CTA file: %w", err)
		}
		if err := yaml.Unmarshal(data, &ctas); err != nil {
			return nil, fmt.Errorf("parsing CTA file %s: %w", cfg.File, err)
		}
	}
	return New(ctas), nil
}

// Len returns the number of usable CTAs.
func (p *Provider) Len() int { return len(p.ctas) }

// PickPair returns up to two distinct CTAs, rotating the starting point by
// calendar day so consecutive articles advertise different things.
func (p *Provider) PickPair() []CTA {
	n := len(p.ctas)
	if n == 0 {
		return nil
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	start := dayIndex(now()) % n
	k := min(PerArticle, n)
	out := make([]CTA, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, p.ctas[(start+i)%n])
	}
	return out
}

func dayIndex(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// Render returns the HTML block for c with every field escaped.
func Render(c CTA) (string, error) {
	var buf bytes.Buffer
	if err := blockTmpl.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("rendering CTA %s: %w", c.ID, err)
	}
	return buf.String(), nil
}

// Insert appends the day's blocks to html and returns how many were added.
func (p *Provider) Insert(html string) (string, int) {
	var blocks []string
	for _, c := range p.PickPair() {
		b, err := Render(c)
		if err != nil {
			continue
		}
		blocks = append(blocks, b)
	}
	if len(blocks) == 0 {
		return html, 0
	}
	return html + "\n\n" + strings.Join(blocks, "\n"), len(blocks)
}
