package analysis

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dvloznov/credit-assessor/internal/domain"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// CleanMarkdown removes an outer code fence the model sometimes wraps the
// report in.
func CleanMarkdown(input string) string {
	s := strings.TrimSpace(input)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(s, "```")
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	return strings.TrimSpace(s)
}

// SplitSections splits a report on "## " headings. Text before the first
// heading becomes an untitled section.
func SplitSections(md string) []domain.ReportSection {
	var (
		sections []domain.ReportSection
		current  *domain.ReportSection
		body     strings.Builder
	)

	flush := func() {
		text := strings.TrimSpace(body.String())
		body.Reset()
		if current == nil {
			if text != "" {
				sections = append(sections, domain.ReportSection{Body: text})
			}
			return
		}
		current.Body = text
		sections = append(sections, *current)
	}

	for _, line := range strings.Split(md, "\n") {
		if title, ok := strings.CutPrefix(strings.TrimRight(line, "\r"), "## "); ok {
			flush()
			current = &domain.ReportSection{Title: strings.TrimSpace(title)}
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return sections
}

// RenderReportHTML converts a markdown report to HTML with tables enabled.
func RenderReportHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("RenderReportHTML: %w", err)
	}
	return buf.String(), nil
}
