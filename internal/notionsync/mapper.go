package notionsync

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/credit-assessor/internal/domain"
)

// Notion rejects rich text longer than this and requests with more blocks.
const (
	maxTextLength = 2000
	maxBlocks     = 100
)

// Property names of the reports database.
const (
	propTitle        = "Report"
	propReportID     = "Report ID"
	propApplication  = "Application ID"
	propKind         = "Kind"
	propBaseline     = "Baseline Score"
	propOverallScore = "Overall Score"
	propApproval     = "Approval Probability"
	propCreated      = "Created"
)

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: s,
			},
		},
	}
}

// ReportToNotionProperties converts a report and its application into the
// properties of a reports database page.
func ReportToNotionProperties(app *domain.LoanApplication, rep *domain.AnalysisReport) notionapi.Properties {
	title := app.CompanyName
	if title == "" {
		title = app.ID
	}

	props := notionapi.Properties{
		propTitle: notionapi.TitleProperty{
			Title: richText(fmt.Sprintf("%s (%s)", title, rep.Kind)),
		},
		propReportID: notionapi.RichTextProperty{
			RichText: richText(rep.ID),
		},
		propApplication: notionapi.RichTextProperty{
			RichText: richText(app.ID),
		},
		propKind: notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: rep.Kind,
			},
		},
		propBaseline: notionapi.NumberProperty{
			Number: float64(app.Score.Score),
		},
	}

	if rep.Result != nil {
		props[propOverallScore] = notionapi.NumberProperty{Number: rep.Result.OverallScore}
		props[propApproval] = notionapi.NumberProperty{Number: rep.Result.ApprovalProbability}
	}

	if !rep.CreatedAt.IsZero() {
		created := notionapi.Date(rep.CreatedAt)
		props[propCreated] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &created},
		}
	}

	return props
}

// ReportToBlocks renders the report body as Notion blocks: a heading per
// section for markdown reports, bullet lists for structured ones.
func ReportToBlocks(rep *domain.AnalysisReport) []notionapi.Block {
	var blocks []notionapi.Block

	for _, sec := range rep.Sections {
		if sec.Title != "" {
			blocks = append(blocks, heading(sec.Title))
		}
		for _, para := range strings.Split(sec.Body, "\n\n") {
			para = strings.TrimSpace(para)
			for _, chunk := range chunkText(para, maxTextLength) {
				blocks = append(blocks, paragraph(chunk))
			}
		}
	}

	if res := rep.Result; res != nil {
		blocks = append(blocks, heading("Key Factors"))
		for _, f := range res.KeyFactors.Positive {
			blocks = append(blocks, bullet("+ "+f))
		}
		for _, f := range res.KeyFactors.Negative {
			blocks = append(blocks, bullet("- "+f))
		}
		blocks = append(blocks, heading("Recommendations"))
		for _, r := range res.Recommendations {
			blocks = append(blocks, bullet(r))
		}
	}

	if len(blocks) > maxBlocks {
		blocks = append(blocks[:maxBlocks-1], paragraph("Report truncated; see the full report in the assessor."))
	}
	return blocks
}

func heading(s string) notionapi.Block {
	return &notionapi.Heading2Block{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeHeading2,
		},
		Heading2: notionapi.Heading{
			RichText: richText(s),
		},
	}
}

func paragraph(s string) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeParagraph,
		},
		Paragraph: notionapi.Paragraph{
			RichText: richText(s),
		},
	}
}

func bullet(s string) notionapi.Block {
	return &notionapi.BulletedListItemBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeBulletedListItem,
		},
		BulletedListItem: notionapi.ListItem{
			RichText: richText(s),
		},
	}
}

// chunkText splits s into pieces of at most n runes.
func chunkText(s string, n int) []string {
	if s == "" {
		return nil
	}
	var out []string
	for utf8.RuneCountInString(s) > n {
		cut := 0
		for i := 0; i < n; i++ {
			_, size := utf8.DecodeRuneInString(s[cut:])
			cut += size
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	return append(out, s)
}

// extractReportID extracts the report ID from a Notion page's properties.
// Returns empty string if not found.
func extractReportID(page notionapi.Page) string {
	if prop, ok := page.Properties[propReportID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}
