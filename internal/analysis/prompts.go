package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/credit-assessor/internal/domain"
)

// Input is everything a prompt is built from.
type Input struct {
	Application domain.LoanApplication
	Metrics     *domain.FinancialMetrics
	Products    []domain.LoanProduct
}

// BuildAnalysisPrompt asks the model for a structured JSON assessment.
func BuildAnalysisPrompt(in Input) (string, error) {
	data, err := promptData(in)
	if err != nil {
		return "", fmt.Errorf("BuildAnalysisPrompt: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a credit analyst assessing a loan application from a small or medium enterprise in Vietnam.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Assess the application, its financial metrics and the extracted documents below.\n")
	b.WriteString("- Consider which of the listed loan products fit the request.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n\n")
	b.WriteString("The JSON object must have these fields:\n")
	b.WriteString("- \"overall_score\": number from 0 to 100\n")
	b.WriteString("- \"score_breakdown\": object mapping factor name to a number from 0 to 100\n")
	b.WriteString("- \"key_factors\": object with \"positive\" and \"negative\" arrays of strings\n")
	b.WriteString("- \"recommendations\": array of strings\n")
	b.WriteString("- \"approval_probability\": number from 0 to 1\n\n")
	b.WriteString(data)
	b.WriteString("\nReturn ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"{\" and end with \"}\".\n")
	return b.String(), nil
}

// BuildReportPrompt asks the model for a markdown credit report.
func BuildReportPrompt(in Input) (string, error) {
	data, err := promptData(in)
	if err != nil {
		return "", fmt.Errorf("BuildReportPrompt: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a credit analyst writing a credit assessment report for a lender.\n\n")
	b.WriteString("Write the report in Markdown. Start every section with a \"## \" heading, in this order:\n")
	for _, s := range ReportSectionTitles {
		b.WriteString("- " + s + "\n")
	}
	b.WriteString("\nUse tables where figures are compared. Quote amounts in VND.\n\n")
	b.WriteString(data)
	b.WriteString("\nReturn only the Markdown report.\n")
	return b.String(), nil
}

// ReportSectionTitles are the sections requested from the model.
var ReportSectionTitles = []string{
	"Executive Summary",
	"Business Profile",
	"Financial Analysis",
	"Cash Flow Analysis",
	"Risk Assessment",
	"Recommended Products",
	"Conclusion",
}

func promptData(in Input) (string, error) {
	var b strings.Builder

	if err := writeJSONBlock(&b, "APPLICATION", in.Application); err != nil {
		return "", err
	}
	if in.Metrics != nil {
		if err := writeJSONBlock(&b, "FINANCIAL METRICS", withoutTransactions(*in.Metrics)); err != nil {
			return "", err
		}
	} else {
		b.WriteString("FINANCIAL METRICS:\nnot available, no documents were uploaded\n\n")
	}
	if err := writeJSONBlock(&b, "LOAN PRODUCTS", in.Products); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeJSONBlock(b *strings.Builder, title string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", strings.ToLower(title), err)
	}
	b.WriteString(title + ":\n")
	b.Write(raw)
	b.WriteString("\n\n")
	return nil
}

// withoutTransactions drops raw statement rows from the prompt. The summary
// and category analysis are kept.
func withoutTransactions(m domain.FinancialMetrics) domain.FinancialMetrics {
	out := m
	out.ExtractedData = make(map[domain.DocumentCategory]domain.DocumentPayload, len(m.ExtractedData))
	for cat, doc := range m.ExtractedData {
		if doc.BankStatement != nil {
			bs := *doc.BankStatement
			bs.Transactions = nil
			doc.BankStatement = &bs
		}
		out.ExtractedData[cat] = doc
	}
	return out
}
