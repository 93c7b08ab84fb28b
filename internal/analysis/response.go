package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"

	"github.com/dvloznov/credit-assessor/internal/domain"
)

// ParseAnalysis decodes a model reply into an AnalysisResult. Strict JSON is
// tried first, then Hjson, then a repaired version. A reply that none of
// them can read is a domain.ErrExternalService.
func ParseAnalysis(raw string) (*domain.AnalysisResult, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return nil, fmt.Errorf("ParseAnalysis: empty response: %w", domain.ErrExternalService)
	}

	var reply analysisReply
	if err := decodeLenient(clean, &reply); err != nil {
		return nil, fmt.Errorf("ParseAnalysis: %w: %w", domain.ErrExternalService, err)
	}
	res, err := reply.result()
	if err != nil {
		return nil, fmt.Errorf("ParseAnalysis: %w: %w", domain.ErrExternalService, err)
	}
	return res, nil
}

// analysisReply mirrors domain.AnalysisResult with the required numbers as
// pointers so a missing field is told apart from zero.
type analysisReply struct {
	OverallScore        *float64           `json:"overall_score"`
	ScoreBreakdown      map[string]float64 `json:"score_breakdown"`
	KeyFactors          domain.KeyFactors  `json:"key_factors"`
	Recommendations     []string           `json:"recommendations"`
	ApprovalProbability *float64           `json:"approval_probability"`
}

func (r analysisReply) result() (*domain.AnalysisResult, error) {
	if r.OverallScore == nil {
		return nil, fmt.Errorf("missing overall_score")
	}
	if r.ApprovalProbability == nil {
		return nil, fmt.Errorf("missing approval_probability")
	}
	res := &domain.AnalysisResult{
		OverallScore:        *r.OverallScore,
		ScoreBreakdown:      r.ScoreBreakdown,
		KeyFactors:          r.KeyFactors,
		Recommendations:     r.Recommendations,
		ApprovalProbability: *r.ApprovalProbability,
	}
	if err := normalizeAnalysis(res); err != nil {
		return nil, err
	}
	return res, nil
}

func decodeLenient(s string, v interface{}) error {
	err := json.Unmarshal([]byte(s), v)
	if err == nil {
		return nil
	}

	var generic interface{}
	if herr := hjson.Unmarshal([]byte(s), &generic); herr == nil {
		if asJSON, merr := json.Marshal(generic); merr == nil {
			if json.Unmarshal(asJSON, v) == nil {
				return nil
			}
		}
	}

	if repaired, rerr := jsonrepair.RepairJSON(s); rerr == nil {
		if restored, ok := restoreNumbers(repaired); ok && json.Unmarshal(restored, v) == nil {
			return nil
		}
	}

	return fmt.Errorf("unmarshal JSON: %w", err)
}

// restoreNumbers rewrites every fractional number in repaired JSON to its
// shortest float32 form. json-repair widens numbers through float32, so 0.4
// comes back as 0.4000000059604645.
func restoreNumbers(repaired string) ([]byte, bool) {
	dec := json.NewDecoder(strings.NewReader(repaired))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, false
	}
	out, err := json.Marshal(shortenNumbers(generic))
	if err != nil {
		return nil, false
	}
	return out, true
}

func shortenNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, e := range t {
			t[k] = shortenNumbers(e)
		}
	case []interface{}:
		for i, e := range t {
			t[i] = shortenNumbers(e)
		}
	case json.Number:
		if !strings.ContainsAny(t.String(), ".eE") {
			return t
		}
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil || math.IsInf(f, 0) {
			return t
		}
		return json.Number(strconv.FormatFloat(f, 'g', -1, 32))
	}
	return v
}

// normalizeAnalysis checks ranges and fills empty collections. An
// approval_probability given as a percentage is scaled to [0,1].
func normalizeAnalysis(res *domain.AnalysisResult) error {
	if math.IsNaN(res.OverallScore) || res.OverallScore < 0 || res.OverallScore > 100 {
		return fmt.Errorf("overall_score %v out of range", res.OverallScore)
	}
	p := res.ApprovalProbability
	if p > 1 && p <= 100 {
		p /= 100
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("approval_probability %v out of range", res.ApprovalProbability)
	}
	res.ApprovalProbability = p

	if res.ScoreBreakdown == nil {
		res.ScoreBreakdown = map[string]float64{}
	}
	if res.KeyFactors.Positive == nil {
		res.KeyFactors.Positive = []string{}
	}
	if res.KeyFactors.Negative == nil {
		res.KeyFactors.Negative = []string{}
	}
	if res.Recommendations == nil {
		res.Recommendations = []string{}
	}
	return nil
}

// cleanModelJSON strips code fences and any text around the outermost JSON
// object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return strings.Trim(s, "`")
		}
		s = strings.TrimSpace(s[idx+1:])
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
