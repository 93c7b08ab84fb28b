package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/credit-assessor/internal/domain"
)

type recordingStep struct {
	name  string
	order *[]string
	err   error
}

func (s *recordingStep) Execute(ctx context.Context, state *PipelineState) error {
	*s.order = append(*s.order, s.name)
	return s.err
}

func TestPipeline_StopsAtFirstError(t *testing.T) {
	var order []string
	boom := errors.New("boom")
	p := NewPipeline(
		&recordingStep{name: "a", order: &order},
		&recordingStep{name: "b", order: &order, err: boom},
		&recordingStep{name: "c", order: &order},
	)

	err := p.Execute(context.Background(), &PipelineState{})
	if !errors.Is(err, boom) {
		t.Fatalf("Execute() error = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), "pipeline step 2 failed") {
		t.Errorf("error = %q, want step number", err)
	}
	if strings.Join(order, ",") != "a,b" {
		t.Errorf("order = %v, want [a b]", order)
	}
}

type mockArchiver struct {
	ArchiveFunc func(ctx context.Context, applicationID, category, fileName string, data []byte) (string, error)
}

func (m *mockArchiver) Archive(ctx context.Context, applicationID, category, fileName string, data []byte) (string, error) {
	return m.ArchiveFunc(ctx, applicationID, category, fileName, data)
}

func TestArchiveStep(t *testing.T) {
	state := &PipelineState{ApplicationID: "a1", Category: domain.CategoryBankStatements, FileName: "march.csv", Content: []byte("x")}

	if err := (&ArchiveStep{}).Execute(context.Background(), state); err != nil || state.SourceURI != "" {
		t.Errorf("nil archiver: err = %v, uri = %q", err, state.SourceURI)
	}

	var gotCategory string
	files := &mockArchiver{ArchiveFunc: func(ctx context.Context, applicationID, category, fileName string, data []byte) (string, error) {
		gotCategory = category
		return "gs://bucket/applications/a1/bank-statements/march.csv", nil
	}}
	if err := (&ArchiveStep{Files: files}).Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if gotCategory != "bank-statements" || !strings.HasPrefix(state.SourceURI, "gs://") {
		t.Errorf("category = %q, uri = %q", gotCategory, state.SourceURI)
	}
}

func TestBusinessIdentityFromForm(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    domain.BusinessIdentity
		wantErr error
	}{
		{
			name: "full form",
			body: `{"company_name":" Minh Phat Trading ","tax_code":"0312345678","industry":"retail","established_date":"2015-06-01"}`,
			want: domain.BusinessIdentity{CompanyName: "Minh Phat Trading", TaxCode: "0312345678", Industry: "retail", EstablishedDate: "2015-06-01"},
		},
		{
			name: "numeric tax code",
			body: `{"company_name":"A","tax_code":312345678}`,
			want: domain.BusinessIdentity{CompanyName: "A", TaxCode: "312345678"},
		},
		{
			name: "missing fields are left empty",
			body: `{}`,
			want: domain.BusinessIdentity{},
		},
		{name: "not json", body: `company=A`, wantErr: domain.ErrMalformedInput},
		{name: "array body", body: `[1,2]`, wantErr: domain.ErrMalformedInput},
		{name: "wrong type", body: `{"company_name":["A"]}`, wantErr: domain.ErrMalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BusinessIdentityFromForm([]byte(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("got %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestOwnershipFromForm(t *testing.T) {
	got, err := OwnershipFromForm([]byte(`{"owners":[{"name":"Tran Van A","role":"director","share_percent":60},{"name":"Le Thi B","share_percent":40,"national_id":"079123456789"}]}`))
	if err != nil {
		t.Fatalf("OwnershipFromForm() error = %v", err)
	}
	if len(got.Owners) != 2 || got.Owners[0].SharePercent != 60 || got.Owners[1].NationalID != "079123456789" {
		t.Errorf("Owners = %+v", got.Owners)
	}

	empty, err := OwnershipFromForm([]byte(`{}`))
	if err != nil || empty.Owners == nil || len(empty.Owners) != 0 {
		t.Errorf("empty form = %+v, %v", empty, err)
	}

	for _, body := range []string{`{"owners":"x"}`, `{"owners":[1]}`, `{"owners":[{"share_percent":"60"}]}`} {
		if _, err := OwnershipFromForm([]byte(body)); !errors.Is(err, domain.ErrMalformedInput) {
			t.Errorf("OwnershipFromForm(%s) error = %v, want ErrMalformedInput", body, err)
		}
	}
}

func TestValidateBusinessIdentity(t *testing.T) {
	tests := []struct {
		name         string
		in           *domain.BusinessIdentity
		wantValid    bool
		wantWarnings int
	}{
		{"nil", nil, false, 0},
		{"complete", &domain.BusinessIdentity{CompanyName: "A", TaxCode: "0312345678"}, true, 0},
		{"branch tax code", &domain.BusinessIdentity{CompanyName: "A", TaxCode: "0312345678-001"}, true, 0},
		{"odd tax code", &domain.BusinessIdentity{CompanyName: "A", TaxCode: "12AB"}, true, 1},
		{"bad date", &domain.BusinessIdentity{CompanyName: "A", TaxCode: "0312345678", EstablishedDate: "last spring"}, true, 1},
		{"missing name", &domain.BusinessIdentity{TaxCode: "0312345678"}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateBusinessIdentity(tt.in)
			if res.Valid != tt.wantValid || len(res.Warnings) != tt.wantWarnings {
				t.Errorf("result = %+v, want valid=%v warnings=%d", res, tt.wantValid, tt.wantWarnings)
			}
		})
	}
}

func TestValidateOwnership(t *testing.T) {
	owners := func(shares ...float64) *domain.Ownership {
		own := &domain.Ownership{}
		for _, s := range shares {
			own.Owners = append(own.Owners, domain.Owner{Name: "X", SharePercent: s})
		}
		return own
	}
	tests := []struct {
		name         string
		in           *domain.Ownership
		wantValid    bool
		wantWarnings int
	}{
		{"no owners", &domain.Ownership{}, false, 0},
		{"full", owners(60, 40), true, 0},
		{"rounded thirds", owners(33.33, 33.33, 33.34), true, 0},
		{"partial", owners(50), true, 1},
		{"over 100", owners(70, 40), false, 0},
		{"negative share", owners(-10, 110), false, 0},
		{"unnamed owner", &domain.Ownership{Owners: []domain.Owner{{SharePercent: 100}}}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateOwnership(tt.in)
			if res.Valid != tt.wantValid || len(res.Warnings) != tt.wantWarnings {
				t.Errorf("result = %+v, want valid=%v warnings=%d", res, tt.wantValid, tt.wantWarnings)
			}
		})
	}
}

func TestParseStep_UnknownCategory(t *testing.T) {
	err := (&ParseStep{}).Execute(context.Background(), &PipelineState{Category: "tax-returns"})
	if !errors.Is(err, domain.ErrMalformedInput) {
		t.Errorf("Execute() error = %v, want ErrMalformedInput", err)
	}
}
