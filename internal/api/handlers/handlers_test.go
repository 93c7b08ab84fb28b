package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-assessor/internal/analysis"
	"github.com/dvloznov/credit-assessor/internal/api/middleware"
	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/jobs"
	jobsmem "github.com/dvloznov/credit-assessor/internal/jobs/inmemory"
	"github.com/dvloznov/credit-assessor/internal/store/inmemory"
)

type mockGateway struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
}

func (m *mockGateway) Generate(ctx context.Context, prompt string) (string, error) {
	return m.GenerateFunc(ctx, prompt)
}

type mockPublisher struct {
	PublishReportFunc func(ctx context.Context, job *jobs.ReportJob) error
}

func (m *mockPublisher) PublishReport(ctx context.Context, job *jobs.ReportJob) error {
	return m.PublishReportFunc(ctx, job)
}

func (m *mockPublisher) Close() error { return nil }

const analysisReply = `{"overall_score":68,"score_breakdown":{"liquidity":70},"key_factors":{"positive":["steady deposits"],"negative":["thin equity"]},"recommendations":["add collateral"],"approval_probability":65}`

type testServer struct {
	handler   http.Handler
	repo      *inmemory.Store
	jobStore  *jobsmem.Store
	gateway   *mockGateway
	published []*jobs.ReportJob
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		repo:     inmemory.NewStore(),
		jobStore: jobsmem.NewStore(),
		gateway: &mockGateway{GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			return analysisReply, nil
		}},
	}
	pub := &mockPublisher{PublishReportFunc: func(ctx context.Context, job *jobs.ReportJob) error {
		job.JobID = "job-1"
		job.Status = jobs.JobStatusPending
		ts.published = append(ts.published, job)
		return ts.jobStore.SaveJob(ctx, job)
	}}

	log := zerolog.Nop()
	router := NewRouter(Handlers{
		Applications: NewApplicationsHandler(ts.repo, log),
		Documents:    NewDocumentsHandler(ts.repo, nil, log),
		Analysis:     NewAnalysisHandler(ts.repo, analysis.NewAnalyzer(ts.gateway, 0), "test-model", pub, log),
		Jobs:         NewJobsHandler(ts.jobStore, log),
		Products:     NewProductsHandler(ts.repo, log),
	})
	ts.handler = middleware.Auth(router)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, user string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if user != "" {
		req.Header.Set(middleware.UserIDHeader, user)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createApplication(t *testing.T, user string) *domain.LoanApplication {
	t.Helper()
	body := `{"applicant_type":"sme","company_name":"Minh Phat","loanAmount":500000000,"loanPurpose":"working-capital","annualRevenue":"1b-5b","timeInBusiness":"3-plus-years"}`
	rec := ts.do(t, http.MethodPost, "/api/applications", user, strings.NewReader(body), "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body)
	}
	var app domain.LoanApplication
	if err := json.NewDecoder(rec.Body).Decode(&app); err != nil {
		t.Fatal(err)
	}
	return &app
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if len(body) != 1 {
		t.Errorf("error body has extra fields: %v", body)
	}
	msg, _ := body["error"].(string)
	return msg
}

func TestHealthAndAuth(t *testing.T) {
	ts := newTestServer(t)
	if rec := ts.do(t, http.MethodGet, "/health", "", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/products", "", nil, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("/api/products without user = %d, want 401", rec.Code)
	}
	rec := ts.do(t, http.MethodGet, "/api/products", "u1", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "sme-working-capital") {
		t.Errorf("/api/products = %d %s", rec.Code, rec.Body)
	}
	if rec := ts.do(t, http.MethodDelete, "/api/products", "u1", nil, ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /api/products = %d, want 405", rec.Code)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid", `{"loanAmount":500000000,"loanPurpose":"inventory","annualRevenue":"1b-5b","timeInBusiness":"1-3-years"}`, http.StatusOK},
		{"missing purpose", `{"loanAmount":500000000,"annualRevenue":"1b-5b","timeInBusiness":"1-3-years"}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"loanAmount":0,"loanPurpose":"inventory","annualRevenue":"1b-5b","timeInBusiness":"1-3-years"}`, http.StatusBadRequest},
		{"not json", `loanAmount=1`, http.StatusBadRequest},
	}
	ts := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/score", "u1", strings.NewReader(tt.body), "application/json")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var res domain.ScoreResult
			if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
				t.Fatal(err)
			}
			if res.Score < 40 || res.Score > 95 || res.Reasoning == "" {
				t.Errorf("result = %+v", res)
			}
		})
	}
}

func TestApplications_Ownership(t *testing.T) {
	ts := newTestServer(t)
	app := ts.createApplication(t, "u1")

	if app.UserID != "u1" || app.Status != domain.StatusSubmitted || app.Score.Score == 0 {
		t.Errorf("created = %+v", app)
	}

	if rec := ts.do(t, http.MethodGet, "/api/applications/"+app.ID, "u1", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("owner GET = %d", rec.Code)
	}

	rec := ts.do(t, http.MethodGet, "/api/applications/"+app.ID, "u2", nil, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("other user GET = %d, want 403", rec.Code)
	}
	if msg := decodeError(t, rec); strings.Contains(msg, app.ID) {
		t.Errorf("403 body leaks record details: %q", msg)
	}

	for _, path := range []string{"/documents", "/metrics", "/reports"} {
		if rec := ts.do(t, http.MethodGet, "/api/applications/"+app.ID+path, "u2", nil, ""); rec.Code != http.StatusForbidden {
			t.Errorf("other user GET %s = %d, want 403", path, rec.Code)
		}
	}

	if rec := ts.do(t, http.MethodGet, "/api/applications/missing", "u1", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing GET = %d, want 404", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/applications", "u2", nil, "")
	if !strings.Contains(rec.Body.String(), `"count":0`) {
		t.Errorf("u2 list = %s", rec.Body)
	}
}

func TestApplications_CreateValidation(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad applicant type", `{"applicant_type":"bank","loanAmount":1,"loanPurpose":"inventory","annualRevenue":"1b-5b","timeInBusiness":"1-3-years"}`, http.StatusBadRequest},
		{"bad cic group", `{"applicant_type":"individual","cic_group":9,"loanAmount":1,"loanPurpose":"inventory","annualRevenue":"1b-5b","timeInBusiness":"1-3-years"}`, http.StatusBadRequest},
		{"missing form fields", `{"applicant_type":"sme","loanAmount":1}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/applications", "u1", strings.NewReader(tt.body), "application/json")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

const statementCSV = "Transaction date,Remitter,Remitter bank,Details,Transaction No.,Debit,Credit,Fee/Interest,Tax,Balance\n" +
	`01/03/2024,,,Opening balance,,,,,,"820,000,000"
02/03/2024,ACME Corp,VCB,Incoming transfer,TX1,,"466,793,617",,,"1,286,793,617"
31/03/2024,,,Closing balance,,,,,,"1,286,793,617"
`

func multipartBody(t *testing.T, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(fw, content)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestDocuments_UploadAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	app := ts.createApplication(t, "u1")
	base := "/api/applications/" + app.ID

	body, ct := multipartBody(t, "march.csv", statementCSV)
	rec := ts.do(t, http.MethodPost, base+"/documents/bank-statements", "u1", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp struct {
		Validation domain.ValidationResult `json:"validation"`
		Metrics    domain.FinancialMetrics `json:"metrics"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Validation.Valid || resp.Metrics.OpeningBalance != "820000000" {
		t.Errorf("upload response = %+v", resp)
	}

	rec = ts.do(t, http.MethodPost, base+"/documents/ownership", "u1", strings.NewReader(`{"owners":[{"name":"Tran Van A","share_percent":100}]}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("ownership upload = %d %s", rec.Code, rec.Body)
	}

	rec = ts.do(t, http.MethodGet, base+"/documents", "u1", nil, "")
	if !strings.Contains(rec.Body.String(), `"count":2`) {
		t.Errorf("documents = %s", rec.Body)
	}

	rec = ts.do(t, http.MethodGet, base+"/metrics", "u1", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"closing_balance":"1286793617"`) {
		t.Errorf("metrics = %d %s", rec.Code, rec.Body)
	}
}

func TestDocuments_UploadErrors(t *testing.T) {
	ts := newTestServer(t)
	app := ts.createApplication(t, "u1")
	base := "/api/applications/" + app.ID

	rec := ts.do(t, http.MethodPost, base+"/documents/tax-returns", "u1", strings.NewReader("{}"), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown category = %d, want 400", rec.Code)
	}

	body, ct := multipartBody(t, "march.csv", "just,some,columns\n1,2,3\n")
	if rec := ts.do(t, http.MethodPost, base+"/documents/bank-statements", "u1", body, ct); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed statement = %d, want 400", rec.Code)
	}

	if rec := ts.do(t, http.MethodPost, base+"/documents/bank-statements", "u1", strings.NewReader("x"), "text/plain"); rec.Code != http.StatusBadRequest {
		t.Errorf("non-multipart = %d, want 400", rec.Code)
	}

	body, ct = multipartBody(t, "march.csv", statementCSV)
	if rec := ts.do(t, http.MethodPost, base+"/documents/bank-statements", "u2", body, ct); rec.Code != http.StatusForbidden {
		t.Errorf("other user upload = %d, want 403", rec.Code)
	}
	if docs, _ := ts.repo.ListDocuments(context.Background(), app.ID); len(docs) != 0 {
		t.Errorf("documents saved after failed uploads: %d", len(docs))
	}

	if rec := ts.do(t, http.MethodGet, base+"/metrics", "u1", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("metrics before upload = %d, want 404", rec.Code)
	}
}

func TestAnalysis(t *testing.T) {
	ts := newTestServer(t)
	app := ts.createApplication(t, "u1")

	rec := ts.do(t, http.MethodPost, "/api/applications/"+app.ID+"/analysis", "u1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("analysis = %d %s", rec.Code, rec.Body)
	}
	var report domain.AnalysisReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Result == nil || report.Result.ApprovalProbability != 0.65 || report.Model != "test-model" {
		t.Errorf("report = %+v", report)
	}

	stored, err := ts.repo.GetApplication(context.Background(), app.ID)
	if err != nil || stored.Status != domain.StatusAnalyzed {
		t.Errorf("status = %v, %v", stored, err)
	}

	ts.gateway.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		return "I cannot help with that.", nil
	}
	rec = ts.do(t, http.MethodPost, "/api/applications/"+app.ID+"/analysis", "u1", nil, "")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("unparsable reply = %d, want 502", rec.Code)
	}
}

func TestReportsAndJobs(t *testing.T) {
	ts := newTestServer(t)
	app := ts.createApplication(t, "u1")

	rec := ts.do(t, http.MethodPost, "/api/applications/"+app.ID+"/reports", "u1", nil, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("enqueue = %d %s", rec.Code, rec.Body)
	}
	var accepted map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&accepted); err != nil {
		t.Fatal(err)
	}
	if accepted["job_id"] != "job-1" || accepted["report_id"] == "" {
		t.Errorf("accepted = %v", accepted)
	}
	if len(ts.published) != 1 || ts.published[0].Kind != domain.ReportMarkdown || ts.published[0].UserID != "u1" {
		t.Errorf("published = %+v", ts.published)
	}

	rec = ts.do(t, http.MethodPost, "/api/applications/"+app.ID+"/reports", "u1", strings.NewReader(`{"kind":"pdf"}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad kind = %d, want 400", rec.Code)
	}

	if rec := ts.do(t, http.MethodGet, "/api/jobs/job-1", "u1", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("owner job = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/jobs/job-1", "u2", nil, ""); rec.Code != http.StatusForbidden {
		t.Errorf("other user job = %d, want 403", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/jobs", "u2", nil, ""); !strings.Contains(rec.Body.String(), `"count":0`) {
		t.Errorf("u2 jobs = %s", rec.Body)
	}

	// Simulate the worker having finished the job.
	err := ts.repo.SaveReport(context.Background(), &domain.AnalysisReport{
		ID:            accepted["report_id"],
		ApplicationID: app.ID,
		Kind:          domain.ReportMarkdown,
		Markdown:      "## Executive Summary\n\n| Metric | Value |\n|---|---|\n| Score | 74 |\n",
		CreatedAt:     time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	rec = ts.do(t, http.MethodGet, "/api/reports/"+accepted["report_id"]+"/html", "u1", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<h2>Executive Summary</h2>") || !strings.Contains(rec.Body.String(), "<table>") {
		t.Errorf("html = %d %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec := ts.do(t, http.MethodGet, "/api/reports/"+accepted["report_id"], "u2", nil, ""); rec.Code != http.StatusForbidden {
		t.Errorf("other user report = %d, want 403", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/reports/nope", "u1", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing report = %d, want 404", rec.Code)
	}
}

func TestEnqueueReport_StartedQueue(t *testing.T) {
	repo := inmemory.NewStore()
	jobStore := jobsmem.NewStore()
	queue := jobsmem.NewQueue(10, 2, jobStore)
	if err := queue.Start(context.Background(), func(ctx context.Context, job *jobs.ReportJob) error {
		time.Sleep(time.Millisecond)
		return nil
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = queue.Stop(context.Background()) })

	log := zerolog.Nop()
	gateway := &mockGateway{GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
		return analysisReply, nil
	}}
	ts := &testServer{
		repo:     repo,
		jobStore: jobStore,
		handler: middleware.Auth(NewRouter(Handlers{
			Applications: NewApplicationsHandler(repo, log),
			Documents:    NewDocumentsHandler(repo, nil, log),
			Analysis:     NewAnalysisHandler(repo, analysis.NewAnalyzer(gateway, 0), "test-model", queue, log),
			Jobs:         NewJobsHandler(jobStore, log),
			Products:     NewProductsHandler(repo, log),
		})),
	}
	app := ts.createApplication(t, "u1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := ts.do(t, http.MethodPost, "/api/applications/"+app.ID+"/reports", "u1", nil, "")
			if rec.Code != http.StatusAccepted {
				t.Errorf("enqueue = %d %s", rec.Code, rec.Body)
				return
			}
			var accepted map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&accepted); err != nil {
				t.Errorf("decode: %v", err)
				return
			}
			if accepted["status"] != string(jobs.JobStatusPending) || accepted["job_id"] == "" {
				t.Errorf("accepted = %v", accepted)
			}
		}()
	}
	wg.Wait()
}

func TestListJobs_PaginatesOwnJobsOnly(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, owner := range []string{"bob", "bob", "alice"} {
		err := ts.jobStore.SaveJob(ctx, &jobs.ReportJob{
			JobID:     fmt.Sprintf("j%d", i),
			UserID:    owner,
			Status:    jobs.JobStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"?limit=2", []string{"j1", "j0"}},
		{"?limit=1&offset=1", []string{"j0"}},
		{"?offset=2", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, "/api/jobs"+tt.query, "bob", nil, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d %s", rec.Code, rec.Body)
			}
			var body struct {
				Jobs  []jobs.ReportJob `json:"jobs"`
				Count int              `json:"count"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Count != len(tt.want) || len(body.Jobs) != len(tt.want) {
				t.Fatalf("jobs = %+v, want %v", body.Jobs, tt.want)
			}
			for i, id := range tt.want {
				if body.Jobs[i].JobID != id {
					t.Errorf("jobs[%d] = %s, want %s", i, body.Jobs[i].JobID, id)
				}
			}
		})
	}
}

func TestDocuments_UploadLogsApplicationOnce(t *testing.T) {
	ts := newTestServer(t)
	app := ts.createApplication(t, "u1")

	buf := &bytes.Buffer{}
	ts.handler = middleware.Logger(zerolog.New(buf))(ts.handler)

	body, ct := multipartBody(t, "march.csv", statementCSV)
	rec := ts.do(t, http.MethodPost, "/api/applications/"+app.ID+"/documents/bank-statements", "u1", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body)
	}

	var ingested string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, "document ingested") {
			ingested = line
		}
	}
	if ingested == "" {
		t.Fatalf("no ingestion log line in %s", buf)
	}
	if n := strings.Count(ingested, `"application_id"`); n != 1 {
		t.Errorf("application_id appears %d times: %s", n, ingested)
	}
	if n := strings.Count(ingested, `"category"`); n != 1 {
		t.Errorf("category appears %d times: %s", n, ingested)
	}
}
