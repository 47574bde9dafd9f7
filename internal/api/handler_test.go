package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/R-Akshay-Kumar/coding-tracker/internal/checker"
	errs "github.com/R-Akshay-Kumar/coding-tracker/internal/errors"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/platform"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/report"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/roster"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/worker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubJobs implements Jobs for handler tests. Submitted work is kept, not run.
type stubJobs struct {
	submitFn func(kind worker.Kind, work worker.Work) (uuid.UUID, error)
	statusFn func(id uuid.UUID) (worker.Job, error)
	kinds    []worker.Kind
	works    []worker.Work
}

func (s *stubJobs) Submit(kind worker.Kind, work worker.Work) (uuid.UUID, error) {
	s.kinds = append(s.kinds, kind)
	s.works = append(s.works, work)
	if s.submitFn != nil {
		return s.submitFn(kind, work)
	}
	return uuid.New(), nil
}

func (s *stubJobs) Status(id uuid.UUID) (worker.Job, error) {
	if s.statusFn != nil {
		return s.statusFn(id)
	}
	return worker.Job{}, errs.ErrJobNotFound
}

// stubReports implements Reports for handler tests.
type stubReports struct {
	checkFn   func(ctx context.Context, r *roster.Roster, problems report.ProblemSet) (string, error)
	refreshFn func(ctx context.Context, id string) error
	loadFn    func(ctx context.Context, id string) (*report.Report, error)
}

func (s *stubReports) Check(ctx context.Context, r *roster.Roster, problems report.ProblemSet, _ checker.ProgressFunc) (string, error) {
	if s.checkFn != nil {
		return s.checkFn(ctx, r, problems)
	}
	return "report-1", nil
}

func (s *stubReports) Refresh(ctx context.Context, id string, _ checker.ProgressFunc) error {
	if s.refreshFn != nil {
		return s.refreshFn(ctx, id)
	}
	return nil
}

func (s *stubReports) Load(ctx context.Context, id string) (*report.Report, error) {
	if s.loadFn != nil {
		return s.loadFn(ctx, id)
	}
	return nil, errs.ErrReportNotFound
}

var (
	_ Jobs    = (*stubJobs)(nil)
	_ Reports = (*stubReports)(nil)
)

func ginCtx(method, path string, body *bytes.Buffer, contentType string, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.Request = req
	c.Params = params
	return c, w
}

func multipartBody(t *testing.T, filename, content string, fields map[string][]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	for name, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(name, v))
		}
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func sampleReport() *report.Report {
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &report.Report{
		ID:           "r1",
		InputColumns: []string{"Name", "CODEFORCES"},
		CreatedAt:    created,
		Records: []report.Record{
			{Fields: []report.Field{{Name: "Name", Value: "A"}, {Name: "CODEFORCES", Value: "alice"}, {Name: "CF: 4A", Value: "Solved"}}, Score: 1},
			{Fields: []report.Field{{Name: "Name", Value: "B"}, {Name: "CODEFORCES", Value: "bob"}, {Name: "CF: 4A", Value: "Not Solved"}}, Score: 0},
		},
	}
}

func loadSample(_ context.Context, id string) (*report.Report, error) {
	if id != "r1" {
		return nil, errs.ErrReportNotFound
	}
	return sampleReport(), nil
}

// --- StartCheck ---

func TestStartCheck_QueuesJobAndReturns202(t *testing.T) {
	jobID := uuid.New()
	jobs := &stubJobs{submitFn: func(worker.Kind, worker.Work) (uuid.UUID, error) { return jobID, nil }}
	var gotRoster *roster.Roster
	var gotProblems report.ProblemSet
	reports := &stubReports{checkFn: func(_ context.Context, r *roster.Roster, ps report.ProblemSet) (string, error) {
		gotRoster, gotProblems = r, ps
		return "r1", nil
	}}
	h := NewHandler(jobs, reports)

	body, ct := multipartBody(t, "class.csv", "Name,Codeforces\nA,alice\n", map[string][]string{
		"cf_problems": {"4A", " 1B"},
		"lc_problems": {"two-sum,add-two-numbers"},
		"cc_problems": {""},
	})
	c, w := ginCtx(http.MethodPost, "/start-check", body, ct, nil)
	h.StartCheck(c)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, jobID.String(), resp["job_id"])
	assert.Equal(t, "queued", resp["status"])
	require.Equal(t, []worker.Kind{worker.KindCheck}, jobs.kinds)

	// Running the queued work reaches the report service with the parsed inputs.
	o := worker.New(1, 0)
	id, err := o.Submit(worker.KindCheck, jobs.works[0])
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		job, _ := o.Status(id)
		return job.Status == worker.StatusCompleted
	}, time.Second, 5*time.Millisecond)

	require.NotNil(t, gotRoster)
	assert.Equal(t, []string{"Name", "Codeforces"}, gotRoster.Columns)
	assert.Equal(t, []string{"4A", "1B"}, gotProblems[platform.Codeforces])
	assert.Equal(t, []string{"two-sum", "add-two-numbers"}, gotProblems[platform.LeetCode])
	assert.Empty(t, gotProblems[platform.CodeChef])
}

func TestStartCheck_MissingFile_Returns400(t *testing.T) {
	h := NewHandler(&stubJobs{}, &stubReports{})
	body, ct := multipartBody(t, "", "", map[string][]string{"cf_problems": {"4A"}})
	c, w := ginCtx(http.MethodPost, "/start-check", body, ct, nil)
	h.StartCheck(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartCheck_UnsupportedFormat_Returns400(t *testing.T) {
	jobs := &stubJobs{}
	h := NewHandler(jobs, &stubReports{})
	body, ct := multipartBody(t, "roster.txt", "Name\nA\n", nil)
	c, w := ginCtx(http.MethodPost, "/start-check", body, ct, nil)
	h.StartCheck(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, jobs.kinds)
}

func TestStartCheck_ShuttingDown_Returns503(t *testing.T) {
	jobs := &stubJobs{submitFn: func(worker.Kind, worker.Work) (uuid.UUID, error) {
		return uuid.Nil, errs.ErrOrchestratorClosed
	}}
	h := NewHandler(jobs, &stubReports{})
	body, ct := multipartBody(t, "r.csv", "Name\nA\n", nil)
	c, w := ginCtx(http.MethodPost, "/start-check", body, ct, nil)
	h.StartCheck(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// --- Progress ---

func TestProgress_Found_Returns200(t *testing.T) {
	jobID := uuid.New()
	jobs := &stubJobs{statusFn: func(id uuid.UUID) (worker.Job, error) {
		assert.Equal(t, jobID, id)
		return worker.Job{ID: id, Kind: worker.KindCheck, Status: worker.StatusCompleted, Current: 2, Total: 2, ReportID: "r1"}, nil
	}}
	h := NewHandler(jobs, &stubReports{})

	c, w := ginCtx(http.MethodGet, "/progress/"+jobID.String(), nil, "", gin.Params{{Key: "job_id", Value: jobID.String()}})
	h.Progress(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp["status"])
	assert.Equal(t, float64(2), resp["current"])
	assert.Equal(t, float64(2), resp["total"])
	assert.Equal(t, "r1", resp["report_id"])
	_, hasError := resp["error"]
	assert.False(t, hasError)
}

func TestProgress_Failed_IncludesError(t *testing.T) {
	jobs := &stubJobs{statusFn: func(id uuid.UUID) (worker.Job, error) {
		return worker.Job{ID: id, Status: worker.StatusFailed, Error: "boom"}, nil
	}}
	h := NewHandler(jobs, &stubReports{})
	id := uuid.New().String()
	c, w := ginCtx(http.MethodGet, "/progress/"+id, nil, "", gin.Params{{Key: "job_id", Value: id}})
	h.Progress(c)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp["status"])
	assert.Equal(t, "boom", resp["error"])
}

func TestProgress_NotFound_Returns404(t *testing.T) {
	h := NewHandler(&stubJobs{}, &stubReports{})
	id := uuid.New().String()
	c, w := ginCtx(http.MethodGet, "/progress/"+id, nil, "", gin.Params{{Key: "job_id", Value: id}})
	h.Progress(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProgress_InvalidUUID_Returns400(t *testing.T) {
	h := NewHandler(&stubJobs{}, &stubReports{})
	c, w := ginCtx(http.MethodGet, "/progress/nope", nil, "", gin.Params{{Key: "job_id", Value: "nope"}})
	h.Progress(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Download ---

func TestDownload_NotCompleted_Returns409(t *testing.T) {
	jobs := &stubJobs{statusFn: func(id uuid.UUID) (worker.Job, error) {
		return worker.Job{ID: id, Status: worker.StatusProcessing}, nil
	}}
	h := NewHandler(jobs, &stubReports{})
	id := uuid.New().String()
	c, w := ginCtx(http.MethodGet, "/download/"+id, nil, "", gin.Params{{Key: "job_id", Value: id}})
	h.Download(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDownload_Completed_ReturnsWorkbook(t *testing.T) {
	jobs := &stubJobs{statusFn: func(id uuid.UUID) (worker.Job, error) {
		return worker.Job{ID: id, Status: worker.StatusCompleted, ReportID: "r1"}, nil
	}}
	h := NewHandler(jobs, &stubReports{loadFn: loadSample})
	id := uuid.New().String()
	c, w := ginCtx(http.MethodGet, "/download/"+id+"?drop_handles=true", nil, "", gin.Params{{Key: "job_id", Value: id}})
	h.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "report_r1.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Report")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Score", "CF: 4A"}, rows[0])
	assert.Equal(t, []string{"A", "1", "Solved"}, rows[1])
}

// --- Reports ---

func TestViewReport_Returns200(t *testing.T) {
	h := NewHandler(&stubJobs{}, &stubReports{loadFn: loadSample})
	c, w := ginCtx(http.MethodGet, "/view-report/r1", nil, "", gin.Params{{Key: "id", Value: "r1"}})
	h.ViewReport(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		ReportID      string           `json:"report_id"`
		Columns       []string         `json:"columns"`
		Data          []map[string]any `json:"data"`
		LastUpdated   *time.Time       `json:"last_updated"`
		TotalStudents int              `json:"total_students"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "r1", resp.ReportID)
	assert.Equal(t, []string{"Name", "CODEFORCES", "Score", "CF: 4A"}, resp.Columns)
	assert.Equal(t, 2, resp.TotalStudents)
	assert.Nil(t, resp.LastUpdated)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, float64(1), resp.Data[0]["Score"])
	assert.Equal(t, "Not Solved", resp.Data[1]["CF: 4A"])
}

func TestViewReport_NotFound_Returns404(t *testing.T) {
	h := NewHandler(&stubJobs{}, &stubReports{loadFn: loadSample})
	c, w := ginCtx(http.MethodGet, "/view-report/x", nil, "", gin.Params{{Key: "id", Value: "x"}})
	h.ViewReport(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestViewReport_StoreError_Returns500(t *testing.T) {
	h := NewHandler(&stubJobs{}, &stubReports{loadFn: func(context.Context, string) (*report.Report, error) {
		return nil, errors.New("connection refused")
	}})
	c, w := ginCtx(http.MethodGet, "/view-report/r1", nil, "", gin.Params{{Key: "id", Value: "r1"}})
	h.ViewReport(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDownloadReport_NotFound_Returns404(t *testing.T) {
	h := NewHandler(&stubJobs{}, &stubReports{loadFn: loadSample})
	c, w := ginCtx(http.MethodGet, "/download-report/x", nil, "", gin.Params{{Key: "id", Value: "x"}})
	h.DownloadReport(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefreshReport_QueuesRefreshJob(t *testing.T) {
	jobs := &stubJobs{}
	var refreshed string
	reports := &stubReports{
		loadFn:    loadSample,
		refreshFn: func(_ context.Context, id string) error { refreshed = id; return nil },
	}
	h := NewHandler(jobs, reports)

	c, w := ginCtx(http.MethodPost, "/refresh-report/r1", nil, "", gin.Params{{Key: "id", Value: "r1"}})
	h.RefreshReport(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, []worker.Kind{worker.KindRefresh}, jobs.kinds)

	reportID, err := jobs.works[0](context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "r1", reportID)
	assert.Equal(t, "r1", refreshed)
}

func TestRefreshReport_UnknownReport_Returns404(t *testing.T) {
	jobs := &stubJobs{}
	h := NewHandler(jobs, &stubReports{loadFn: loadSample})
	c, w := ginCtx(http.MethodPost, "/refresh-report/x", nil, "", gin.Params{{Key: "id", Value: "x"}})
	h.RefreshReport(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, jobs.kinds)
}

// --- Routes and middleware ---

func newRouter(apiKey string) *gin.Engine {
	r := gin.New()
	RegisterRoutes(r, NewHandler(&stubJobs{}, &stubReports{loadFn: loadSample}), apiKey)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter("secret")

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"health is open", "/health", "", http.StatusOK},
		{"missing key", "/view-report/r1", "", http.StatusUnauthorized},
		{"wrong key", "/view-report/r1", "Bearer nope", http.StatusUnauthorized},
		{"valid key", "/view-report/r1", "Bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAuthMiddleware_DisabledWithoutKey(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter("").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/view-report/r1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/start-check", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	newRouter("secret").ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
