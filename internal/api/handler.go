package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/R-Akshay-Kumar/coding-tracker/internal/checker"
	errs "github.com/R-Akshay-Kumar/coding-tracker/internal/errors"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/logger"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/platform"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/report"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/roster"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/worker"
)

const (
	maxUploadBytes  = 10 << 20
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Jobs is the part of the orchestrator the handlers use.
type Jobs interface {
	Submit(kind worker.Kind, work worker.Work) (uuid.UUID, error)
	Status(id uuid.UUID) (worker.Job, error)
}

// Reports runs checks and refreshes and reads stored reports.
type Reports interface {
	Check(ctx context.Context, r *roster.Roster, problems report.ProblemSet, progress checker.ProgressFunc) (string, error)
	Refresh(ctx context.Context, reportID string, progress checker.ProgressFunc) error
	Load(ctx context.Context, reportID string) (*report.Report, error)
}

type Handler struct {
	jobs    Jobs
	reports Reports
	log     *zap.SugaredLogger
}

func NewHandler(jobs Jobs, reports Reports) *Handler {
	return &Handler{jobs: jobs, reports: reports, log: logger.NewNamedLogger("api")}
}

var problemFields = map[platform.Platform]string{
	platform.Codeforces: "cf_problems",
	platform.LeetCode:   "lc_problems",
	platform.CodeChef:   "cc_problems",
}

// StartCheck accepts a roster upload and queues a verification job.
//
// Multipart form: "file" (.csv or .xlsx) plus repeated "cf_problems",
// "lc_problems" and "cc_problems" fields. Returns 202 {"job_id", "status"}.
func (h *Handler) StartCheck(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fh.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file is too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}

	r, err := roster.Parse(fh.Filename, data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requested := make(map[platform.Platform][]string, len(problemFields))
	for p, field := range problemFields {
		for _, v := range c.PostFormArray(field) {
			requested[p] = append(requested[p], strings.Split(v, ",")...)
		}
	}
	problems := report.NewProblemSet(requested)

	jobID, err := h.jobs.Submit(worker.KindCheck, func(ctx context.Context, p *worker.Progress) (string, error) {
		return h.reports.Check(ctx, r, problems, p.Update)
	})
	if err != nil {
		h.submitFailed(c, err)
		return
	}
	h.log.Infow("check queued", "job_id", jobID, "file", fh.Filename, "students", len(r.Rows), "problems", problems.Len())
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "status": worker.StatusQueued})
}

// Progress reports a job's status and counters.
func (h *Handler) Progress(c *gin.Context) {
	job, ok := h.lookupJob(c)
	if !ok {
		return
	}
	resp := gin.H{
		"job_id":  job.ID,
		"kind":    job.Kind,
		"status":  job.Status,
		"current": job.Current,
		"total":   job.Total,
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	if job.ReportID != "" {
		resp["report_id"] = job.ReportID
	}
	c.JSON(http.StatusOK, resp)
}

// Download returns the workbook produced by a completed job.
func (h *Handler) Download(c *gin.Context) {
	job, ok := h.lookupJob(c)
	if !ok {
		return
	}
	if job.Status != worker.StatusCompleted || job.ReportID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": errs.ErrJobNotCompleted.Error(), "status": job.Status})
		return
	}
	h.writeReport(c, job.ReportID)
}

// ViewReport returns a stored report as JSON rows in output column order.
func (h *Handler) ViewReport(c *gin.Context) {
	rep, ok := h.loadReport(c, c.Param("id"))
	if !ok {
		return
	}
	columns := report.ReportColumns(rep, dropHandles(c))
	data := make([]map[string]any, 0, len(rep.Records))
	for _, r := range rep.Records {
		data = append(data, report.RowValues(columns, r))
	}

	c.JSON(http.StatusOK, gin.H{
		"report_id":      rep.ID,
		"columns":        columns,
		"data":           data,
		"created_at":     rep.CreatedAt,
		"last_updated":   rep.UpdatedAt,
		"total_students": rep.TotalStudents(),
	})
}

// DownloadReport returns a stored report as a workbook.
func (h *Handler) DownloadReport(c *gin.Context) {
	h.writeReport(c, c.Param("id"))
}

// RefreshReport queues a re-verification of a stored report.
func (h *Handler) RefreshReport(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.loadReport(c, id); !ok {
		return
	}
	jobID, err := h.jobs.Submit(worker.KindRefresh, func(ctx context.Context, p *worker.Progress) (string, error) {
		if err := h.reports.Refresh(ctx, id, p.Update); err != nil {
			return "", err
		}
		return id, nil
	})
	if err != nil {
		h.submitFailed(c, err)
		return
	}
	h.log.Infow("refresh queued", "job_id", jobID, "report_id", id)
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "status": worker.StatusQueued})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) lookupJob(c *gin.Context) (worker.Job, bool) {
	id, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return worker.Job{}, false
	}
	job, err := h.jobs.Status(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return worker.Job{}, false
	}
	return job, true
}

func (h *Handler) loadReport(c *gin.Context, id string) (*report.Report, bool) {
	rep, err := h.reports.Load(c.Request.Context(), id)
	if errors.Is(err, errs.ErrReportNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return nil, false
	}
	if err != nil {
		h.log.Errorw("failed to load report", "report_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load report"})
		return nil, false
	}
	return rep, true
}

func (h *Handler) writeReport(c *gin.Context, id string) {
	rep, ok := h.loadReport(c, id)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, report.ReportColumns(rep, dropHandles(c)), rep.Records); err != nil {
		h.log.Errorw("failed to export report", "report_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export report"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="report_%s.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) submitFailed(c *gin.Context, err error) {
	if errors.Is(err, errs.ErrOrchestratorClosed) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue job"})
}

func dropHandles(c *gin.Context) bool {
	return c.Query("drop_handles") == "true"
}
