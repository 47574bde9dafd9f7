// testclient drives a running tracker server end to end: it uploads a roster,
// waits for the check to finish and saves the workbook. With -refresh it
// re-verifies an existing report instead.
//
// Usage:
//
//	go run ./cmd/testclient -file class.xlsx -cf 1790A,1791B -lc two-sum -out report.xlsx
//	go run ./cmd/testclient -refresh <report_id>
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/R-Akshay-Kumar/coding-tracker/internal/logger"
	tracker "github.com/R-Akshay-Kumar/coding-tracker/sdk"
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8000", "tracker server URL")
		apiKey   = flag.String("key", os.Getenv("API_KEY"), "API key")
		file     = flag.String("file", "", "roster file (.csv or .xlsx)")
		cf       = flag.String("cf", "", "comma-separated Codeforces problems")
		lc       = flag.String("lc", "", "comma-separated LeetCode slugs")
		cc       = flag.String("cc", "", "comma-separated CodeChef codes")
		out      = flag.String("out", "report.xlsx", "where to write the workbook")
		refresh  = flag.String("refresh", "", "refresh this report instead of starting a check")
		drop     = flag.Bool("drop-handles", false, "omit handle columns from the workbook")
		interval = flag.Duration("poll", 2*time.Second, "progress poll interval")
	)
	flag.Parse()

	defer logger.Sync()
	log := logger.NewNamedLogger("testclient")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := tracker.New(*baseURL, *apiKey)
	if _, err := client.Health(ctx); err != nil {
		log.Fatalf("server is not reachable: %v", err)
	}

	var (
		queued *tracker.QueuedResponse
		err    error
	)
	if *refresh != "" {
		queued, err = client.Reports.Refresh(ctx, *refresh)
	} else {
		if *file == "" {
			log.Fatal("-file or -refresh is required")
		}
		f, openErr := os.Open(*file)
		if openErr != nil {
			log.Fatalf("failed to open roster: %v", openErr)
		}
		queued, err = client.Checks.Start(ctx, filepath.Base(*file), f, tracker.Problems{
			Codeforces: splitList(*cf),
			LeetCode:   splitList(*lc),
			CodeChef:   splitList(*cc),
		})
		f.Close()
	}
	switch {
	case tracker.IsNotFound(err):
		log.Fatalf("report %s does not exist", *refresh)
	case tracker.IsShuttingDown(err):
		log.Fatal("server is shutting down, try again later")
	case err != nil:
		log.Fatalf("failed to queue job: %v", err)
	}
	log.Infow("job queued", "job_id", queued.JobID)

	job, err := client.Checks.Wait(ctx, queued.JobID, *interval)
	if err != nil {
		log.Fatalf("failed waiting for job: %v", err)
	}
	if job.Status == tracker.StatusFailed {
		log.Fatalf("job failed: %s", job.Error)
	}
	log.Infow("job completed", "job_id", job.JobID, "report_id", job.ReportID, "students", job.Total)

	data, err := client.Reports.Download(ctx, job.ReportID, &tracker.ViewOptions{DropHandles: *drop})
	if err != nil {
		log.Fatalf("failed to download report: %v", err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Fatalf("failed to write %s: %v", *out, err)
	}
	log.Infow("report saved", "path", *out)
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
