// Package scheduler wires the one periodic task the engine needs (§4.1's
// startup/recurring orphan recovery) onto River, the same queue the
// teacher used for its daily full-scrape job
// (internal/scraper/jobs/scheduler.go, scrape_job.go in kbsch-trough).
// The job dispatch itself stays a plain goroutine in jobmanager
// (cancellation must take effect within one article fetch, which a
// River job polling loop can't guarantee); River here only carries the
// recurring sweep, which is a best-effort background task River already
// fits well.
package scheduler

import (
	"context"
	"time"

	"github.com/riverqueue/river"
)

// OrphanRecoverer is the subset of jobmanager.Manager the sweep needs.
type OrphanRecoverer interface {
	RecoverOrphans(ctx context.Context) error
}

// OrphanSweepArgs carries no data; the job just triggers a recovery pass.
type OrphanSweepArgs struct{}

func (OrphanSweepArgs) Kind() string { return "orphan_sweep" }

// OrphanSweepWorker runs RecoverOrphans on River's schedule.
type OrphanSweepWorker struct {
	river.WorkerDefaults[OrphanSweepArgs]
	manager OrphanRecoverer
}

func NewOrphanSweepWorker(manager OrphanRecoverer) *OrphanSweepWorker {
	return &OrphanSweepWorker{manager: manager}
}

func (w *OrphanSweepWorker) Work(ctx context.Context, _ *river.Job[OrphanSweepArgs]) error {
	return w.manager.RecoverOrphans(ctx)
}

// PeriodicJobs returns the River periodic job schedule: a sweep every
// interval, matching the threshold the sweep itself checks against so a
// job can't sit orphaned for much longer than StuckJobThreshold.
func PeriodicJobs(interval time.Duration) []*river.PeriodicJob {
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return OrphanSweepArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}
