package jobs

import (
	"context"
	"time"

	"github.com/terraincognita07/shrine/internal/fortune"
	"github.com/terraincognita07/shrine/internal/logger"
	"github.com/terraincognita07/shrine/internal/models"
)

const monthRolloverTimeout = 30 * time.Second

type FortuneReader interface {
	Fortunes(ctx context.Context) ([]models.FortuneSlip, error)
}

type MonthReport struct {
	Month string
	Slips int
}

func (report MonthReport) Empty() bool {
	return report.Slips == 0
}

// MonthRolloverJob warns the keeper when a new month starts with no slips in the box.
type MonthRolloverJob struct {
	fortunes FortuneReader
	clock    fortune.Clock
}

func NewMonthRolloverJob(fortunes FortuneReader, clock fortune.Clock) *MonthRolloverJob {
	if clock == nil {
		clock = fortune.SystemClock(nil)
	}
	return &MonthRolloverJob{fortunes: fortunes, clock: clock}
}

func (j *MonthRolloverJob) Check(ctx context.Context) (MonthReport, error) {
	month := fortune.CurrentMonth(j.clock)
	pool, err := j.fortunes.Fortunes(ctx)
	if err != nil {
		return MonthReport{Month: month}, err
	}
	return MonthReport{
		Month: month,
		Slips: len(fortune.EligibleSlips(pool, month)),
	}, nil
}

// Run satisfies cron.Job.
func (j *MonthRolloverJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), monthRolloverTimeout)
	defer cancel()

	report, err := j.Check(ctx)
	if err != nil {
		logger.Errorf("month rollover: read fortunes for %s: %v", report.Month, err)
		return
	}
	if report.Empty() {
		logger.Warningf("month rollover: no fortune slips for %s, villagers cannot draw until the keeper adds some", report.Month)
		return
	}
	logger.Infof("month rollover: %d fortune slips ready for %s", report.Slips, report.Month)
}
