package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/pwvale/panel-backend/pkg/config"
	"github.com/pwvale/panel-backend/pkg/logger"
	"github.com/pwvale/panel-backend/pkg/metrics"
)

// donationExpirer is the slice of the donations repository this job needs.
type donationExpirer interface {
	ExpireStalePending(ctx context.Context, olderThan time.Time, batchSize int) (int64, error)
}

// DonationExpiryJobParams configure the expiry sweep.
type DonationExpiryJobParams struct {
	Repo    donationExpirer
	Logger  *logger.Logger
	Metrics *metrics.CronJobMetrics
	Config  config.SweepConfig
}

// DonationExpiryJob cancels pending donations whose gateway session was
// abandoned. A pending row older than the TTL will never settle: the gateway
// session has long since expired, so flipping it to cancelled keeps the
// pending set small and the history honest.
type DonationExpiryJob struct {
	repo    donationExpirer
	logg    *logger.Logger
	metrics *metrics.CronJobMetrics
	ttl     time.Duration
	batch   int
	now     func() time.Time
}

// NewDonationExpiryJob builds the job.
func NewDonationExpiryJob(params DonationExpiryJobParams) (*DonationExpiryJob, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("donations repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.Config.PendingTTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	batch := params.Config.BatchSize
	if batch <= 0 {
		batch = 500
	}
	return &DonationExpiryJob{
		repo:    params.Repo,
		logg:    params.Logger,
		metrics: params.Metrics,
		ttl:     ttl,
		batch:   batch,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *DonationExpiryJob) Name() string { return "donation-expiry" }

// Run sweeps batches until a short batch signals the backlog is drained.
func (j *DonationExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.ttl)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		expired, err := j.repo.ExpireStalePending(ctx, cutoff, j.batch)
		if err != nil {
			return fmt.Errorf("expiring stale donations: %w", err)
		}
		total += expired
		if expired < int64(j.batch) {
			break
		}
	}
	if j.metrics != nil && total > 0 {
		j.metrics.AddExpiredDonations(total)
	}
	ctx = j.logg.WithField(ctx, "expired", total)
	j.logg.Info(ctx, "stale pending donations cancelled")
	return nil
}
