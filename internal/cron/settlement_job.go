package cron

import (
	"context"
	"fmt"

	"github.com/apprl/dashboard-backend/internal/settlement"
	"github.com/apprl/dashboard-backend/pkg/logger"
)

type settlementBatcher interface {
	Run(ctx context.Context) (*settlement.Report, error)
}

type SettlementJobParams struct {
	Logger  *logger.Logger
	Batcher settlementBatcher
}

// NewSettlementJob wraps the payment batcher as a scheduled job.
func NewSettlementJob(params SettlementJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Batcher == nil {
		return nil, fmt.Errorf("settlement batcher required")
	}
	return &settlementJob{logg: params.Logger, batcher: params.Batcher}, nil
}

type settlementJob struct {
	logg    *logger.Logger
	batcher settlementBatcher
}

func (j *settlementJob) Name() string { return "settlement-batch" }

func (j *settlementJob) Run(ctx context.Context) error {
	report, err := j.batcher.Run(ctx)
	if report != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"users_seen":         report.UsersSeen,
			"payments_created":   report.PaymentsCreated,
			"payments_cancelled": report.PaymentsCancelled,
			"earnings_locked":    report.EarningsLocked,
			"skipped_below_min":  report.SkippedBelowMin,
		})
		j.logg.Info(logCtx, "settlement batch complete")
	}
	if err != nil {
		return fmt.Errorf("settlement batch: %w", err)
	}
	return nil
}
