package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/apprl/dashboard-backend/pkg/db/models"
	"github.com/apprl/dashboard-backend/pkg/logger"
)

const defaultRedistributionBatch = 500

type redistributionRepo interface {
	ListWithoutEarnings(ctx context.Context, limit int) ([]models.Sale, error)
}

type redistributionService interface {
	Redistribute(ctx context.Context, id uuid.UUID) (*models.Sale, error)
}

type RedistributionJobParams struct {
	Logger    *logger.Logger
	Repo      redistributionRepo
	Service   redistributionService
	BatchSize int
}

// NewRedistributionJob sweeps sales that never materialized earnings, which
// happens when commission configuration was incomplete at ingest time, and
// retries distribution for them.
func NewRedistributionJob(params RedistributionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if params.Service == nil {
		return nil, fmt.Errorf("sales service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultRedistributionBatch
	}
	return &redistributionJob{logg: params.Logger, repo: params.Repo, service: params.Service, batch: batch}, nil
}

type redistributionJob struct {
	logg    *logger.Logger
	repo    redistributionRepo
	service redistributionService
	batch   int
}

func (j *redistributionJob) Name() string { return "redistribution-sweep" }

func (j *redistributionJob) Run(ctx context.Context) error {
	rows, err := j.repo.ListWithoutEarnings(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("listing sales without earnings: %w", err)
	}

	retried := 0
	failed := 0
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := j.service.Redistribute(ctx, rows[i].ID); err != nil {
			failed++
			saleCtx := j.logg.WithSaleID(ctx, rows[i].ID.String())
			j.logg.Error(saleCtx, "redistribution failed", err)
			continue
		}
		retried++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(rows),
		"retried":    retried,
		"failed":     failed,
	})
	j.logg.Info(logCtx, "redistribution sweep complete")
	return nil
}
