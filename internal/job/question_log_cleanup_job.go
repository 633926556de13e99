package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jan-barg/lectorius/internal/repo"
)

type QuestionLogCleanupJob struct {
	repo          *repo.QuestionLogRepo
	retentionDays int
}

func NewQuestionLogCleanupJob(repo *repo.QuestionLogRepo, retentionDays int) *QuestionLogCleanupJob {
	return &QuestionLogCleanupJob{repo: repo, retentionDays: retentionDays}
}

func (j *QuestionLogCleanupJob) Name() string {
	return "question_log_cleanup"
}

func (j *QuestionLogCleanupJob) Run(ctx context.Context) error {
	if j.repo == nil {
		return nil
	}
	retentionDays := j.retentionDays
	if retentionDays <= 0 {
		retentionDays = 90
	}
	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour).UnixMilli()
	deleted, err := j.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("question log cleanup", zap.Int64("deleted", deleted))
	}
	return nil
}
