package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"moodnote/internal/journal/domain/entities"
	"moodnote/internal/journal/ports/repositories"
	"moodnote/pkg/logger"
)

// Виды исправлений для метрик.
const (
	ReconcileOrphans  = "orphaned_public_notes"
	ReconcileDangling = "dangling_public_flags"
)

// ReconcileReport итог прохода.
type ReconcileReport struct {
	OrphansDeleted int
	FlagsCleared   int
}

// ReconcileUseCase heals the transient states left by interrupted publication
// sequences: public notes nobody links to and public flags pointing nowhere.
type ReconcileUseCase struct {
	store repositories.NoteStore
	grace time.Duration
	opts  options
}

// NewReconcileUseCase создает use case; grace защищает публикации, которые еще в процессе.
func NewReconcileUseCase(store repositories.NoteStore, grace time.Duration, opts ...Option) *ReconcileUseCase {
	return &ReconcileUseCase{store: store, grace: grace, opts: buildOptions(opts)}
}

// Run выполняет один проход.
func (uc *ReconcileUseCase) Run(ctx context.Context) (*ReconcileReport, error) {
	log := logger.Log(ctx).With(zap.String("method", "ReconcileUseCase.Run"))

	orphans, err := uc.store.DeleteOrphanedPublicNotes(ctx, uc.opts.now().Add(-uc.grace))
	if err != nil {
		return nil, fmt.Errorf("failed to delete orphaned public notes: %w", err)
	}
	for _, n := range orphans {
		emit(ctx, uc.opts.publisher, uc.opts.now, entities.ChangePublicNote, n.UserID, n.ID)
	}

	dangling, err := uc.store.ClearDanglingPublicFlags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to clear dangling public flags: %w", err)
	}
	for _, n := range dangling {
		emit(ctx, uc.opts.publisher, uc.opts.now, entities.ChangePrivateNote, n.UserID, n.ID)
	}

	uc.opts.metrics.Reconciled(ReconcileOrphans, len(orphans))
	uc.opts.metrics.Reconciled(ReconcileDangling, len(dangling))

	report := &ReconcileReport{OrphansDeleted: len(orphans), FlagsCleared: len(dangling)}
	if report.OrphansDeleted > 0 || report.FlagsCleared > 0 {
		log.Info(ctx, "reconciliation fixed inconsistencies",
			zap.Int("orphans_deleted", report.OrphansDeleted),
			zap.Int("flags_cleared", report.FlagsCleared))
	}
	return report, nil
}
