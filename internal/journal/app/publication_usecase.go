package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"moodnote/internal/journal/domain/entities"
	"moodnote/internal/journal/ports/repositories"
	"moodnote/pkg/logger"
)

// Названия операций для ошибок и метрик.
const (
	OpSave          = "save"
	OpPublish       = "publish"
	OpSwap          = "swap"
	OpTogglePublic  = "toggle_public"
	OpTogglePrivate = "toggle_private"
	OpToggleSwap    = "toggle_swap"
)

const (
	logCompensationFailed = "failed to roll back public note after partial publish"
	logConflictRace       = "daily limit hit by a concurrent publish"
)

// PublicationUseCase keeps at most one public note per user per day.
//
// It is stateless between calls: a draft waiting for a swap decision is handed
// back to the caller inside Outcome and sent again with the decision. Writes are
// issued as a sequence of single-row operations; a failure in the middle is
// reported as *entities.StepError listing the committed steps.
type PublicationUseCase struct {
	store repositories.NoteStore
	opts  options
}

// NewPublicationUseCase создает координатор публикации.
func NewPublicationUseCase(store repositories.NoteStore, opts ...Option) *PublicationUseCase {
	return &PublicationUseCase{store: store, opts: buildOptions(opts)}
}

// NewDraft создает черновик на текущий момент в часовом поясе автора.
func (uc *PublicationUseCase) NewDraft(userID, mood, message string, loc *time.Location) (*entities.Draft, error) {
	return entities.NewDraft(userID, mood, message, uc.opts.now(), loc)
}

// Save сохраняет черновик согласно намерению пользователя.
func (uc *PublicationUseCase) Save(ctx context.Context, draft *entities.Draft, intent entities.ShareIntent) (*entities.Outcome, error) {
	log := logger.Log(ctx).With(zap.String("method", "PublicationUseCase.Save"))

	if err := draft.Validate(); err != nil {
		return nil, err
	}
	log.Debug(ctx, "saving entry",
		zap.String("userID", draft.UserID),
		zap.String("date", draft.Date),
		zap.String("intent", string(intent)))

	switch intent {
	case entities.ShareKeepPrivate:
		return uc.keepPrivate(ctx, OpSave, draft)
	case entities.SharePublish:
	default:
		return nil, fmt.Errorf("%w: unknown share intent %q", entities.ErrValidation, intent)
	}

	existing, err := uc.store.FindPublicNoteForUserOnDate(ctx, draft.UserID, draft.Date, "")
	if err != nil {
		return nil, stepError(OpPublish, entities.StepCheckLimit, nil, err)
	}
	if existing != nil {
		log.Debug(ctx, "daily public note already exists", zap.String("existingID", existing.ID))
		return uc.awaitSwap(OpPublish, nil, existing, draft), nil
	}

	return uc.publishDraft(ctx, OpPublish, draft, nil)
}

// ResolveSwap завершает публикацию черновика после конфликта дневного лимита.
// Черновик возвращается вызывающим, поэтому его дата сверяется с моментом
// создания в зоне loc, а сам момент с текущим временем.
func (uc *PublicationUseCase) ResolveSwap(ctx context.Context, draft *entities.Draft, decision entities.SwapDecision, loc *time.Location) (*entities.Outcome, error) {
	log := logger.Log(ctx).With(zap.String("method", "PublicationUseCase.ResolveSwap"))

	if err := draft.Validate(); err != nil {
		return nil, err
	}
	if err := draft.Verify(uc.opts.now(), loc); err != nil {
		log.Debug(ctx, "rejected returned draft", zap.String("date", draft.Date), zap.Error(err))
		return nil, err
	}

	switch decision {
	case entities.SwapDecline:
		return uc.keepPrivate(ctx, OpSwap, draft)
	case entities.SwapReplace:
	default:
		return nil, fmt.Errorf("%w: unknown swap decision %q", entities.ErrValidation, decision)
	}

	existing, err := uc.store.FindPublicNoteForUserOnDate(ctx, draft.UserID, draft.Date, "")
	if err != nil {
		return nil, stepError(OpSwap, entities.StepCheckLimit, nil, err)
	}

	var completed []string
	if existing != nil {
		log.Debug(ctx, "demoting previous public note", zap.String("existingID", existing.ID))
		if completed, err = uc.demote(ctx, OpSwap, existing, completed); err != nil {
			return nil, err
		}
	}

	return uc.publishDraft(ctx, OpSwap, draft, completed)
}

// SetVisibility переключает существующую запись истории.
func (uc *PublicationUseCase) SetVisibility(ctx context.Context, userID, noteID string, public bool) (*entities.Outcome, error) {
	log := logger.Log(ctx).With(zap.String("method", "PublicationUseCase.SetVisibility"))
	log.Debug(ctx, "toggling visibility", zap.String("noteID", noteID), zap.Bool("public", public))

	note, err := uc.getOwned(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}

	if !public {
		// Запись без живой публичной копии читается приватной, но флаг в
		// хранилище мог остаться: demote сбрасывает его в любом случае.
		if _, err := uc.demote(ctx, OpTogglePrivate, note, nil); err != nil {
			return nil, err
		}
		return uc.finish(OpTogglePrivate, entities.StateKeptPrivate, note), nil
	}

	if note.IsPublic {
		return uc.finish(OpTogglePublic, entities.StatePublished, note), nil
	}

	// The day is the note's own date, never the day of the toggle.
	existing, err := uc.store.FindPublicNoteForUserOnDate(ctx, userID, note.Date, note.ID)
	if err != nil {
		return nil, stepError(OpTogglePublic, entities.StepCheckLimit, nil, err)
	}
	if existing != nil {
		return uc.awaitSwap(OpTogglePublic, note, existing, nil), nil
	}

	return uc.promote(ctx, OpTogglePublic, note, nil)
}

// ResolveToggleSwap завершает переключение записи в публичную после конфликта.
func (uc *PublicationUseCase) ResolveToggleSwap(ctx context.Context, userID, noteID string, decision entities.SwapDecision) (*entities.Outcome, error) {
	note, err := uc.getOwned(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}

	switch decision {
	case entities.SwapDecline:
		return uc.finish(OpToggleSwap, entities.StateKeptPrivate, note), nil
	case entities.SwapReplace:
	default:
		return nil, fmt.Errorf("%w: unknown swap decision %q", entities.ErrValidation, decision)
	}

	if note.IsPublic {
		return uc.finish(OpToggleSwap, entities.StatePublished, note), nil
	}

	existing, err := uc.store.FindPublicNoteForUserOnDate(ctx, userID, note.Date, note.ID)
	if err != nil {
		return nil, stepError(OpToggleSwap, entities.StepCheckLimit, nil, err)
	}

	var completed []string
	if existing != nil {
		if completed, err = uc.demote(ctx, OpToggleSwap, existing, completed); err != nil {
			return nil, err
		}
	}

	return uc.promote(ctx, OpToggleSwap, note, completed)
}

func (uc *PublicationUseCase) getOwned(ctx context.Context, userID, noteID string) (*entities.PrivateNote, error) {
	if userID == "" || noteID == "" {
		return nil, fmt.Errorf("%w: user id and note id are required", entities.ErrValidation)
	}
	note, err := uc.store.GetPrivateNote(ctx, userID, noteID)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return note, nil
}

func (uc *PublicationUseCase) keepPrivate(ctx context.Context, op string, draft *entities.Draft) (*entities.Outcome, error) {
	saved, err := uc.store.CreatePrivateNote(ctx, draft.PrivateNote())
	if err != nil {
		return nil, stepError(op, entities.StepCreatePrivate, nil, err)
	}
	emit(ctx, uc.opts.publisher, uc.opts.now, entities.ChangePrivateNote, saved.UserID, saved.ID)
	return uc.finish(op, entities.StateKeptPrivate, saved), nil
}

// publishDraft creates the public note first and then the private note that links it.
func (uc *PublicationUseCase) publishDraft(ctx context.Context, op string, draft *entities.Draft, completed []string) (*entities.Outcome, error) {
	pub, err := uc.store.CreatePublicNote(ctx, entities.NewPublicNote(draft))
	if err != nil {
		return nil, stepError(op, entities.StepCreatePublic, completed, err)
	}

	note := draft.PrivateNote()
	note.IsPublic = true
	note.PublicNoteID = pub.ID

	saved, err := uc.store.CreatePrivateNote(ctx, note)
	if err != nil {
		uc.compensate(ctx, pub.ID)
		if errors.Is(err, entities.ErrDailyLimitConflict) {
			return uc.raceLost(ctx, op, nil, draft)
		}
		return nil, stepError(op, entities.StepCreatePrivate, completed, err)
	}

	emit(ctx, uc.opts.publisher, uc.opts.now, entities.ChangePublicNote, saved.UserID, pub.ID)
	emit(ctx, uc.opts.publisher, uc.opts.now, entities.ChangePrivateNote, saved.UserID, saved.ID)
	return uc.finish(op, entities.StatePublished, saved), nil
}

// promote publishes an existing private note.
func (uc *PublicationUseCase) promote(ctx context.Context, op string, note *entities.PrivateNote, completed []string) (*entities.Outcome, error) {
	pub, err := uc.store.CreatePublicNote(ctx, note.PublicCopy())
	if err != nil {
		return nil, stepError(op, entities.StepCreatePublic, completed, err)
	}

	if err := uc.store.SetPublicStatus(ctx, note.ID, true, pub.ID); err != nil {
		uc.compensate(ctx, pub.ID)
		if errors.Is(err, entities.ErrDailyLimitConflict) {
			return uc.raceLost(ctx, op, note, nil)
		}
		return nil, stepError(op, entities.StepSetPublic, completed, err)
	}

	note.IsPublic = true
	note.PublicNoteID = pub.ID

	emit(ctx, uc.opts.publisher, uc.opts.now, entities.ChangePublicNote, note.UserID, pub.ID)
	emit(ctx, uc.opts.publisher, uc.opts.now, entities.ChangePrivateNote, note.UserID, note.ID)
	return uc.finish(op, entities.StatePublished, note), nil
}

// demote deletes the public copy before clearing the flag. Deleting is
// idempotent, so repeating a half-finished demote is safe.
func (uc *PublicationUseCase) demote(ctx context.Context, op string, note *entities.PrivateNote, completed []string) ([]string, error) {
	if note.PublicNoteID != "" {
		if err := uc.store.DeletePublicNote(ctx, note.PublicNoteID); err != nil {
			return completed, stepError(op, entities.StepDemoteDeletePublic, completed, err)
		}
		emit(ctx, uc.opts.publisher, uc.opts.now, entities.ChangePublicNote, note.UserID, note.PublicNoteID)
	}
	completed = append(completed, entities.StepDemoteDeletePublic)

	if err := uc.store.SetPublicStatus(ctx, note.ID, false, ""); err != nil {
		return completed, stepError(op, entities.StepDemoteClearFlag, completed, err)
	}
	completed = append(completed, entities.StepDemoteClearFlag)

	note.IsPublic = false
	note.PublicNoteID = ""
	emit(ctx, uc.opts.publisher, uc.opts.now, entities.ChangePrivateNote, note.UserID, note.ID)
	return completed, nil
}

// raceLost handles a concurrent publish that took the day between the check
// and the write: the caller gets the swap prompt again.
func (uc *PublicationUseCase) raceLost(ctx context.Context, op string, note *entities.PrivateNote, draft *entities.Draft) (*entities.Outcome, error) {
	userID, date, exclude := "", "", ""
	if note != nil {
		userID, date, exclude = note.UserID, note.Date, note.ID
	} else {
		userID, date = draft.UserID, draft.Date
	}
	logger.Log(ctx).Info(ctx, logConflictRace, zap.String("userID", userID), zap.String("date", date))

	existing, err := uc.store.FindPublicNoteForUserOnDate(ctx, userID, date, exclude)
	if err != nil {
		return nil, stepError(op, entities.StepCheckLimit, nil, err)
	}
	if existing == nil {
		return nil, stepError(op, entities.StepCheckLimit, nil, entities.ErrDailyLimitConflict)
	}
	return uc.awaitSwap(op, note, existing, draft), nil
}

func (uc *PublicationUseCase) compensate(ctx context.Context, publicNoteID string) {
	if err := uc.store.DeletePublicNote(ctx, publicNoteID); err != nil {
		logger.Log(ctx).Error(ctx, logCompensationFailed, zap.String("publicNoteID", publicNoteID), zap.Error(err))
	}
}

func (uc *PublicationUseCase) awaitSwap(op string, note, existing *entities.PrivateNote, draft *entities.Draft) *entities.Outcome {
	uc.opts.metrics.PublicationOutcome(op, entities.StateAwaitingSwapDecision)
	return &entities.Outcome{
		State:    entities.StateAwaitingSwapDecision,
		Note:     note,
		Conflict: existing,
		Draft:    draft,
	}
}

func (uc *PublicationUseCase) finish(op string, state entities.State, note *entities.PrivateNote) *entities.Outcome {
	uc.opts.metrics.PublicationOutcome(op, state)
	return &entities.Outcome{State: state, Note: note}
}

func stepError(op, step string, completed []string, err error) error {
	return &entities.StepError{
		Operation: op,
		Step:      step,
		Completed: append([]string(nil), completed...),
		Err:       err,
	}
}
