package entities

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Ошибки предметной области.
var (
	ErrValidation                 = errors.New("validation failed")
	ErrDailyLimitConflict         = errors.New("a public note already exists for this day")
	ErrAlreadyLiked               = errors.New("note already liked by this user")
	ErrPersistence                = errors.New("persistence failure")
	ErrExternalServiceUnavailable = errors.New("external service unavailable")
	ErrNotFound                   = errors.New("note not found")
	ErrRateLimited                = errors.New("rate limit exceeded")
)

// Тексты ошибок валидации.
const (
	MsgMoodRequired    = "please select a mood"
	MsgMessageRequired = "please write a message"
	MsgMessageTooLong  = "message is too long"
	MsgUserRequired    = "user id is required"

	MsgDraftDateMismatch = "draft date does not match its creation time"
	MsgDraftInFuture     = "draft creation time is in the future"
	MsgDraftExpired      = "draft has expired, please save the entry again"
)

// Шаги многошаговых операций публикации.
const (
	StepCheckLimit         = "check_daily_limit"
	StepDemoteDeletePublic = "demote_delete_public"
	StepDemoteClearFlag    = "demote_clear_flag"
	StepCreatePublic       = "create_public"
	StepCreatePrivate      = "create_private"
	StepSetPublic          = "set_public"
	StepDeletePublic       = "delete_public"
	StepClearFlag          = "clear_flag"
)

// StepError describes a failed multi-step write: which step failed and which
// steps had already been committed. It always matches ErrPersistence.
type StepError struct {
	Operation string
	Step      string
	Completed []string
	Err       error
}

func (e *StepError) Error() string {
	done := "none"
	if len(e.Completed) > 0 {
		done = strings.Join(e.Completed, ",")
	}
	return fmt.Sprintf("%s: step %s failed (completed: %s): %v", e.Operation, e.Step, done, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// Committed сообщает, был ли шаг step зафиксирован до сбоя.
func (e *StepError) Committed(step string) bool {
	return slices.Contains(e.Completed, step)
}

// DemoteCommitted is true when the previous public note of the day was fully
// demoted before the failure.
func (e *StepError) DemoteCommitted() bool {
	return e.Committed(StepDemoteDeletePublic) && e.Committed(StepDemoteClearFlag)
}
