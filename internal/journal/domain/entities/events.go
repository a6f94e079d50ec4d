package entities

import "time"

// ChangeKind тип изменения данных.
type ChangeKind string

const (
	ChangePrivateNote ChangeKind = "private_note"
	ChangePublicNote  ChangeKind = "public_note"
	ChangeLike        ChangeKind = "like"
)

// ChangeEvent сообщает подписчикам, что данные изменились и представления нужно пересчитать.
type ChangeEvent struct {
	Kind   ChangeKind `json:"kind"`
	UserID string     `json:"user_id,omitempty"`
	NoteID string     `json:"note_id,omitempty"`
	At     time.Time  `json:"at"`
}

// AffectsPublic сообщает, затрагивает ли событие ленту и рейтинг.
func (e ChangeEvent) AffectsPublic() bool {
	return e.Kind == ChangePublicNote || e.Kind == ChangeLike
}
