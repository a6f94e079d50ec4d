package live

import "slices"

// Row одна строка представления. Fingerprint меняется при любом видимом изменении Value.
type Row struct {
	Key         string `json:"key"`
	Fingerprint string `json:"-"`
	Value       any    `json:"value"`
}

// Типы обновлений.
const (
	UpdateSnapshot = "snapshot"
	UpdateDiff     = "diff"
)

// Update is either the full snapshot sent first or an incremental diff.
// Order carries the complete key order after a diff.
type Update struct {
	Type     string   `json:"type"`
	Rows     []Row    `json:"rows,omitempty"`
	Added    []Row    `json:"added,omitempty"`
	Modified []Row    `json:"modified,omitempty"`
	Removed  []string `json:"removed,omitempty"`
	Order    []string `json:"order,omitempty"`
}

// Snapshot строит первое обновление подписки.
func Snapshot(rows []Row) Update {
	return Update{Type: UpdateSnapshot, Rows: append([]Row{}, rows...)}
}

// Diff сравнивает два состояния представления. Второе значение false, если изменений нет.
func Diff(prev, next []Row) (Update, bool) {
	before := make(map[string]string, len(prev))
	for _, r := range prev {
		before[r.Key] = r.Fingerprint
	}
	after := make(map[string]struct{}, len(next))

	u := Update{Type: UpdateDiff}
	for _, r := range next {
		after[r.Key] = struct{}{}
		fp, ok := before[r.Key]
		switch {
		case !ok:
			u.Added = append(u.Added, r)
		case fp != r.Fingerprint:
			u.Modified = append(u.Modified, r)
		}
	}
	for _, r := range prev {
		if _, ok := after[r.Key]; !ok {
			u.Removed = append(u.Removed, r.Key)
		}
	}

	order := keys(next)
	changed := len(u.Added) > 0 || len(u.Modified) > 0 || len(u.Removed) > 0
	if !changed && slices.Equal(keys(prev), order) {
		return Update{}, false
	}
	u.Order = order
	return u, true
}

// Apply применяет обновление к состоянию; так клиент восстанавливает представление.
func Apply(state []Row, u Update) []Row {
	if u.Type == UpdateSnapshot {
		return append([]Row{}, u.Rows...)
	}

	byKey := make(map[string]Row, len(state)+len(u.Added))
	for _, r := range state {
		byKey[r.Key] = r
	}
	for _, key := range u.Removed {
		delete(byKey, key)
	}
	for _, r := range u.Added {
		byKey[r.Key] = r
	}
	for _, r := range u.Modified {
		byKey[r.Key] = r
	}

	out := make([]Row, 0, len(u.Order))
	for _, key := range u.Order {
		if r, ok := byKey[key]; ok {
			out = append(out, r)
		}
	}
	return out
}

func keys(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Key
	}
	return out
}
