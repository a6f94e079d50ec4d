// Package entities defines the domain entities of the mood journal.
package entities

import (
	"fmt"
	"strings"
)

// Mood хранится как иконка погоды.
type Mood string

// Каталог настроений.
const (
	MoodSunny  Mood = "☀️"
	MoodClear  Mood = "🌤️"
	MoodCloudy Mood = "☁️"
	MoodRainy  Mood = "🌧️"
	MoodStormy Mood = "⛈️"
)

var moodLabels = map[Mood]string{
	MoodSunny:  "Sunny",
	MoodClear:  "Clear",
	MoodCloudy: "Cloudy",
	MoodRainy:  "Rainy",
	MoodStormy: "Stormy",
}

// Moods возвращает каталог в порядке отображения.
func Moods() []Mood {
	return []Mood{MoodSunny, MoodClear, MoodCloudy, MoodRainy, MoodStormy}
}

// Icon возвращает иконку настроения.
func (m Mood) Icon() string {
	return string(m)
}

// Label возвращает название настроения или пустую строку для неизвестного.
func (m Mood) Label() string {
	return moodLabels[m]
}

// Valid сообщает, входит ли настроение в каталог.
func (m Mood) Valid() bool {
	_, ok := moodLabels[m]
	return ok
}

// ParseMood принимает иконку или название (без учета регистра).
func ParseMood(raw string) (Mood, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: %s", ErrValidation, MsgMoodRequired)
	}
	if m := Mood(raw); m.Valid() {
		return m, nil
	}
	for m, label := range moodLabels {
		if strings.EqualFold(label, raw) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown mood %q", ErrValidation, raw)
}
