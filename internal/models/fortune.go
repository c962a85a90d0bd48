package models

import "strings"

type FortuneLevel string

const (
	LevelDaiKichi  FortuneLevel = "Great Blessing (大吉)"
	LevelKichi     FortuneLevel = "Blessing (吉)"
	LevelChuKichi  FortuneLevel = "Middle Blessing (中吉)"
	LevelShoKichi  FortuneLevel = "Small Blessing (小吉)"
	LevelSueKichi  FortuneLevel = "Future Blessing (末吉)"
	DefaultLevel                = LevelKichi
	MonthKeyLayout              = "2006-01"
)

// FortuneLevels lists the tiers from most to least auspicious.
func FortuneLevels() []FortuneLevel {
	return []FortuneLevel{
		LevelDaiKichi,
		LevelKichi,
		LevelChuKichi,
		LevelShoKichi,
		LevelSueKichi,
	}
}

func (level FortuneLevel) Valid() bool {
	for _, candidate := range FortuneLevels() {
		if level == candidate {
			return true
		}
	}
	return false
}

// Rank is 0 for the best tier and -1 for unknown values.
func (level FortuneLevel) Rank() int {
	for index, candidate := range FortuneLevels() {
		if level == candidate {
			return index
		}
	}
	return -1
}

// Name is the label before the parenthesised kanji, e.g. "Great Blessing".
func (level FortuneLevel) Name() string {
	name, _, _ := strings.Cut(string(level), "(")
	return strings.TrimSpace(name)
}

func (level FortuneLevel) Kanji() string {
	_, rest, found := strings.Cut(string(level), "(")
	if !found {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), ")"))
}

type FortuneAdvice struct {
	Luck      string `json:"luck"`
	Happiness string `json:"happiness"`
	Stress    string `json:"stress"`
	Health    string `json:"health"`
}

type FortuneSlip struct {
	ID        string        `json:"id"`
	Month     string        `json:"month"`
	Level     FortuneLevel  `json:"level"`
	Poem      string        `json:"poem"`
	FocusOn   string        `json:"focusOn"`
	DoingWell string        `json:"doingWell"`
	Advice    FortuneAdvice `json:"advice"`
	ImageURL  string        `json:"imageUrl,omitempty"`
}

func (slip FortuneSlip) HasImage() bool {
	return strings.TrimSpace(slip.ImageURL) != ""
}
