package fortune

import (
	"strings"

	"github.com/terraincognita07/shrine/internal/models"
)

func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func FindRecord(history []models.UserHistory, email string) (models.UserHistory, bool) {
	normalized := NormalizeEmail(email)
	for _, record := range history {
		if NormalizeEmail(record.Email) == normalized {
			return record, true
		}
	}
	return models.UserHistory{}, false
}

func HasDrawnThisMonth(history []models.UserHistory, email string, month string) (string, bool) {
	record, ok := FindRecord(history, email)
	if !ok {
		return "", false
	}
	slipID, ok := record.Draws[month]
	if !ok || slipID == "" {
		return "", false
	}
	return slipID, true
}

// RecordDraw returns a copy of history with draws[month] = slipID for email.
// The input slice and its records are never modified.
func RecordDraw(history []models.UserHistory, email string, month string, slipID string) []models.UserHistory {
	normalized := NormalizeEmail(email)
	updated := make([]models.UserHistory, 0, len(history)+1)
	found := false
	for _, record := range history {
		if !found && NormalizeEmail(record.Email) == normalized {
			clone := record.Clone()
			clone.Draws[month] = slipID
			updated = append(updated, clone)
			found = true
			continue
		}
		updated = append(updated, record)
	}

	if !found {
		updated = append(updated, models.UserHistory{
			Email: normalized,
			Draws: map[string]string{month: slipID},
		})
	}
	return updated
}
