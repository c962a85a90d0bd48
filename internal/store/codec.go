package store

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/terraincognita07/shrine/internal/models"
)

var ErrMalformedCollection = errors.New("malformed collection value")

func isEmptyValue(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// DecodeFortunes accepts a JSON array or an object keyed by index, the shape a
// realtime database returns for arrays it has re-keyed. Null entries are skipped.
func DecodeFortunes(raw []byte) ([]models.FortuneSlip, error) {
	if isEmptyValue(raw) {
		return []models.FortuneSlip{}, nil
	}

	trimmed := bytes.TrimSpace(raw)
	var entries []*models.FortuneSlip
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("%w: fortunes: %v", ErrMalformedCollection, err)
		}
	case '{':
		keyed := map[string]*models.FortuneSlip{}
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return nil, fmt.Errorf("%w: fortunes: %v", ErrMalformedCollection, err)
		}
		for _, key := range orderedKeys(keyed) {
			entries = append(entries, keyed[key])
		}
	default:
		return nil, fmt.Errorf("%w: fortunes must be a list", ErrMalformedCollection)
	}

	slips := make([]models.FortuneSlip, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		slips = append(slips, *entry)
	}
	return slips, nil
}

// orderedKeys sorts numeric keys numerically ahead of any other keys.
func orderedKeys(keyed map[string]*models.FortuneSlip) []string {
	keys := make([]string, 0, len(keyed))
	for key := range keyed {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		left, leftErr := strconv.Atoi(keys[i])
		right, rightErr := strconv.Atoi(keys[j])
		switch {
		case leftErr == nil && rightErr == nil:
			return left < right
		case leftErr == nil:
			return true
		case rightErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// DecodeConfig returns the default config when nothing was stored. A stored
// config without a passcode keeps the default passcode.
func DecodeConfig(raw []byte) (models.AppConfig, error) {
	config := models.DefaultAppConfig()
	if isEmptyValue(raw) {
		return config, nil
	}

	var stored models.AppConfig
	if err := json.Unmarshal(bytes.TrimSpace(raw), &stored); err != nil {
		return config, fmt.Errorf("%w: config: %v", ErrMalformedCollection, err)
	}
	if stored.UserPasscode == "" {
		stored.UserPasscode = config.UserPasscode
	}
	return stored, nil
}

// DecodeHistory treats anything but a JSON array as an empty ledger.
func DecodeHistory(raw []byte) ([]models.UserHistory, error) {
	if isEmptyValue(raw) {
		return []models.UserHistory{}, nil
	}

	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] != '[' {
		return []models.UserHistory{}, nil
	}

	var entries []*models.UserHistory
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("%w: history: %v", ErrMalformedCollection, err)
	}

	history := make([]models.UserHistory, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if entry.Draws == nil {
			entry.Draws = map[string]string{}
		}
		history = append(history, *entry)
	}
	return history, nil
}

func Encode(value interface{}) ([]byte, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	return encoded, nil
}
