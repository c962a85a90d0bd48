package fortune

import (
	"errors"

	"github.com/terraincognita07/shrine/internal/models"
)

var ErrEmptyPool = errors.New("no fortunes configured for this month")

// Rand is the randomness source used for slip selection. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

func EligibleSlips(pool []models.FortuneSlip, month string) []models.FortuneSlip {
	eligible := make([]models.FortuneSlip, 0, len(pool))
	for _, slip := range pool {
		if slip.Month == month {
			eligible = append(eligible, slip)
		}
	}
	return eligible
}

// Draw picks one slip of the given month uniformly at random.
func Draw(pool []models.FortuneSlip, month string, rng Rand) (models.FortuneSlip, error) {
	eligible := EligibleSlips(pool, month)
	if len(eligible) == 0 {
		return models.FortuneSlip{}, ErrEmptyPool
	}
	return eligible[rng.Intn(len(eligible))], nil
}

func FindSlip(pool []models.FortuneSlip, slipID string) (models.FortuneSlip, bool) {
	for _, slip := range pool {
		if slip.ID == slipID {
			return slip, true
		}
	}
	return models.FortuneSlip{}, false
}
