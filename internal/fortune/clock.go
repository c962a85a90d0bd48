package fortune

import (
	"time"

	"github.com/terraincognita07/shrine/internal/models"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct {
	location *time.Location
}

// SystemClock reads the wall clock in location; nil means time.Local.
func SystemClock(location *time.Location) Clock {
	if location == nil {
		location = time.Local
	}
	return systemClock{location: location}
}

func (clock systemClock) Now() time.Time {
	return time.Now().In(clock.location)
}

type FixedClock time.Time

func (clock FixedClock) Now() time.Time {
	return time.Time(clock)
}

func MonthKey(value time.Time) string {
	return value.Format(models.MonthKeyLayout)
}

func CurrentMonth(clock Clock) string {
	return MonthKey(clock.Now())
}

func ValidMonthKey(raw string) bool {
	parsed, err := time.Parse(models.MonthKeyLayout, raw)
	if err != nil {
		return false
	}
	return parsed.Format(models.MonthKeyLayout) == raw
}
