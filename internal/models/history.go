package models

// UserHistory maps a month key to the slip id drawn by one villager.
type UserHistory struct {
	Email string            `json:"email"`
	Draws map[string]string `json:"draws"`
}

func (record UserHistory) Clone() UserHistory {
	draws := make(map[string]string, len(record.Draws))
	for month, slipID := range record.Draws {
		draws[month] = slipID
	}
	return UserHistory{Email: record.Email, Draws: draws}
}
