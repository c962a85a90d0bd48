package models

type View string

const (
	ViewLanding View = "LANDING"
	ViewShrine  View = "SHRINE"
	ViewReveal  View = "REVEAL"
	ViewAdmin   View = "ADMIN"
)

func (view View) Valid() bool {
	switch view {
	case ViewLanding, ViewShrine, ViewReveal, ViewAdmin:
		return true
	default:
		return false
	}
}
