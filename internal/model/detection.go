package model

import (
	"image"
	"strings"
)

// Kind classifies what a detection refers to.
type Kind string

const (
	KindPet    Kind = "pet"
	KindPerson Kind = "person"
	KindOther  Kind = "other"
)

// ParseKind maps a detector supplied kind to a Kind, defaulting to KindOther.
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindPet:
		return KindPet
	case KindPerson:
		return KindPerson
	default:
		return KindOther
	}
}

// Detection is a single labeled box produced by the detector for one frame.
type Detection struct {
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Region     image.Rectangle `json:"region"`
	Kind       Kind            `json:"kind"`
}

// Subject returns the identity key used for all per-subject state.
func (d Detection) Subject() string {
	return strings.ToLower(strings.TrimSpace(d.Label))
}
