package models

// AspectType names an angular relationship between two bodies
type AspectType string

const (
	Conjunction  AspectType = "Conjunction"
	Sextile      AspectType = "Sextile"
	Square       AspectType = "Square"
	Trine        AspectType = "Trine"
	Opposition   AspectType = "Opposition"
	Quincunx     AspectType = "Quincunx"
	Semisextile  AspectType = "Semisextile"
	Semisquare   AspectType = "Semisquare"
	Sesquisquare AspectType = "Sesquisquare"
	Quintile     AspectType = "Quintile"
	Biquintile   AspectType = "Biquintile"
)

var aspectNamesUK = map[AspectType]string{
	Conjunction:  "з'єднання",
	Sextile:      "секстиль",
	Square:       "квадрат",
	Trine:        "трин",
	Opposition:   "опозиція",
	Quincunx:     "квінконс",
	Semisextile:  "напівсекстиль",
	Semisquare:   "напівквадрат",
	Sesquisquare: "півтораквадрат",
	Quintile:     "квінтиль",
	Biquintile:   "біквінтиль",
}

// UkrainianName returns the localized aspect name
func (a AspectType) UkrainianName() string {
	if name, ok := aspectNamesUK[a]; ok {
		return name
	}
	return string(a)
}

// Aspect is an angular relationship between two bodies within the allowed orb
type Aspect struct {
	Planet1    Planet     `json:"planet1"`
	Planet2    Planet     `json:"planet2"`
	Type       AspectType `json:"type"`
	Orb        float64    `json:"orb"` // deviation from the exact angle, degrees
	IsApplying bool       `json:"isApplying"`
}

// SynastryAspect is an aspect between the charts of two people
type SynastryAspect struct {
	Aspect
	Person1Name string `json:"person1Name"`
	Person2Name string `json:"person2Name"`
	Description string `json:"description"`
}

// CompatibilityResult is the payload returned for a compatibility request
type CompatibilityResult struct {
	SynastryAspects    []SynastryAspect `json:"synastryAspects"`
	CompatibilityScore int              `json:"compatibilityScore"`
}
