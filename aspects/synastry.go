package aspects

import (
	"fmt"

	"astro-service/models"
)

// Person is one side of a synastry comparison
type Person struct {
	Name      string                  `json:"name"`
	Positions []models.PlanetPosition `json:"positions"`
}

// RelationshipPlanets are the bodies compared in synastry
var RelationshipPlanets = map[models.Planet]bool{
	models.Sun:     true,
	models.Moon:    true,
	models.Venus:   true,
	models.Mars:    true,
	models.Mercury: true,
	models.Jupiter: true,
}

var interpretations = map[models.AspectType]string{
	models.Conjunction: "злиття енергій, сильне взаємне притягання",
	models.Sextile:     "легка взаємодія та дружня підтримка",
	models.Square:      "напруга, що вимагає компромісів",
	models.Trine:       "гармонія та природне взаєморозуміння",
	models.Opposition:  "виклик, який водночас створює притягання",
}

// relevant keeps relationship bodies in their original order, dropping repeats
func relevant(positions []models.PlanetPosition) []models.PlanetPosition {
	seen := make(map[models.Planet]bool, len(RelationshipPlanets))
	out := make([]models.PlanetPosition, 0, len(RelationshipPlanets))
	for _, p := range positions {
		if !RelationshipPlanets[p.Name] || seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	return out
}

// BuildSynastry returns every aspect between person1's and person2's relationship
// planets. The outer loop walks person1 and the inner loop person2, both in input
// order; the UI renders aspects in exactly this order.
func BuildSynastry(person1, person2 Person, table []Definition) []models.SynastryAspect {
	left := relevant(person1.Positions)
	right := relevant(person2.Positions)

	aspects := make([]models.SynastryAspect, 0)
	for _, p1 := range left {
		for _, p2 := range right {
			aspect, ok := Between(p1, p2, table)
			if !ok {
				continue
			}
			aspects = append(aspects, models.SynastryAspect{
				Aspect:      aspect,
				Person1Name: person1.Name,
				Person2Name: person2.Name,
				Description: describe(aspect, person1.Name, person2.Name),
			})
		}
	}
	return aspects
}

func describe(a models.Aspect, name1, name2 string) string {
	text := fmt.Sprintf("%s (%s) %s %s (%s)",
		a.Planet1.UkrainianName(), name1, a.Type.UkrainianName(), a.Planet2.UkrainianName(), name2)
	if meaning, ok := interpretations[a.Type]; ok {
		text += ": " + meaning
	}
	return text
}

// Compatibility validates both charts, builds their synastry aspects and scores them
func Compatibility(person1, person2 Person) (models.CompatibilityResult, error) {
	for _, person := range []Person{person1, person2} {
		for _, p := range person.Positions {
			if err := ValidateLongitude(p.Longitude); err != nil {
				return models.CompatibilityResult{}, fmt.Errorf("%s %s: %w", person.Name, p.Name, err)
			}
		}
	}

	aspects := BuildSynastry(person1, person2, MajorAspects)
	return models.CompatibilityResult{
		SynastryAspects:    aspects,
		CompatibilityScore: Score(aspects),
	}, nil
}
