package aspects

import "astro-service/models"

const (
	baseScore = 50
	minScore  = 0
	maxScore  = 100
)

// scoreWeights adjust the base score per aspect. Opposition is challenging but
// creates attraction, so it still counts slightly positive.
var scoreWeights = map[models.AspectType]int{
	models.Conjunction: 8,
	models.Trine:       10,
	models.Sextile:     7,
	models.Square:      -3,
	models.Opposition:  2,
}

// Score reduces a synastry aspect list to a compatibility score in [0, 100]
func Score(aspects []models.SynastryAspect) int {
	score := baseScore
	for _, a := range aspects {
		score += scoreWeights[a.Type]
	}
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
