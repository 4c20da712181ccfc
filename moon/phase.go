package moon

import (
	"math"

	"astro-service/aspects"
	"astro-service/models"
)

type phaseName struct {
	en, uk string
}

// phases are 45 degree bands of elongation centred on the principal phases
var phases = [8]phaseName{
	{"New Moon", "Молодик"},
	{"Waxing Crescent", "Молодий місяць"},
	{"First Quarter", "Перша чверть"},
	{"Waxing Gibbous", "Зростаючий місяць"},
	{"Full Moon", "Повня"},
	{"Waning Gibbous", "Спадний місяць"},
	{"Last Quarter", "Остання чверть"},
	{"Waning Crescent", "Старий місяць"},
}

// Phase derives the lunar phase from the Sun and Moon longitudes
func Phase(sunLon, moonLon float64) models.MoonPhase {
	elongation := aspects.NormalizeLongitude(moonLon - sunLon)
	idx := int(math.Floor((elongation+22.5)/45)) % 8
	return models.MoonPhase{
		Name:         phases[idx].en,
		NameUK:       phases[idx].uk,
		Elongation:   elongation,
		Illumination: (1 - math.Cos(elongation*math.Pi/180)) / 2,
		Waxing:       elongation < 180,
	}
}
