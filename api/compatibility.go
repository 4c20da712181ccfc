package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"astro-service/aspects"
	"astro-service/models"

	"golang.org/x/sync/errgroup"
)

// personRequest describes one partner by birth data or by explicit positions.
// Positions win when both are given.
type personRequest struct {
	Name      string                  `json:"name"`
	Birth     *models.BirthData       `json:"birth,omitempty"`
	Positions []models.PlanetPosition `json:"positions,omitempty"`
}

type compatibilityRequest struct {
	Person1 personRequest `json:"person1"`
	Person2 personRequest `json:"person2"`
}

// handleCompatibility casts both charts and scores their synastry
func (s *Server) handleCompatibility(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	s.deps.Counter.Record("compatibility")

	var req compatibilityRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, badRequest("invalid request body: %v", err))
		return
	}

	people := []personRequest{req.Person1, req.Person2}
	resolved := make([]aspects.Person, len(people))
	for i, p := range people {
		resolved[i] = aspects.Person{Name: p.Name, Positions: p.Positions}
		if resolved[i].Name == "" {
			resolved[i].Name = fmt.Sprintf("person%d", i+1)
		}
		if len(p.Positions) == 0 && p.Birth == nil {
			writeError(w, r, badRequest("%s: birth or positions required", resolved[i].Name))
			return
		}
	}

	g, ctx := errgroup.WithContext(r.Context())
	for i, p := range people {
		if len(p.Positions) > 0 {
			continue
		}
		i, birth := i, *p.Birth
		g.Go(func() error {
			positions, err := s.fetchChart(ctx, birth)
			if err != nil {
				return err
			}
			resolved[i].Positions = positions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := aspects.Compatibility(resolved[0], resolved[1])
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	writeJSON(w, http.StatusOK, result)
}

// fetchChart asks the configured chart source for a birth moment
func (s *Server) fetchChart(ctx context.Context, birth models.BirthData) ([]models.PlanetPosition, error) {
	if birth.Time.IsZero() {
		return nil, badRequest("birth time required")
	}
	if birth.Latitude < -90 || birth.Latitude > 90 || birth.Longitude < -180 || birth.Longitude > 180 {
		return nil, badRequest("birth coordinates out of range")
	}
	if s.deps.Charts == nil {
		return nil, fmt.Errorf("no chart source configured")
	}
	return s.deps.Charts.FetchPlanets(ctx, birth)
}
