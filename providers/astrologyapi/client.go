package astrologyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"astro-service/datasource"
	"astro-service/logger"
	"astro-service/models"

	"github.com/sirupsen/logrus"
)

// Client talks to the external astrology SDK over its JSON API
type Client struct {
	userID     string
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

// Ensure Client implements both source interfaces
var (
	_ datasource.ChartSource     = (*Client)(nil)
	_ datasource.HoroscopeSource = (*Client)(nil)
)

// NewClient creates a new SDK client
func NewClient(baseURL, userID, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		userID:   userID,
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: "uk",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return "AstrologyAPI"
}

// birthRequest is the request body shared by chart endpoints
type birthRequest struct {
	Day   int     `json:"day"`
	Month int     `json:"month"`
	Year  int     `json:"year"`
	Hour  int     `json:"hour"`
	Min   int     `json:"min"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	TZone float64 `json:"tzone"`
}

// planetResponse is one entry of the planets endpoint
type planetResponse struct {
	Name       string  `json:"name"`
	FullDegree float64 `json:"fullDegree"`
	Speed      float64 `json:"speed"`
	IsRetro    string  `json:"isRetro"`
}

// dailyResponse is the body of the daily sun sign prediction endpoint
type dailyResponse struct {
	SunSign        string            `json:"sun_sign"`
	PredictionDate string            `json:"prediction_date"`
	Prediction     map[string]string `json:"prediction"`
}

// predictionSections fixes the order sections are joined in
var predictionSections = []string{"personal_life", "profession", "health", "emotions", "travel", "luck"}

// FetchPlanets gets the tropical planet positions for a birth moment
func (c *Client) FetchPlanets(ctx context.Context, birth models.BirthData) ([]models.PlanetPosition, error) {
	local := birth.Time
	_, offset := local.Zone()
	body := birthRequest{
		Day:   local.Day(),
		Month: int(local.Month()),
		Year:  local.Year(),
		Hour:  local.Hour(),
		Min:   local.Minute(),
		Lat:   birth.Latitude,
		Lon:   birth.Longitude,
		TZone: float64(offset) / 3600,
	}

	var raw []planetResponse
	if err := c.post(ctx, "planets", "/planets/tropical", body, &raw); err != nil {
		return nil, err
	}

	positions := make([]models.PlanetPosition, 0, len(models.Planets))
	for _, item := range raw {
		planet, ok := models.ParsePlanet(item.Name)
		if !ok {
			// Ascendant, nodes and other points are not tracked
			continue
		}
		retro := item.Speed < 0
		if item.IsRetro != "" {
			retro = strings.EqualFold(item.IsRetro, "true")
		}
		positions = append(positions, models.PlanetPosition{
			Name:       planet,
			Longitude:  item.FullDegree,
			Speed:      item.Speed,
			Retrograde: retro,
		})
	}
	if len(positions) == 0 {
		return nil, &datasource.SDKError{Provider: c.Name(), Op: "planets", Err: datasource.ErrUnknownPlanet}
	}
	return positions, nil
}

// FetchDaily gets the daily prediction for a sun sign
func (c *Client) FetchDaily(ctx context.Context, sign models.ZodiacSign, date string) (models.Horoscope, error) {
	path := "/sun_sign_prediction/daily/" + strings.ToLower(sign.String())
	body := map[string]string{"date": date}

	var raw dailyResponse
	if err := c.post(ctx, "daily horoscope", path, body, &raw); err != nil {
		return models.Horoscope{}, err
	}

	parts := make([]string, 0, len(predictionSections))
	for _, key := range predictionSections {
		if text := strings.TrimSpace(raw.Prediction[key]); text != "" {
			parts = append(parts, text)
		}
	}

	return models.Horoscope{
		Sign:       sign,
		Date:       date,
		Prediction: strings.Join(parts, "\n\n"),
		Provider:   c.Name(),
		Updated:    time.Now(),
	}, nil
}

// post sends a JSON request and decodes the JSON response into out
func (c *Client) post(ctx context.Context, op, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return &datasource.SDKError{Provider: c.Name(), Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	endpoint := c.baseURL + path
	logger.Log.WithFields(logrus.Fields{"provider": c.Name(), "op": op}).Debugf("Making request to: %s", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &datasource.SDKError{Provider: c.Name(), Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.SetBasicAuth(c.userID, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", c.language)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &datasource.SDKError{Provider: c.Name(), Op: op, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	rawData, err := io.ReadAll(resp.Body)
	if err != nil {
		return &datasource.SDKError{Provider: c.Name(), Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return &datasource.SDKError{Provider: c.Name(), Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("API error: %s", strings.TrimSpace(string(rawData)))}
	}

	if err := json.Unmarshal(rawData, out); err != nil {
		return &datasource.SDKError{Provider: c.Name(), Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse API response: %w", err)}
	}
	return nil
}
