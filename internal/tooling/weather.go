package tooling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"ghbridge/internal/domain"
	"ghbridge/internal/schema"
)

// WeatherInput is the input structure for the weather lookup tool.
type WeatherInput struct {
	City    string `json:"city" jsonschema:"description=Name of the city"`
	Country string `json:"country,omitempty" jsonschema:"description=Country name or code (default US)"`
}

// WeatherTool looks up current conditions via OpenWeatherMap. With no API
// key configured it returns clearly-labelled mock data so the tool stays
// usable in local setups.
type WeatherTool struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// defaultWeatherURL is the OpenWeatherMap current-weather endpoint.
const defaultWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// NewWeatherTool builds the tool. apiKey may be empty (mock mode).
func NewWeatherTool(apiKey string) *WeatherTool {
	return &WeatherTool{
		apiKey:  apiKey,
		baseURL: defaultWeatherURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (w *WeatherTool) Name() string { return "get_weather" }

func (w *WeatherTool) Description() string {
	return "Get current weather information for a specified city and country"
}

func (w *WeatherTool) Definition() string {
	return schema.Generate(WeatherInput{})
}

// weatherResponse is the subset of the OpenWeatherMap payload we report.
type weatherResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

func (w *WeatherTool) Call(ctx context.Context, _ string, args json.RawMessage) (*domain.ToolResult, error) {
	var input WeatherInput
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	if input.Country == "" {
		input.Country = "US"
	}

	if w.apiKey == "" {
		return &domain.ToolResult{
			Data: fmt.Sprintf(
				"Mock weather data for %s, %s: 22°C, partly cloudy, humidity 65%%. Configure a weather API key for real data.",
				input.City, input.Country),
			Metadata: map[string]string{"mock": "true"},
		}, nil
	}

	q := url.Values{}
	q.Set("q", input.City+","+input.Country)
	q.Set("appid", w.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("city %q in %q not found", input.City, input.Country)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("weather API returned HTTP %d", resp.StatusCode)
	}

	var body weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("weather response decode failed: %w", err)
	}
	desc := ""
	if len(body.Weather) > 0 {
		desc = body.Weather[0].Description
	}

	return &domain.ToolResult{
		Data: fmt.Sprintf("Weather in %s, %s: %.1f°C (feels like %.1f°C), %s, humidity %d%%",
			input.City, input.Country, body.Main.Temp, body.Main.FeelsLike, desc, body.Main.Humidity),
	}, nil
}
