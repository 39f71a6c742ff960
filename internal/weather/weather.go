// internal/weather/weather.go
package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const defaultBaseURL = "http://api.weatherapi.com/v1"

// Service fetches multi-day forecasts from weatherapi.com. Failures are
// opaque to the rest of the bot; callers reply with a fixed apology.
type Service struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

func NewService(apiKey string) *Service {
	return &Service{
		client:  &http.Client{},
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
	}
}

// NewServiceWithBaseURL points the service at an alternate endpoint.
func NewServiceWithBaseURL(apiKey, baseURL string) *Service {
	s := NewService(apiKey)
	s.baseURL = strings.TrimRight(baseURL, "/")
	return s
}

// Forecast returns a rendered forecast for the location, one line per
// day.
func (s *Service) Forecast(ctx context.Context, location string, days int) (string, error) {
	query := url.Values{}
	query.Set("key", s.apiKey)
	query.Set("q", location)
	query.Set("days", fmt.Sprint(days))
	query.Set("aqi", "no")
	query.Set("alerts", "no")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/forecast.json?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build forecast request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch forecast: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read forecast response: %w", err)
	}

	data := gjson.ParseBytes(body)
	locationName := data.Get("location.name").String()
	if locationName == "" {
		return "", fmt.Errorf("location %q not found", location)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weather forecast for %s:\n", locationName)
	for _, day := range data.Get("forecast.forecastday").Array() {
		fmt.Fprintf(&b, "%s: %s°C, %s\n",
			day.Get("date").String(),
			day.Get("day.avgtemp_c").String(),
			day.Get("day.condition.text").String(),
		)
	}
	return b.String(), nil
}
