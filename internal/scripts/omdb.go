package scripts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/flemzord/sbot/internal/bot"
)

// DefaultOMDbURL is the public film lookup endpoint.
const DefaultOMDbURL = "http://www.omdbapi.com/"

type film struct {
	Response string `json:"Response"`
	Title    string `json:"Title"`
	Year     string `json:"Year"`
	Awards   string `json:"Awards"`
}

type omdbClient struct {
	baseURL string
	http    *http.Client
}

func (c *omdbClient) lookup(ctx context.Context, title, apiKey string) (film, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return film{}, fmt.Errorf("omdb: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("t", title)
	q.Set("apikey", apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return film{}, fmt.Errorf("omdb: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return film{}, fmt.Errorf("omdb: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return film{}, fmt.Errorf("omdb: unexpected status %d", resp.StatusCode)
	}

	var f film
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return film{}, fmt.Errorf("omdb: decode: %w", err)
	}
	return f, nil
}

// awards answers "<title> awards?" with the film's awards.
func (c *omdbClient) awards(ctx context.Context, s *bot.State) error {
	apiKey := s.Settings.String(SettingOMDbAPIKey)
	if apiKey == "" {
		s.Respond("Sorry, you need an API key for omdbapi.com")
		return nil
	}

	f, err := c.lookup(ctx, s.Value(""), apiKey)
	if err != nil {
		return err
	}

	switch {
	case f.Response != "True":
		s.Respond("Can't find any film by that name.")
	case f.Awards == "N/A":
		s.Respond(fmt.Sprintf("%s (%s): Won no awards.", f.Title, f.Year))
	default:
		s.Respond(fmt.Sprintf("%s (%s): %s", f.Title, f.Year, f.Awards))
	}
	return nil
}
