// Package strava finds segments through the Strava API.
package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-polyline"

	"github.com/colinandrus/StravaRouter/config"
	"github.com/colinandrus/StravaRouter/network"
	"github.com/colinandrus/StravaRouter/routing"
)

const (
	DefaultBaseURL = "https://www.strava.com/api/v3"
	DefaultAuthURL = "https://www.strava.com/oauth/token"

	// Tokens are refreshed this long before Strava says they expire.
	tokenExpiryMargin = 60 * time.Second
)

var ErrNotConfigured = errors.New("strava credentials are not configured")

type Config struct {
	ClientID     string
	ClientSecret config.Secret
	RefreshToken config.Secret
	BaseURL      string
	AuthURL      string
	ActivityType string
	HTTPClient   *http.Client
}

// Client holds credentials and the cached access token. It is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	log  logrus.FieldLogger
	now  func() time.Time

	mu           sync.Mutex
	accessToken  string
	expiresAt    time.Time
	refreshToken string
}

func NewClient(cfg Config, log logrus.FieldLogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.ActivityType == "" {
		cfg.ActivityType = "running"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		cfg:          cfg,
		http:         httpClient,
		log:          log,
		now:          time.Now,
		refreshToken: cfg.RefreshToken.Value(),
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// AccessToken returns a valid bearer token, exchanging the refresh token when the cached
// one is missing or about to expire.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.cfg.ClientID == "" || c.cfg.ClientSecret.Value() == "" {
		return "", ErrNotConfigured
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Add(tokenExpiryMargin).Before(c.expiresAt) {
		return c.accessToken, nil
	}
	if c.refreshToken == "" {
		return "", ErrNotConfigured
	}

	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret.Value()},
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.refreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok tokenResponse
	if err := c.do(req, &tok); err != nil {
		return "", fmt.Errorf("refreshing strava token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("refreshing strava token: response has no access_token")
	}

	c.accessToken = tok.AccessToken
	if tok.ExpiresAt > 0 {
		c.expiresAt = time.Unix(tok.ExpiresAt, 0)
	} else {
		c.expiresAt = c.now().Add(time.Hour)
	}
	if tok.RefreshToken != "" && tok.RefreshToken != c.refreshToken {
		c.log.Info("Strava rotated the refresh token")
		c.refreshToken = tok.RefreshToken
	}
	c.log.WithField("expires_at", c.expiresAt.Format(time.RFC3339)).Debug("Obtained Strava access token")
	return c.accessToken, nil
}

type exploreResponse struct {
	Segments []exploreSegment `json:"segments"`
}

type exploreSegment struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Points      string    `json:"points"`
	Distance    float64   `json:"distance"`
	AvgGrade    float64   `json:"avg_grade"`
	StartLatLng []float64 `json:"start_latlng"`
	EndLatLng   []float64 `json:"end_latlng"`
}

// ExploreSegments lists the segments inside bounds and decodes their polylines.
func (c *Client) ExploreSegments(ctx context.Context, bounds routing.Bounds) ([]routing.Segment, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	box := network.BoxBounds(bounds)
	params := url.Values{
		"bounds":        {fmt.Sprintf("%s,%s,%s,%s", ftoa(box.Min.Lat()), ftoa(box.Min.Lon()), ftoa(box.Max.Lat()), ftoa(box.Max.Lon()))},
		"activity_type": {c.cfg.ActivityType},
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/segments/explore?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building explore request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var resp exploreResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("exploring strava segments: %w", err)
	}

	segments := make([]routing.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		points, err := DecodePolyline(s.Points)
		if err != nil {
			c.log.WithError(err).WithField("segment", s.ID).Warn("Skipping segment with invalid polyline")
			continue
		}
		segments = append(segments, routing.Segment{
			ID:     routing.SegmentID(strconv.FormatInt(s.ID, 10)),
			Name:   s.Name,
			Points: points,
		})
	}
	c.log.WithField("segments", len(segments)).Info("Fetched segments from Strava")
	return segments, nil
}

// DecodePolyline decodes a Google encoded polyline into coordinates.
func DecodePolyline(encoded string) ([]routing.Coordinate, error) {
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("trailing data after polyline: %q", rest)
	}
	points := make([]routing.Coordinate, 0, len(coords))
	for _, c := range coords {
		points = append(points, routing.Coordinate{Lat: c[0], Lon: c[1]})
	}
	return points, nil
}

// StatusError is returned for non-2xx Strava responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("strava returned status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
