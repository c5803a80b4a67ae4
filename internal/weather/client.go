package weather

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"codeberg.org/mutker/hostwatch/internal/errors"
	"codeberg.org/mutker/hostwatch/internal/logger"
	"codeberg.org/mutker/hostwatch/internal/reading"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultEndpoint = "https://api.open-meteo.com"
	DefaultTimeout  = 3 * time.Second

	forecastPath  = "/v1/forecast"
	currentFields = "temperature_2m,relative_humidity_2m,weather_code"
)

type Config struct {
	Endpoint  string
	APIKey    string
	Latitude  float64
	Longitude float64
	// Timeout bounds the whole lookup, connection included.
	Timeout time.Duration
}

// Client fetches current conditions from an Open-Meteo compatible API.
type Client struct {
	cfg  Config
	http *resty.Client
}

type forecastResponse struct {
	Current *struct {
		Temperature *float64 `json:"temperature_2m"`
		Humidity    *float64 `json:"relative_humidity_2m"`
		WeatherCode *int     `json:"weather_code"`
	} `json:"current"`
}

func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	http := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{cfg: cfg, http: http}
}

// Fetch performs one lookup. Cancelling ctx does not abort a request in
// flight; the lookup is bounded by the configured timeout instead.
func (c *Client) Fetch(ctx context.Context) (snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			logFailure(errors.New().WithData(ErrPanic, fmt.Sprint(r)))
			snap = Failed()
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
	defer cancel()

	snap, err := c.fetch(ctx)
	if err != nil {
		logFailure(err)
		return Failed()
	}

	return snap
}

func (c *Client) fetch(ctx context.Context) (Snapshot, errors.Error) {
	errFactory := errors.New()

	params := map[string]string{
		"latitude":  strconv.FormatFloat(c.cfg.Latitude, 'f', -1, 64),
		"longitude": strconv.FormatFloat(c.cfg.Longitude, 'f', -1, 64),
		"current":   currentFields,
	}
	if c.cfg.APIKey != "" {
		params["apikey"] = c.cfg.APIKey
	}

	var body forecastResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&body).
		Get(forecastPath)
	if err != nil {
		return Snapshot{}, errFactory.Wrap(ErrRequestFailed, err)
	}

	if resp.IsError() {
		return Snapshot{}, errFactory.WithData(ErrBadStatus, resp.StatusCode())
	}

	cur := body.Current
	if cur == nil || cur.Temperature == nil || cur.Humidity == nil || cur.WeatherCode == nil {
		return Snapshot{}, errFactory.WithMessage(ErrInvalidPayload, "response is missing current conditions")
	}

	condition, ok := ConditionFor(*cur.WeatherCode)
	if !ok {
		condition = "Unknown (" + strconv.Itoa(*cur.WeatherCode) + ")"
	}

	return Snapshot{
		Temperature: reading.Of(*cur.Temperature),
		Humidity:    reading.Of(*cur.Humidity),
		Condition:   reading.Of(condition),
	}, nil
}

func logFailure(err errors.Error) {
	logger.WarnWithCode(err).Msg("Weather lookup failed")
}
