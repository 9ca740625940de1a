package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRequestTimeout  = 10 * time.Second
	defaultAvailabilityTTL = 60 * time.Second

	availabilityKeyPrefix = "availability:"
)

// Cache is the availability cache surface. Satisfied by redis; Get must
// return an error on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type redisCache struct {
	client *redis.Client
}

func (r redisCache) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r redisCache) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Client talks to the external scheduling service over its REST API.
// Availability lookups go through a short-lived redis cache so repeated
// checks inside one conversation do not hammer the upstream; bookings,
// reschedules and cancellations invalidate the affected date.
type Client struct {
	baseURL string
	http    *http.Client
	cache   Cache
	ttl     time.Duration
	log     *slog.Logger
}

func NewClient(cfg Config, redisClient *redis.Client, log *slog.Logger) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = defaultAvailabilityTTL
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		ttl:     cfg.AvailabilityTTL,
		log:     log.With("component", "scheduling"),
	}
	if redisClient != nil {
		c.cache = redisCache{client: redisClient}
	}
	return c
}

// Availability returns the open slots for date (YYYY-MM-DD), served from
// cache when a fresh entry exists.
func (c *Client) Availability(ctx context.Context, date string) (*Availability, error) {
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, availabilityKeyPrefix+date); err == nil {
			var avail Availability
			if err := json.Unmarshal([]byte(cached), &avail); err == nil {
				return &avail, nil
			}
		}
	}

	var avail Availability
	endpoint := fmt.Sprintf("/api/availability?date=%s", url.QueryEscape(date))
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &avail); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if raw, err := json.Marshal(avail); err == nil {
			if err := c.cache.Set(ctx, availabilityKeyPrefix+date, string(raw), c.ttl); err != nil {
				c.log.Warn("availability cache write failed", "date", date, "error", err)
			}
		}
	}
	return &avail, nil
}

// CreateAppointment books a slot and invalidates the cached availability
// for that date.
func (c *Client) CreateAppointment(ctx context.Context, req AppointmentRequest) (*Appointment, error) {
	var appt Appointment
	if err := c.do(ctx, http.MethodPost, "/api/appointments", req, &appt); err != nil {
		return nil, err
	}
	c.invalidate(ctx, req.AppointmentDate)
	return &appt, nil
}

// AppointmentsByPhone returns every appointment booked under phone.
func (c *Client) AppointmentsByPhone(ctx context.Context, phone string) ([]Appointment, error) {
	var appts []Appointment
	endpoint := "/api/appointments/by-phone/" + url.PathEscape(phone)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &appts); err != nil {
		return nil, err
	}
	return appts, nil
}

// CancelAppointment deletes an appointment by id. date, when known, lets
// the client invalidate that date's cached availability.
func (c *Client) CancelAppointment(ctx context.Context, id, date string) error {
	endpoint := "/api/appointments/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return err
	}
	if date != "" {
		c.invalidate(ctx, date)
	}
	return nil
}

// ModifyAppointment reschedules or annotates an existing appointment and
// invalidates the cached availability for the new date.
func (c *Client) ModifyAppointment(ctx context.Context, id string, update AppointmentUpdate) (*Appointment, error) {
	var appt Appointment
	endpoint := "/api/appointments/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPut, endpoint, update, &appt); err != nil {
		return nil, err
	}
	c.invalidate(ctx, update.AppointmentDate)
	return &appt, nil
}

// ServiceQuote asks the scheduling service to price a move.
func (c *Client) ServiceQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	var quote Quote
	if err := c.do(ctx, http.MethodPost, "/api/quotes", req, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

func (c *Client) invalidate(ctx context.Context, date string) {
	if c.cache == nil || date == "" {
		return
	}
	if err := c.cache.Del(ctx, availabilityKeyPrefix+date); err != nil {
		c.log.Warn("availability cache invalidation failed", "date", date, "error", err)
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("scheduling request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("scheduling service returned %d: %s", resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
