// Package resy implements the reservation provider against the Resy API,
// following the request flow used by lgrees/resy-cli: find slots, fetch a
// book token from details, then book. It requires an API key and auth
// token captured from an authenticated browser session.
package resy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/resy-sniper/internal/snipe"
)

const defaultBaseURL = "https://api.resy.com"

type Credentials struct {
	APIKey          string
	AuthToken       string
	PaymentMethodID string
}

type Client struct {
	hc    *http.Client
	creds Credentials
	log   *zap.Logger
	base  string
}

func New(creds Credentials, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		hc:    &http.Client{Timeout: 10 * time.Second},
		creds: creds,
		log:   log,
		base:  defaultBaseURL,
	}
}

func (c *Client) Name() string { return "resy" }

func (c *Client) Close() error { return nil }

type findResponse struct {
	Results struct {
		Venues []struct {
			Venue struct {
				Name string `json:"name"`
			} `json:"venue"`
			Slots []struct {
				Date struct {
					Start string `json:"start"`
				} `json:"date"`
				Config struct {
					Type  string `json:"type"`
					Token string `json:"token"`
				} `json:"config"`
			} `json:"slots"`
		} `json:"venues"`
	} `json:"results"`
}

// ListAvailability fetches bookable slots for a venue and date. An empty
// result is not an error; only transport and decode failures are.
func (c *Client) ListAvailability(ctx context.Context, venueID, date string, partySize int) ([]snipe.Slot, error) {
	params := map[string]string{
		"party_size": strconv.Itoa(partySize),
		"venue_id":   venueID,
		"day":        date,
		// deprecated but seemingly required by the find endpoint
		"lat":  "0",
		"long": "0",
	}
	status, body, err := c.do(ctx, http.MethodGet, "/4/find", "", params, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("resy find failed (status=%d)", status)
	}

	var res findResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("resy find parse: %w", err)
	}

	var out []snipe.Slot
	for _, v := range res.Results.Venues {
		for _, s := range v.Slots {
			timeText, ok := slotTimeText(s.Date.Start)
			if !ok {
				continue
			}
			out = append(out, snipe.Slot{
				Time:      timeText,
				ConfigID:  s.Config.Token,
				Type:      slotType(s.Config.Type),
				TableName: s.Config.Type,
				VenueName: v.Venue.Name,
			})
		}
	}
	c.log.Debug("resy availability",
		zap.String("venue", venueID),
		zap.String("date", date),
		zap.Int("slots", len(out)))
	return out, nil
}

// slotTimeText converts "2026-03-01 19:00:00" to "7:00 PM".
func slotTimeText(start string) (string, bool) {
	t, err := time.Parse("2006-01-02 15:04:05", start)
	if err != nil {
		return "", false
	}
	return t.Format("3:04 PM"), true
}

func slotType(configType string) string {
	if strings.Contains(strings.ToLower(configType), "event") {
		return snipe.SlotTypeEvent
	}
	return "standard"
}

type detailsResponse struct {
	BookToken struct {
		Value string `json:"value"`
	} `json:"book_token"`
	User struct {
		PaymentMethods []struct {
			ID int64 `json:"id"`
		} `json:"payment_methods"`
	} `json:"user"`
}

type bookResponse struct {
	ReservationID json.Number `json:"reservation_id"`
	ResyToken     string      `json:"resy_token"`
	Message       string      `json:"message"`
}

// AttemptBooking books a specific slot by its config token. HTTP 412
// signals a collision with an existing reservation and maps to the
// conflict status rather than an error.
func (c *Client) AttemptBooking(ctx context.Context, handle, date string, partySize int) (snipe.BookingResult, error) {
	payload, err := json.Marshal(struct {
		ConfigID  string `json:"config_id"`
		Day       string `json:"day"`
		PartySize int64  `json:"party_size"`
	}{ConfigID: handle, Day: date, PartySize: int64(partySize)})
	if err != nil {
		return snipe.BookingResult{}, err
	}

	status, body, err := c.do(ctx, http.MethodPost, "/3/details", "application/json", nil, payload)
	if err != nil {
		return snipe.BookingResult{}, err
	}
	if status >= 400 {
		return snipe.BookingResult{Error: fmt.Sprintf("failed to get booking details (status=%d)", status)}, nil
	}
	var details detailsResponse
	if err := json.Unmarshal(body, &details); err != nil {
		return snipe.BookingResult{}, fmt.Errorf("resy details parse: %w", err)
	}
	if details.BookToken.Value == "" {
		return snipe.BookingResult{Error: "no booking token available"}, nil
	}

	form := "book_token=" + url.QueryEscape(details.BookToken.Value)
	if pm := c.paymentMethod(details); pm != "" {
		form += "&struct_payment_method=" + url.QueryEscape(pm)
	}

	status, body, err = c.do(ctx, http.MethodPost, "/3/book", "application/x-www-form-urlencoded", nil, []byte(form))
	if err != nil {
		return snipe.BookingResult{}, err
	}
	if status == http.StatusPreconditionFailed {
		return snipe.BookingResult{Status: snipe.BookingStatusConflict, Error: "existing reservation conflicts with this booking"}, nil
	}
	if status >= 400 {
		var br bookResponse
		_ = json.Unmarshal(body, &br)
		if br.Message != "" {
			return snipe.BookingResult{Error: fmt.Sprintf("booking failed: %s (status=%d)", br.Message, status)}, nil
		}
		return snipe.BookingResult{Error: fmt.Sprintf("booking failed (status=%d)", status)}, nil
	}

	var br bookResponse
	if err := json.Unmarshal(body, &br); err != nil {
		return snipe.BookingResult{}, fmt.Errorf("resy book parse: %w", err)
	}
	return snipe.BookingResult{
		Success:           true,
		ConfirmationID:    br.ReservationID.String(),
		ConfirmationToken: br.ResyToken,
	}, nil
}

func (c *Client) paymentMethod(details detailsResponse) string {
	if c.creds.PaymentMethodID != "" {
		return fmt.Sprintf(`{"id":%s}`, c.creds.PaymentMethodID)
	}
	if len(details.User.PaymentMethods) > 0 {
		return fmt.Sprintf(`{"id":%d}`, details.User.PaymentMethods[0].ID)
	}
	return ""
}

type reservationsResponse struct {
	Reservations []struct {
		ResyToken string `json:"resy_token"`
		Day       string `json:"day"`
		Venue     struct {
			Name string `json:"name"`
		} `json:"venue"`
	} `json:"reservations"`
}

// ResolveConflict handles an existing-reservation collision. With
// ChoiceContinue the conflicting reservation on the same day is cancelled
// and the booking is retried; ChoiceKeep aborts the new booking.
func (c *Client) ResolveConflict(ctx context.Context, choice snipe.ConflictChoice, handle, date string, partySize int, venueID, timeText string) (snipe.BookingResult, error) {
	switch choice {
	case snipe.ChoiceKeep:
		return snipe.BookingResult{Error: "kept existing reservation"}, nil
	case snipe.ChoiceContinue:
	default:
		return snipe.BookingResult{}, fmt.Errorf("invalid conflict choice %q", choice)
	}

	status, body, err := c.do(ctx, http.MethodGet, "/3/user/reservations", "", nil, nil)
	if err != nil {
		return snipe.BookingResult{}, err
	}
	if status >= 400 {
		return snipe.BookingResult{}, fmt.Errorf("failed to list reservations (status=%d)", status)
	}
	var res reservationsResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return snipe.BookingResult{}, fmt.Errorf("resy reservations parse: %w", err)
	}

	var token string
	for _, r := range res.Reservations {
		if r.Day == date {
			token = r.ResyToken
			break
		}
	}
	if token == "" {
		return snipe.BookingResult{Error: "no conflicting reservation found to cancel"}, nil
	}

	payload, _ := json.Marshal(struct {
		ResyToken string `json:"resy_token"`
	}{ResyToken: token})
	status, _, err = c.do(ctx, http.MethodPost, "/3/cancel", "application/json", nil, payload)
	if err != nil {
		return snipe.BookingResult{}, err
	}
	if status >= 400 {
		return snipe.BookingResult{}, fmt.Errorf("failed to cancel conflicting reservation (status=%d)", status)
	}
	c.log.Info("cancelled conflicting reservation",
		zap.String("venue", venueID),
		zap.String("date", date),
		zap.String("time", timeText))

	return c.AttemptBooking(ctx, handle, date, partySize)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, query map[string]string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Add("user-agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Add("origin", "https://resy.com")
	req.Header.Add("referrer", "https://resy.com")
	req.Header.Add("x-origin", "https://resy.com")
	req.Header.Add("cache-control", "no-cache")
	if contentType != "" {
		req.Header.Add("content-type", contentType)
	}
	req.Header.Add("authorization", fmt.Sprintf(`ResyAPI api_key="%s"`, c.creds.APIKey))
	req.Header.Add("x-resy-auth-token", c.creds.AuthToken)
	req.Header.Add("x-resy-universal-auth", c.creds.AuthToken)

	if query != nil {
		q := req.URL.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, b, nil
}
