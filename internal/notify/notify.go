// Package notify sends sniper job outcome emails through the Resend API.
// Delivery is best-effort: an unconfigured or failing notifier reports
// false and never disturbs job state.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/resy-sniper/internal/config"
	"github.com/example/resy-sniper/internal/snipe"
)

const defaultBaseURL = "https://api.resend.com"

type EmailNotifier struct {
	hc     *http.Client
	log    *zap.Logger
	apiKey string
	from   string
	to     string
	base   string
}

var _ snipe.Notifier = (*EmailNotifier)(nil)

func New(cfg config.Config, log *zap.Logger) *EmailNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &EmailNotifier{
		hc:     &http.Client{Timeout: 15 * time.Second},
		log:    log,
		apiKey: cfg.ResendAPIKey,
		from:   cfg.EmailFrom,
		to:     cfg.EmailTo,
		base:   defaultBaseURL,
	}
}

func (n *EmailNotifier) Configured() bool {
	return n.apiKey != "" && n.from != "" && n.to != ""
}

func (n *EmailNotifier) NotifySuccess(ctx context.Context, job snipe.Job, outcome snipe.BookingOutcome) bool {
	if !n.Configured() {
		n.log.Info("email not configured, skipping success notification")
		return false
	}
	subject := fmt.Sprintf("Reservation Booked: %s on %s", job.VenueSlug, job.Date)
	return n.send(ctx, subject, formatSuccess(job, outcome))
}

func (n *EmailNotifier) NotifyFailure(ctx context.Context, job snipe.Job, reason string) bool {
	if !n.Configured() {
		n.log.Info("email not configured, skipping failure notification")
		return false
	}
	subject := fmt.Sprintf("Sniper Failed: %s on %s", job.VenueSlug, job.Date)
	return n.send(ctx, subject, formatFailure(job, reason))
}

func (n *EmailNotifier) send(ctx context.Context, subject, body string) bool {
	payload, err := json.Marshal(struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		Text    string   `json:"text"`
	}{From: n.from, To: []string{n.to}, Subject: subject, Text: body})
	if err != nil {
		n.log.Warn("notification marshal failed", zap.Error(err))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.base+"/emails", bytes.NewReader(payload))
	if err != nil {
		n.log.Warn("notification request failed", zap.Error(err))
		return false
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("authorization", "Bearer "+n.apiKey)

	resp, err := n.hc.Do(req)
	if err != nil {
		n.log.Warn("notification send failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		n.log.Warn("notification rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(b)))
		return false
	}
	n.log.Info("notification sent", zap.String("subject", subject))
	return true
}

func formatSuccess(job snipe.Job, outcome snipe.BookingOutcome) string {
	timeSlot := orNA(outcome.TimeSlot)
	confirmation := orNA(outcome.ConfirmationID)
	preferred := strings.Join(job.PreferredTimes, ", ")

	return fmt.Sprintf(`# Reservation Sniped Successfully!

## Booking Details

- **Restaurant:** %s
- **Date:** %s
- **Time:** %s
- **Party Size:** %d
- **Confirmation:** %s

## Sniper Stats

- **Preferred Times:** %s
- **Attempts Used:** %d / %d

---
*Booked automatically by Reservation Sniper*
`, job.VenueSlug, job.Date, timeSlot, job.PartySize, confirmation, preferred, job.PollCount, job.MaxAttempts)
}

func formatFailure(job snipe.Job, reason string) string {
	preferred := strings.Join(job.PreferredTimes, ", ")

	return fmt.Sprintf(`# Sniper Job Failed

## Details

- **Restaurant:** %s
- **Date:** %s
- **Preferred Times:** %s
- **Party Size:** %d

## Failure Reason

%s

## Stats

- **Attempts Made:** %d / %d

---
*Reservation Sniper*
`, job.VenueSlug, job.Date, preferred, job.PartySize, reason, job.PollCount, job.MaxAttempts)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
