package resy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/resy-sniper/internal/snipe"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Credentials{APIKey: "key", AuthToken: "token"}, nil)
	c.base = srv.URL
	return c
}

const findBody = `{
  "results": {
    "venues": [
      {
        "venue": {"name": "Fish Cheeks"},
        "slots": [
          {"date": {"start": "2026-03-14 18:00:00"}, "config": {"type": "Dining Room", "token": "cfg-600"}},
          {"date": {"start": "2026-03-14 19:30:00"}, "config": {"type": "Dining Room", "token": "cfg-730"}},
          {"date": {"start": "2026-03-14 20:00:00"}, "config": {"type": "Wine Event", "token": "cfg-evt"}},
          {"date": {"start": "not-a-time"}, "config": {"type": "Dining Room", "token": "cfg-bad"}}
        ]
      }
    ]
  }
}`

func TestListAvailability(t *testing.T) {
	var query url.Values
	var auth string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/4/find", r.URL.Path)
		query = r.URL.Query()
		auth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, findBody)
	}))

	slots, err := c.ListAvailability(context.Background(), "12345", "2026-03-14", 2)
	require.NoError(t, err)

	assert.Equal(t, "2", query.Get("party_size"))
	assert.Equal(t, "12345", query.Get("venue_id"))
	assert.Equal(t, "2026-03-14", query.Get("day"))
	assert.Equal(t, `ResyAPI api_key="key"`, auth)

	// the unparseable start time is dropped
	require.Len(t, slots, 3)
	assert.Equal(t, snipe.Slot{
		Time:      "6:00 PM",
		ConfigID:  "cfg-600",
		Type:      "standard",
		TableName: "Dining Room",
		VenueName: "Fish Cheeks",
	}, slots[0])
	assert.Equal(t, "7:30 PM", slots[1].Time)
	assert.Equal(t, snipe.SlotTypeEvent, slots[2].Type)
}

func TestListAvailabilityEmpty(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"results":{"venues":[]}}`)
	}))

	slots, err := c.ListAvailability(context.Background(), "12345", "2026-03-14", 2)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestListAvailabilityUpstreamError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.ListAvailability(context.Background(), "12345", "2026-03-14", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=500")
}

func TestAttemptBookingSuccess(t *testing.T) {
	var bookForm url.Values
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/3/details":
			_, _ = io.WriteString(w, `{
				"book_token": {"value": "bt-1"},
				"user": {"payment_methods": [{"id": 42}]}
			}`)
		case "/3/book":
			body, _ := io.ReadAll(r.Body)
			var err error
			bookForm, err = url.ParseQuery(string(body))
			require.NoError(t, err)
			_, _ = io.WriteString(w, `{"reservation_id": 998877, "resy_token": "rt-1"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	res, err := c.AttemptBooking(context.Background(), "cfg-730", "2026-03-14", 2)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "998877", res.ConfirmationID)
	assert.Equal(t, "rt-1", res.ConfirmationToken)
	assert.Equal(t, "bt-1", bookForm.Get("book_token"))
	assert.Equal(t, `{"id":42}`, bookForm.Get("struct_payment_method"))
}

func TestAttemptBookingUsesConfiguredPaymentMethod(t *testing.T) {
	var bookForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/3/details":
			_, _ = io.WriteString(w, `{"book_token": {"value": "bt-1"}}`)
		case "/3/book":
			body, _ := io.ReadAll(r.Body)
			bookForm, _ = url.ParseQuery(string(body))
			_, _ = io.WriteString(w, `{"reservation_id": 1}`)
		}
	}))
	t.Cleanup(srv.Close)

	c := New(Credentials{APIKey: "key", AuthToken: "token", PaymentMethodID: "7"}, nil)
	c.base = srv.URL

	_, err := c.AttemptBooking(context.Background(), "cfg-730", "2026-03-14", 2)
	require.NoError(t, err)
	assert.Equal(t, `{"id":7}`, bookForm.Get("struct_payment_method"))
}

func TestAttemptBookingConflict(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/3/details":
			_, _ = io.WriteString(w, `{"book_token": {"value": "bt-1"}}`)
		case "/3/book":
			w.WriteHeader(http.StatusPreconditionFailed)
		}
	}))

	res, err := c.AttemptBooking(context.Background(), "cfg-730", "2026-03-14", 2)
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, snipe.BookingStatusConflict, res.Status)
}

func TestAttemptBookingNoToken(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/3/details", r.URL.Path)
		_, _ = io.WriteString(w, `{}`)
	}))

	res, err := c.AttemptBooking(context.Background(), "cfg-730", "2026-03-14", 2)
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, "no booking token available", res.Error)
}

func TestResolveConflictContinue(t *testing.T) {
	var cancelled bool
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/3/user/reservations":
			_, _ = io.WriteString(w, `{"reservations": [
				{"resy_token": "rt-old", "day": "2026-03-13", "venue": {"name": "Elsewhere"}},
				{"resy_token": "rt-conflict", "day": "2026-03-14", "venue": {"name": "Fish Cheeks"}}
			]}`)
		case "/3/cancel":
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"resy_token": "rt-conflict"}`, string(body))
			cancelled = true
			_, _ = io.WriteString(w, `{}`)
		case "/3/details":
			require.True(t, cancelled, "booking retried before cancelling the conflict")
			_, _ = io.WriteString(w, `{"book_token": {"value": "bt-2"}}`)
		case "/3/book":
			_, _ = io.WriteString(w, `{"reservation_id": 555, "resy_token": "rt-new"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	res, err := c.ResolveConflict(context.Background(), snipe.ChoiceContinue, "cfg-730", "2026-03-14", 2, "fish-cheeks", "7:30 PM")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "555", res.ConfirmationID)
}

func TestResolveConflictNothingToCancel(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/3/user/reservations", r.URL.Path)
		_, _ = io.WriteString(w, `{"reservations": []}`)
	}))

	res, err := c.ResolveConflict(context.Background(), snipe.ChoiceContinue, "cfg-730", "2026-03-14", 2, "fish-cheeks", "7:30 PM")
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, "no conflicting reservation found to cancel", res.Error)
}

func TestResolveConflictKeep(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))

	res, err := c.ResolveConflict(context.Background(), snipe.ChoiceKeep, "cfg-730", "2026-03-14", 2, "fish-cheeks", "7:30 PM")
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, "kept existing reservation", res.Error)
}

func TestSlotTimeText(t *testing.T) {
	got, ok := slotTimeText("2026-03-14 19:00:00")
	require.True(t, ok)
	assert.Equal(t, "7:00 PM", got)

	_, ok = slotTimeText("7pm")
	assert.False(t, ok)
}
