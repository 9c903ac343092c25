package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fentz26/crewclock/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", time.Second, nil)
}

func TestClient_ClockInSendsTimestamp(t *testing.T) {
	bodies := make(chan map[string]interface{}, 1)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/clockin/", r.URL.Path)
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		fmt.Fprint(w, `{"id":7,"worker_id":1,"project_id":9,"clock_in_time":"2024-01-15T09:00:00"}`)
	})

	ts := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	entry, err := c.ClockIn(context.Background(), 1, 9, ts)
	require.NoError(t, err)

	got := <-bodies
	assert.Equal(t, 7, entry.ID)
	assert.Equal(t, float64(1), got["worker_id"])
	assert.Equal(t, float64(9), got["project_id"])
	assert.Equal(t, "2024-01-15T09:00:00.000Z", got["timestamp"])
}

func TestClient_ClockOutOmitsZeroTimestamp(t *testing.T) {
	bodies := make(chan map[string]interface{}, 1)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		fmt.Fprint(w, `{"id":7,"worker_id":1,"project_id":9,"clock_in_time":"2024-01-15T09:00:00","clock_out_time":"2024-01-15T17:00:00","total_hours":8}`)
	})

	entry, err := c.ClockOut(context.Background(), 1, 9, time.Time{})
	require.NoError(t, err)

	got := <-bodies
	_, present := got["timestamp"]
	assert.False(t, present)
	require.NotNil(t, entry.TotalHours)
	assert.Equal(t, 8.0, *entry.TotalHours)
}

func TestClient_ErrorDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"detail":"No active clock-in found for this worker"}`)
	})

	_, err := c.ClockOut(context.Background(), 1, 9, time.Now())
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "No active clock-in found for this worker", apiErr.Detail)
	assert.False(t, IsTransient(err))
}

func TestClient_EnsureWorkerAssignedSwallows400(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusBadRequest)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/9/assign", r.URL.Path)
		w.WriteHeader(int(status.Load()))
		fmt.Fprint(w, `{"detail":"already assigned"}`)
	})

	assert.NoError(t, c.EnsureWorkerAssigned(context.Background(), 9, 1))

	status.Store(http.StatusNotFound)
	err := c.EnsureWorkerAssigned(context.Background(), 9, 1)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestClient_ListClockEntriesFilters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("worker_id"))
		assert.Equal(t, "", r.URL.Query().Get("project_id"))
		fmt.Fprint(w, `[{"id":1,"worker_id":1,"project_id":2,"clock_in_time":"2024-01-15 08:00:00"}]`)
	})

	entries, err := c.ListClockEntries(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 8, entries[0].ClockInTime.Hour())
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestClient_DecodeErrorNotTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	})

	_, err := c.ClockIn(context.Background(), 1, 1, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.False(t, IsTransient(err))
}

func TestClient_Login(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req["password"] != "manager123" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"detail":"Invalid credentials"}`)
			return
		}
		fmt.Fprint(w, `{"id":1,"username":"manager1","role":"Manager"}`)
	})

	user, err := c.Login(context.Background(), "manager1", "manager123")
	require.NoError(t, err)
	assert.Equal(t, "Manager", user.Role)

	_, err = c.Login(context.Background(), "manager1", "wrong")
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestClient_Queries(t *testing.T) {
	bodies := make(chan map[string]string, 1)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/queries/", r.URL.Path)
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `[{"id":4,"title":"Scaffold","worker_name":"Alice","project_name":"Atlas","priority":"High","status":"Open","created_at":"2024-03-04T09:00:00"}]`)
			return
		}
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		bodies <- req
		fmt.Fprint(w, `{"id":5,"title":"Scaffold","priority":"High","status":"Open","created_at":"2024-03-04T09:30:00"}`)
	})
	ctx := context.Background()

	queries, err := c.ListQueries(ctx)
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "Alice", queries[0].WorkerName)
	assert.Equal(t, 9, queries[0].CreatedAt.Hour())

	created, err := c.CreateQuery(ctx, models.QueryTicket{Title: "Scaffold", WorkerName: "Alice", ProjectName: "Atlas", Priority: "High"})
	require.NoError(t, err)
	assert.Equal(t, 5, created.ID)

	req := <-bodies
	assert.Equal(t, "Scaffold", req["title"])
	assert.Equal(t, "Atlas", req["project_name"])
	_, hasCreated := req["created_at"]
	assert.False(t, hasCreated)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &Error{StatusCode: 503}, true},
		{"request timeout", &Error{StatusCode: 408}, true},
		{"rate limited", &Error{StatusCode: 429}, true},
		{"bad request", &Error{StatusCode: 400}, false},
		{"not found", fmt.Errorf("wrapped: %w", &Error{StatusCode: 404}), false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"transport", errors.New("connection refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
