package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNilClientIsUnavailable(t *testing.T) {
	c, err := NewClient("  ", "")
	if err != nil || c != nil {
		t.Fatalf("expected nil client, got %v, %v", c, err)
	}
	if _, err := c.Status(context.Background()); !errors.Is(err, ErrAPIUnavailable) {
		t.Fatalf("Status err = %v", err)
	}
	if _, _, err := c.Export(context.Background(), 4, 12, 0); !IsAPIUnavailable(err) {
		t.Fatalf("Export err = %v", err)
	}
}

func TestClientStatusSendsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(Status{Running: true, PID: 42, Session: SessionStatus{Frames: 9}})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Running || st.PID != 42 || st.Session.Frames != 9 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestClientExportReadsHeaders(t *testing.T) {
	gif := []byte("GIF89a-test")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Query().Get("seconds") != "2.5" || r.URL.Query().Get("fps") != "10" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		SetExportHeaders(w.Header(), &ExportInfo{ID: "abc", Frames: 25, IntervalMS: 100, Score: 0.876})
		w.Header().Set("Content-Type", "image/gif")
		_, _ = w.Write(gif)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "")
	info, data, err := c.Export(context.Background(), 2.5, 10, 0)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if string(data) != string(gif) {
		t.Fatalf("body = %q", data)
	}
	if info.ID != "abc" || info.Frames != 25 || info.IntervalMS != 100 || info.Percent != 88 || info.Bytes != len(gif) {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "capture in progress"})
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "")
	_, _, err := c.Export(context.Background(), 1, 1, 0)
	if !IsStatus(err, http.StatusConflict) {
		t.Fatalf("err = %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Message != "capture in progress" {
		t.Fatalf("status error = %+v", se)
	}
	if IsAPIUnavailable(err) {
		t.Fatal("a status reply is not an unreachable daemon")
	}
}

func TestClientMetronome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req MetronomeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(MetronomeStatus{State: "running", BPM: req.BPM})
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "")
	st, err := c.Metronome(context.Background(), MetronomeRequest{Action: MetronomeStart, BPM: 60})
	if err != nil {
		t.Fatalf("Metronome: %v", err)
	}
	if st.State != "running" || st.BPM != 60 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestScoresURL(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:7491":        "ws://127.0.0.1:7491/api/scores",
		"https://coach.example": "wss://coach.example/api/scores",
	}
	for bind, want := range tests {
		c, err := NewClient(bind, "")
		if err != nil {
			t.Fatalf("NewClient(%q): %v", bind, err)
		}
		if got := c.ScoresURL(); got != want {
			t.Fatalf("ScoresURL(%q) = %q, want %q", bind, got, want)
		}
	}
}

func TestIsAPIUnavailableConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, _ := NewClient(addr, "")
	_, err := c.Status(context.Background())
	if !IsAPIUnavailable(err) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
