package daemon

import (
	"context"
	"encoding/json"
	"image/gif"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"posecoach/internal/api"
	"posecoach/internal/pose"
	"posecoach/internal/ribbon"
	"posecoach/internal/testsupport"
)

func newTestServer(t *testing.T, opts ...testsupport.ConfigOption) (*Daemon, *httptest.Server) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	d, err := New(cfg, testsupport.NewAngleSource(), "scripted", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := httptest.NewServer(d.api.routes())
	t.Cleanup(func() {
		srv.Close()
		d.metronome.Stop()
		d.Close()
	})
	return d, srv
}

func TestAPIServerRibbon(t *testing.T) {
	d, srv := newTestServer(t)
	d.session.Ribbon().Record(1)

	resp, err := http.Get(srv.URL + "/api/ribbon.png")
	if err != nil {
		t.Fatalf("GET ribbon: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != ribbon.DefaultWidth || b.Dy() != ribbon.DefaultHeight {
		t.Fatalf("bounds = %v", b)
	}

	labeled, err := http.Get(srv.URL + "/api/ribbon.png?label=1")
	if err != nil {
		t.Fatalf("GET labeled ribbon: %v", err)
	}
	defer labeled.Body.Close()
	img, err = png.Decode(labeled.Body)
	if err != nil {
		t.Fatalf("decode labeled: %v", err)
	}
	if img.Bounds().Dy() <= ribbon.DefaultHeight {
		t.Fatalf("expected caption band, bounds = %v", img.Bounds())
	}
}

func TestAPIServerExportAndBest(t *testing.T) {
	d, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/export/best")
	if err != nil {
		t.Fatalf("GET best: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("best before export = %d", resp.StatusCode)
	}

	d.session.Ribbon().Record(0)
	resp, err = http.Post(srv.URL+"/api/export?seconds=0.3&fps=10&scale=1", "", nil)
	if err != nil {
		t.Fatalf("POST export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if resp.Header.Get(api.HeaderExportFrames) != "3" || resp.Header.Get(api.HeaderExportID) == "" {
		t.Fatalf("export headers = %v", resp.Header)
	}
	anim, err := gif.DecodeAll(resp.Body)
	if err != nil {
		t.Fatalf("decode gif: %v", err)
	}
	if len(anim.Image) != 3 || anim.Delay[0] != 10 {
		t.Fatalf("frames=%d delay=%d", len(anim.Image), anim.Delay[0])
	}

	best, err := http.Get(srv.URL + "/api/export/best")
	if err != nil {
		t.Fatalf("GET best: %v", err)
	}
	defer best.Body.Close()
	if best.StatusCode != http.StatusOK || best.Header.Get("Content-Type") != "image/gif" {
		t.Fatalf("best = %d %q", best.StatusCode, best.Header.Get("Content-Type"))
	}
}

func TestAPIServerExportRejectsBadParams(t *testing.T) {
	_, srv := newTestServer(t)
	for _, query := range []string{"seconds=abc", "seconds=0", "fps=-1", "seconds=0.01&fps=10", "scale=0", "scale=9", "scale=5000"} {
		resp, err := http.Post(srv.URL+"/api/export?"+query, "", nil)
		if err != nil {
			t.Fatalf("POST export: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", query, resp.StatusCode)
		}
	}
	resp, err := http.Get(srv.URL + "/api/export")
	if err != nil {
		t.Fatalf("GET export: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET export status = %d", resp.StatusCode)
	}
}

func TestAPIServerMetronome(t *testing.T) {
	_, srv := newTestServer(t)
	post := func(body string) (int, api.MetronomeStatus) {
		t.Helper()
		resp, err := http.Post(srv.URL+"/api/metronome", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST metronome: %v", err)
		}
		defer resp.Body.Close()
		var st api.MetronomeStatus
		if resp.StatusCode == http.StatusOK {
			if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
				t.Fatalf("decode: %v", err)
			}
		}
		return resp.StatusCode, st
	}

	if code, st := post(`{"action":"start","bpm":60}`); code != http.StatusOK || st.State != "running" || st.BPM != 60 {
		t.Fatalf("start = %d %+v", code, st)
	}
	if code, _ := post(`{"bpm":500}`); code != http.StatusBadRequest {
		t.Fatalf("out of range bpm = %d", code)
	}
	if code, _ := post(`{"action":"dance"}`); code != http.StatusBadRequest {
		t.Fatalf("unknown action = %d", code)
	}
	if code, st := post(`{"action":"stop"}`); code != http.StatusOK || st.State != "stopped" || st.BPM != 60 {
		t.Fatalf("stop = %d %+v", code, st)
	}
}

func TestAPIServerRequiresToken(t *testing.T) {
	_, srv := newTestServer(t, testsupport.WithAPIToken("secret"))

	get := func(url, token string) int {
		t.Helper()
		req, _ := http.NewRequest(http.MethodGet, url, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := get(srv.URL+"/api/status", ""); code != http.StatusUnauthorized {
		t.Fatalf("no token = %d", code)
	}
	if code := get(srv.URL+"/api/status", "wrong"); code != http.StatusUnauthorized {
		t.Fatalf("wrong token = %d", code)
	}
	if code := get(srv.URL+"/api/status", "secret"); code != http.StatusOK {
		t.Fatalf("bearer token = %d", code)
	}
	if code := get(srv.URL+"/api/status?access_token=secret", ""); code != http.StatusOK {
		t.Fatalf("query token = %d", code)
	}
}

func TestScoreStreamDeliversScores(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	frames := make(chan *pose.Pose)
	src := pose.SourceFunc(func(ctx context.Context) (*pose.Pose, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case p := <-frames:
			return p, nil
		}
	})
	d, err := New(cfg, src, "channel", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+d.Addr()+"/api/scores", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(3 * time.Second)
	for d.hub.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	frames <- pose.LegPose(90, 1, 1)
	frames <- pose.LegPose(120, 1, 1)

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for want := 1; want <= 2; want++ {
		var msg api.StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type != api.StreamScore || msg.Score == nil || msg.Score.Seq != want {
			t.Fatalf("message %d = %+v", want, msg)
		}
	}
}

func TestScoreHubDropsForSlowSubscriber(t *testing.T) {
	h := newScoreHub(nil)
	c := &streamClient{id: "slow", send: make(chan api.StreamMessage, 1)}
	if !h.register(c) {
		t.Fatal("register failed")
	}
	h.broadcast(api.StreamMessage{Type: api.StreamScore})
	h.broadcast(api.StreamMessage{Type: api.StreamScore})
	if h.dropped.Load() != 1 {
		t.Fatalf("dropped = %d", h.dropped.Load())
	}
	h.closeAll()
	if _, ok := <-c.send; !ok {
		t.Fatal("expected buffered message before close")
	}
	if _, ok := <-c.send; ok {
		t.Fatal("expected closed channel")
	}
	if h.register(&streamClient{id: "late", send: make(chan api.StreamMessage)}) {
		t.Fatal("closed hub must refuse subscribers")
	}
}
