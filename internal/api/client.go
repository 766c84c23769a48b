package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ErrAPIUnavailable reports that no daemon API is configured or reachable.
var ErrAPIUnavailable = errors.New("posecoach API unavailable")

// StatusError is a non-2xx API reply.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Code)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Code, e.Message)
}

// Client talks to a running daemon.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient builds a client for bind ("host:port" or a URL). An empty bind
// returns a nil client whose methods report ErrAPIUnavailable.
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		// Exports block for the capture duration; callers bound requests with ctx.
		http: &http.Client{},
	}, nil
}

// Status fetches /api/status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var out Status
	if c == nil {
		return out, ErrAPIUnavailable
	}
	resp, err := c.do(ctx, http.MethodGet, "/api/status", nil, nil)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode status: %w", err)
	}
	return out, nil
}

// Export asks the daemon to capture seconds of ribbon at fps and returns the
// GIF. A zero scale uses the daemon default.
func (c *Client) Export(ctx context.Context, seconds, fps float64, scale int) (ExportInfo, []byte, error) {
	if c == nil {
		return ExportInfo{}, nil, ErrAPIUnavailable
	}
	values := url.Values{}
	if seconds > 0 {
		values.Set("seconds", strconv.FormatFloat(seconds, 'f', -1, 64))
	}
	if fps > 0 {
		values.Set("fps", strconv.FormatFloat(fps, 'f', -1, 64))
	}
	if scale > 0 {
		values.Set("scale", strconv.Itoa(scale))
	}
	return c.fetchGIF(ctx, http.MethodPost, "/api/export", values)
}

// Best downloads the highest-scoring export of the daemon's session.
func (c *Client) Best(ctx context.Context) (ExportInfo, []byte, error) {
	if c == nil {
		return ExportInfo{}, nil, ErrAPIUnavailable
	}
	return c.fetchGIF(ctx, http.MethodGet, "/api/export/best", nil)
}

// Metronome starts, stops or retunes the daemon metronome.
func (c *Client) Metronome(ctx context.Context, req MetronomeRequest) (MetronomeStatus, error) {
	var out MetronomeStatus
	if c == nil {
		return out, ErrAPIUnavailable
	}
	body, err := json.Marshal(req)
	if err != nil {
		return out, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/metronome", nil, bytes.NewReader(body))
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode metronome status: %w", err)
	}
	return out, nil
}

// ScoresURL returns the websocket URL of the live score stream.
func (c *Client) ScoresURL() string {
	if c == nil {
		return ""
	}
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/scores"
	return u.String()
}

// AuthHeader returns the header a websocket dial must carry.
func (c *Client) AuthHeader() http.Header {
	h := http.Header{}
	if c != nil && c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	return h
}

func (c *Client) fetchGIF(ctx context.Context, method, path string, values url.Values) (ExportInfo, []byte, error) {
	resp, err := c.do(ctx, method, path, values, nil)
	if err != nil {
		return ExportInfo{}, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ExportInfo{}, nil, fmt.Errorf("read gif: %w", err)
	}
	info := exportInfoFromHeader(resp.Header)
	info.Bytes = len(data)
	return info, data, nil
}

func (c *Client) do(ctx context.Context, method, path string, values url.Values, body io.Reader) (*http.Response, error) {
	ref := &url.URL{Path: path}
	if len(values) > 0 {
		ref.RawQuery = values.Encode()
	}
	endpoint := c.base.ResolveReference(ref)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header = c.AuthHeader()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var payload ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
		return nil, &StatusError{Code: resp.StatusCode, Message: payload.Error}
	}
	return resp, nil
}

func exportInfoFromHeader(h http.Header) ExportInfo {
	info := ExportInfo{
		ID:        h.Get(HeaderExportID),
		CreatedAt: h.Get(HeaderCreatedAt),
	}
	if v, err := strconv.ParseFloat(h.Get(HeaderExportScore), 64); err == nil {
		info.Score = v
		info.Percent = percent(v)
	}
	if v, err := strconv.Atoi(h.Get(HeaderExportFrames)); err == nil {
		info.Frames = v
	}
	if v, err := strconv.ParseInt(h.Get(HeaderExportDelay), 10, 64); err == nil {
		info.IntervalMS = v
	}
	return info
}

// SetExportHeaders writes info into h for an image/gif reply.
func SetExportHeaders(h http.Header, info *ExportInfo) {
	if info == nil {
		return
	}
	h.Set(HeaderExportID, info.ID)
	h.Set(HeaderExportScore, strconv.FormatFloat(info.Score, 'f', 4, 64))
	h.Set(HeaderExportFrames, strconv.Itoa(info.Frames))
	h.Set(HeaderExportDelay, strconv.FormatInt(info.IntervalMS, 10))
	if info.CreatedAt != "" {
		h.Set(HeaderCreatedAt, info.CreatedAt)
	}
}

// IsAPIUnavailable reports whether err means the daemon could not be reached.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}

// IsStatus reports whether err is an API reply with the given status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
