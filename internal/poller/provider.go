package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jpalmerr/livedeck/host"
)

// DefaultLiveAPIURL is the SOOP liveness endpoint. The legacy afreecatv.com
// host is not queried.
const DefaultLiveAPIURL = "https://live.sooplive.co.kr/afreeca/player_live_api.php"

// Liveness codes returned in CHANNEL.RESULT.
const (
	CodeOffline    = 0
	CodeLive       = 1
	CodeRestricted = -6 // member-only or age-restricted broadcast
)

var (
	// ErrProviderUnreachable reports a transport failure or a non-2xx reply.
	ErrProviderUnreachable = errors.New("liveness provider unreachable")

	// ErrProviderMalformedResponse reports a body without an integer
	// CHANNEL.RESULT.
	ErrProviderMalformedResponse = errors.New("liveness provider returned malformed response")
)

// Liveness is the outcome of one provider query.
type Liveness struct {
	// State is the mapped visual state. Always StateOffline when the query
	// failed.
	State host.State

	// Code is the raw CHANNEL.RESULT value, zero when none was decoded.
	Code int

	// Latency is the time spent on the HTTP call.
	Latency time.Duration
}

// Provider answers liveness queries for a streamer.
//
// Implementations return a usable Liveness even when err is non-nil; the
// error exists for logging only.
type Provider interface {
	QueryLiveness(ctx context.Context, streamerID string) (Liveness, error)
}

// StateForCode maps a provider liveness code to a visual state. Restricted
// broadcasts count as live; unknown codes are offline.
func StateForCode(code int) host.State {
	switch code {
	case CodeLive, CodeRestricted:
		return host.StateLive
	default:
		return host.StateOffline
	}
}

// LiveAPI queries the SOOP player_live_api endpoint.
type LiveAPI struct {
	client   *Client
	endpoint string
	timeout  time.Duration
}

// NewLiveAPI creates a [LiveAPI] posting to endpoint. An empty endpoint uses
// [DefaultLiveAPIURL]; a zero timeout imposes none beyond the transport's.
func NewLiveAPI(client *Client, endpoint string, timeout time.Duration) *LiveAPI {
	if endpoint == "" {
		endpoint = DefaultLiveAPIURL
	}
	if client == nil {
		client = NewClient()
	}
	return &LiveAPI{client: client, endpoint: endpoint, timeout: timeout}
}

type liveAPIResponse struct {
	Channel *struct {
		Result *int `json:"RESULT"`
	} `json:"CHANNEL"`
}

// QueryLiveness implements [Provider].
func (a *LiveAPI) QueryLiveness(ctx context.Context, streamerID string) (Liveness, error) {
	form := url.Values{}
	form.Set("bid", streamerID)
	form.Set("quality", "original")
	form.Set("type", "aid")
	form.Set("pwd", "")
	form.Set("stream_type", "common")

	resp := a.client.Fetch(ctx, Request{
		Method: http.MethodPost,
		URL:    a.endpoint,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
			"Accept":       "application/json",
		},
		Body:    []byte(form.Encode()),
		Timeout: a.timeout,
	})

	result := Liveness{State: host.StateOffline, Latency: resp.Latency}
	if resp.Error != nil {
		return result, fmt.Errorf("%w: %w", ErrProviderUnreachable, resp.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, fmt.Errorf("%w: unexpected status %d", ErrProviderUnreachable, resp.StatusCode)
	}

	var body liveAPIResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return result, fmt.Errorf("%w: %w", ErrProviderMalformedResponse, err)
	}
	if body.Channel == nil || body.Channel.Result == nil {
		return result, fmt.Errorf("%w: missing CHANNEL.RESULT", ErrProviderMalformedResponse)
	}

	result.Code = *body.Channel.Result
	result.State = StateForCode(result.Code)
	return result, nil
}

// Close releases idle provider connections.
func (a *LiveAPI) Close() {
	a.client.Close()
}
