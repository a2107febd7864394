// Package backend sends text to a remote correction model and turns the reply
// into corrections.
//
// A Client holds no per-request state and is safe for concurrent use. The
// access token and backend are read from the settings passed to each call.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/normalize"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/observe"
)

// DefaultTimeout bounds one backend round trip.
const DefaultTimeout = 30 * time.Second

// PingText is the probe sent by Ping.
const PingText = "Test de connexion"

// maxReplyBytes caps how much of a reply body is read.
const maxReplyBytes = 4 << 20

// Generation parameters sent to generative backends.
const (
	generationHeadroom = 50
	temperature        = 0.3
)

// Client calls correction backends over HTTP.
type Client struct {
	httpClient *http.Client
	endpoints  Table
	metrics    *observe.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its Timeout is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout. A zero or negative value disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d < 0 {
			d = 0
		}
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithEndpoints replaces the endpoint table.
func WithEndpoints(t Table) Option {
	return func(c *Client) {
		c.endpoints = t
	}
}

// WithMetrics records request metrics on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New returns a Client using the built-in endpoint table.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		endpoints:  DefaultTable(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Endpoints returns the client's endpoint table.
func (c *Client) Endpoints() Table {
	return c.endpoints
}

type invocationOptions struct {
	WaitForModel bool `json:"wait_for_model"`
	UseCache     bool `json:"use_cache"`
}

type generationParameters struct {
	MaxLength   int     `json:"max_length"`
	Temperature float64 `json:"temperature"`
	DoSample    bool    `json:"do_sample"`
}

type requestBody struct {
	Inputs     string                `json:"inputs"`
	Options    invocationOptions     `json:"options"`
	Parameters *generationParameters `json:"parameters,omitempty"`
}

func buildBody(ep Endpoint, text string, opts invocationOptions) requestBody {
	body := requestBody{Inputs: text, Options: opts}
	if ep.Generative {
		body.Parameters = &generationParameters{
			MaxLength:   utf8.RuneCountInString(text) + generationHeadroom,
			Temperature: temperature,
			DoSample:    true,
		}
	}
	return body
}

// Request sends text to the backend selected in s and returns the raw reply.
// No network call is made when the token is empty.
func (c *Client) Request(ctx context.Context, text string, s model.Settings) ([]byte, error) {
	ep := c.endpoints.Resolve(s.Backend)
	return c.call(ctx, ep, s.Token, buildBody(ep, text, invocationOptions{WaitForModel: true, UseCache: true}))
}

// RequestCorrections sends text to the backend selected in s and returns the
// corrections found in the reply. An unreadable reply yields an empty list.
func (c *Client) RequestCorrections(ctx context.Context, text string, s model.Settings) ([]model.Correction, error) {
	raw, err := c.Request(ctx, text, s)
	if err != nil {
		return nil, err
	}
	out := normalize.Normalize(raw, text, s.ConfidenceThreshold, s.MaxSuggestions)
	if len(out) == 0 && normalize.Detect(raw) == normalize.ShapeUnknown {
		observe.Logger(ctx).Debug("unrecognised backend reply",
			"backend", c.endpoints.Resolve(s.Backend).ID, "bytes", len(raw))
	}
	return out, nil
}

// Ping checks that the token is accepted by the backend selected in s. It does
// not wait for a cold model, so a warming backend reports KindBackendWarmingUp.
func (c *Client) Ping(ctx context.Context, s model.Settings) error {
	ep := c.endpoints.Resolve(s.Backend)
	_, err := c.call(ctx, ep, s.Token, buildBody(ep, PingText, invocationOptions{}))
	return err
}

func (c *Client) call(ctx context.Context, ep Endpoint, token string, body requestBody) (raw []byte, err error) {
	if token == "" {
		return nil, &Error{Kind: KindMissingCredential, Backend: ep.ID}
	}

	ctx, span := observe.StartSpan(ctx, "backend.request")
	span.SetAttributes(attribute.String("backend", string(ep.ID)))
	start := time.Now()
	defer func() {
		kind := KindOf(err)
		if err != nil && kind == "" && ctx.Err() != nil {
			kind = "Canceled"
		}
		c.metrics.RecordBackendCall(ctx, string(ep.ID), time.Since(start), string(kind))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, &Error{Kind: KindNetworkUnavailable, Backend: ep.ID, Err: err}
	}
	defer func() {
		// Best-effort close.
		_ = resp.Body.Close()
	}()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxReplyBytes))
		return nil, classifyStatus(ep.ID, resp.StatusCode)
	}

	raw, err = io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Kind: KindNetworkUnavailable, Backend: ep.ID, Err: err}
	}
	return raw, nil
}
