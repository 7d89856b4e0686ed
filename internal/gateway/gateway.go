package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/studyd/internal/metrics"
)

const (
	DefaultTextURL  = "https://backend.buildpicoapps.com/aero/run/llm-api"
	DefaultImageURL = "https://backend.buildpicoapps.com/aero/run/image-generation-api"

	// ImagePrefix is prepended to a query sent in image mode.
	ImagePrefix = "Generate an image of: "

	studyPrompt   = "You are a helpful study assistant. Explain this concept clearly and concisely: "
	statusSuccess = "success"
	maxBodyBytes  = 4 << 20
)

var (
	ErrRequestFailed = errors.New("API request failed")

	imageIntent = regexp.MustCompile(`(?i)\b(draw|create|generate|show|make|visualize|image|picture|diagram)\b`)
)

// Response is what the Doubt Room renders for one question.
type Response struct {
	Response string   `json:"response"`
	Videos   []string `json:"videos"`
	Image    *string  `json:"image"`
}

type Options struct {
	TextURL    string
	ImageURL   string
	PublicKey  string
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
	Metrics    *metrics.Metrics
}

type Client struct {
	textURL  string
	imageURL string
	key      string
	http     *http.Client
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
}

func NewClient(opts Options) *Client {
	if opts.TextURL == "" {
		opts.TextURL = DefaultTextURL
	}
	if opts.ImageURL == "" {
		opts.ImageURL = DefaultImageURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient(60 * time.Second)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Client{
		textURL:  opts.TextURL,
		imageURL: opts.ImageURL,
		key:      opts.PublicKey,
		http:     opts.HTTPClient,
		log:      opts.Logger.WithField("component", "gateway"),
		metrics:  opts.Metrics,
	}
}

// NewHTTPClient returns a client whose transport is traced with otelhttp.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// WantsImage reports whether the query asks for a visual.
func WantsImage(query string) bool {
	return imageIntent.MatchString(query)
}

// Ask never returns an error: a failed text call is reported inside the
// response text, and a failed image call just leaves Image nil. The calls
// run to completion even if ctx is cancelled.
func (c *Client) Ask(ctx context.Context, query string) Response {
	ctx = context.WithoutCancel(ctx)
	wantsImage := WantsImage(query)

	text, err := c.generateText(ctx, query)
	if err != nil {
		c.log.WithError(err).Error("text generation failed")
		c.metrics.GatewayCall("text", "failed")
		return errorResponse(err)
	}
	c.metrics.GatewayCall("text", "ok")

	out := Response{Response: text, Videos: []string{}}
	if !wantsImage {
		return out
	}

	imageURL, err := c.generateImage(ctx, query)
	if err != nil {
		c.log.WithError(err).Warn("image generation failed")
		c.metrics.GatewayCall("image", "failed")
		return out
	}
	c.metrics.GatewayCall("image", "ok")
	out.Image = &imageURL
	return out
}

type textReply struct {
	Status string `json:"status"`
	Text   string `json:"text"`
}

type imageReply struct {
	Status   string `json:"status"`
	ImageURL string `json:"imageUrl"`
}

func (c *Client) generateText(ctx context.Context, query string) (string, error) {
	var reply textReply
	if err := c.post(ctx, c.textURL, studyPrompt+query, &reply); err != nil {
		return "", err
	}
	if reply.Status != statusSuccess {
		return "", ErrRequestFailed
	}
	return reply.Text, nil
}

func (c *Client) generateImage(ctx context.Context, query string) (string, error) {
	var reply imageReply
	if err := c.post(ctx, c.imageURL, query, &reply); err != nil {
		return "", err
	}
	if reply.Status != statusSuccess || strings.TrimSpace(reply.ImageURL) == "" {
		return "", fmt.Errorf("%w: no image in reply", ErrRequestFailed)
	}
	return reply.ImageURL, nil
}

func (c *Client) post(ctx context.Context, endpoint, prompt string, out any) error {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return err
	}
	target, err := c.withKey(endpoint)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("%w: HTTP %d", ErrRequestFailed, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}

func (c *Client) withKey(endpoint string) (string, error) {
	if c.key == "" {
		return endpoint, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("pk", c.key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func errorResponse(err error) Response {
	return Response{
		Response: fmt.Sprintf("⚠️ **Connection Error**\n\n%s\n\nPlease check your internet connection and try again.", err.Error()),
		Videos:   []string{},
		Image:    nil,
	}
}
