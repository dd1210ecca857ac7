package burning

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://cooltext.com"
	DefaultTimeout = 10 * time.Second
)

// Recorder receives every render location the API hands out.
type Recorder interface {
	Record(url string, at time.Time)
}

// Config configuration of the generator
type Config struct {
	BaseURL string
	Timeout time.Duration
	// InsecureFetch disables TLS verification for the download of the
	// rendered animation only. The render POST is always verified.
	InsecureFetch bool
}

// Generator renders burning text animations through cooltext.com
type Generator struct {
	config   Config
	api      *http.Client
	fetch    *http.Client
	recorder Recorder
	now      func() time.Time
}

type renderResponse struct {
	RenderLocation string `json:"renderLocation"`
}

// NewGenerator creates a generator that records render locations into r.
func NewGenerator(c Config, r Recorder) *Generator {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	fetchTransport := http.DefaultTransport.(*http.Transport).Clone()
	if c.InsecureFetch {
		fetchTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Generator{
		config:   c,
		api:      &http.Client{Timeout: c.Timeout},
		fetch:    &http.Client{Timeout: c.Timeout, Transport: fetchTransport},
		recorder: r,
		now:      time.Now,
	}
}

func renderParams(text string) url.Values {
	params := url.Values{}
	params.Set("Integer13", "on")
	params.Set("Integer12", "on")
	params.Set("Integer9", "0")
	params.Set("BackgroundColor_color", "#FFFFFF")
	params.Set("Boolean1", "on")
	params.Set("Integer1", "15")
	params.Set("Color1_color", "#FF0000")
	params.Set("FontSize", "70")
	params.Set("LogoID", "4")
	params.Set("Text", text)
	return params
}

// Generate renders text and returns the animation bytes. Any failure is a *Error.
func (g *Generator) Generate(ctx context.Context, text string) ([]byte, error) {
	location, err := g.render(ctx, text)
	if err != nil {
		return nil, err
	}

	if g.recorder != nil {
		g.recorder.Record(location, g.now())
	}

	return g.download(ctx, location)
}

func (g *Generator) render(ctx context.Context, text string) (string, error) {
	endpoint := strings.TrimRight(g.config.BaseURL, "/") + "/PostChange?" + renderParams(text).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", requestError(err)
	}

	resp, err := g.api.Do(req)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp.StatusCode)
	}

	var data renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Debugf("could not decode render response: %v", err)
		return "", otherError("missing render location")
	}
	if data.RenderLocation == "" {
		return "", otherError("missing render location")
	}

	log.Debugf("rendered %q at %s", text, data.RenderLocation)
	return data.RenderLocation, nil
}

func (g *Generator) download(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, requestError(err)
	}

	resp, err := g.fetch.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}
	if len(body) == 0 {
		return nil, otherError("empty render body")
	}

	return body, nil
}

func transportError(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return timeoutError(err)
	}
	return requestError(err)
}
