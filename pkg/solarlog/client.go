package solarlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ardexa/solarlog/pkg/common"
	"github.com/ardexa/solarlog/pkg/log"
)

const (
	prepareEndpoint = "getjp"
	oldPrepareEnd   = "expcsv.dat"

	prepareRequest = `{"737": null}`
	statusRequest  = `{"801":{"777":null,"778":null}}`
	// the status response contains this once the export is built
	completeMarker = `"777":3,`
)

// some firmware answers 404 on the first export URL, the second is tried then
var exportEndpoints = []string{"export_min.csv", "sec/export_min.csv"}

// Client implements Gateway against a solar-log's HTTP interface.
type Client struct {
	client          *http.Client
	baseURL         string
	addr            string
	kind            Kind
	prepareInterval time.Duration
	prepareAttempts int
}

var _ Gateway = (*Client)(nil)

// NewClient returns a Client for the gateway at addr, which is either a
// host/IP or a full base URL. kind is matched like ParseKind; an unknown kind
// is kept as given and reported by Validate.
func NewClient(addr string, kind Kind, timeout time.Duration) *Client {
	if k, err := ParseKind(string(kind)); err == nil {
		kind = k
	}
	baseURL := addr
	if addr != "" && !strings.Contains(addr, "://") {
		baseURL = "http://" + addr
	}
	return &Client{
		client:          common.HTTPClient(timeout),
		baseURL:         baseURL,
		addr:            addr,
		kind:            kind,
		prepareInterval: 10 * time.Second,
		prepareAttempts: 50,
	}
}

// Validate ensures the configuration is valid.
func (c *Client) Validate() error {
	if c.addr == "" {
		return errors.New("solarlog-addr is required")
	}
	if _, err := url.Parse(c.baseURL); err != nil {
		return fmt.Errorf("failed to parse solar-log url (%s): %w", c.baseURL, err)
	}
	if _, err := ParseKind(string(c.kind)); err != nil {
		return err
	}
	return nil
}

// Addr returns the gateway address the client was configured with.
func (c *Client) Addr() string {
	return c.addr
}

// Prepare implements Gateway.
func (c *Client) Prepare(ctx context.Context) error {
	if c.kind == KindOld {
		return c.prepareOld(ctx)
	}
	return c.prepareNew(ctx)
}

// prepareNew triggers the export and then polls the gateway's status until it
// reports completion. Building the export can take several minutes.
func (c *Client) prepareNew(ctx context.Context) error {
	req, err := c.newRequest(ctx, "POST", prepareEndpoint, prepareRequest)
	if err != nil {
		return err
	}
	if _, err := c.doRequest(req, "prepare"); err != nil {
		return err
	}

	for attempt := 1; attempt <= c.prepareAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.prepareInterval):
		}

		req, err := c.newRequest(ctx, "POST", prepareEndpoint, statusRequest)
		if err != nil {
			return err
		}
		body, err := c.doRequest(req, "prepare status")
		if err != nil {
			return err
		}
		complete := bytes.Contains(body, []byte(completeMarker))
		log.Ctx(ctx).DebugContext(
			ctx,
			"solar-log prepare status",
			slog.Int("attempt", attempt),
			slog.Bool("complete", complete),
		)
		if complete {
			return nil
		}
	}
	return ErrPrepareTimeout
}

// prepareOld requests the export once; the gateway builds it while answering.
func (c *Client) prepareOld(ctx context.Context) error {
	req, err := c.newRequest(ctx, "GET", oldPrepareEnd, "")
	if err != nil {
		return err
	}
	req.URL.RawQuery = "1"
	_, err = c.doRequest(req, "prepare")
	return err
}

// Download implements Gateway.
func (c *Client) Download(ctx context.Context) ([]byte, error) {
	var lastErr error
	for _, endpoint := range exportEndpoints {
		req, err := c.newRequest(ctx, "POST", endpoint, "")
		if err != nil {
			return nil, err
		}
		body, err := c.doRequest(req, "download")
		if err == nil {
			log.Ctx(ctx).DebugContext(ctx, "downloaded solar-log export", slog.String("url", req.URL.String()), slog.Int("bytes", len(body)))
			return body, nil
		}

		var te *TransportError
		if !errors.As(err, &te) || te.StatusCode == 0 {
			// the gateway is unreachable, another URL won't help
			return nil, err
		}
		log.Ctx(ctx).DebugContext(ctx, "solar-log export failed", slog.String("url", req.URL.String()), slog.Int("status", te.StatusCode))
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) newRequest(ctx context.Context, method, endpoint, body string) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path, err = url.JoinPath(u.Path, endpoint)
	if err != nil {
		return nil, err
	}

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req, nil
}

func (c *Client) doRequest(req *http.Request, op string) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: op, URL: req.URL.String(), StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: req.URL.String(), Err: err}
	}
	return body, nil
}
