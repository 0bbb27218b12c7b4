package rightscale

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/sirupsen/logrus"

	"github.com/jbweber/volcheck/internal/cloud"
	"github.com/jbweber/volcheck/internal/faults"
)

const (
	apiVersion     = "1.5"
	defaultTimeout = 60 * time.Second
)

// Client talks to the RightScale API as the instance it runs on.
type Client struct {
	baseURL       string
	accountID     string
	instanceToken string
	http          *http.Client
	logger        logrus.FieldLogger

	// set by Login
	instance *cloud.Instance
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. A cookie jar is added when the
// client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient returns a client for server (a host name, or a URL) using the
// instance credentials of account accountID.
func NewClient(server, accountID, instanceToken string, opts ...Option) (*Client, error) {
	if server == "" || accountID == "" || instanceToken == "" {
		return nil, faults.ConfigurationFault("RightScale server, account and instance token are required")
	}

	base := strings.TrimSuffix(server, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}

	c := &Client{
		baseURL:       base,
		accountID:     accountID,
		instanceToken: instanceToken,
		http:          &http.Client{Timeout: defaultTimeout},
		logger:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Login opens an instance session and loads the instance.
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{
		"account_href":   {"/api/accounts/" + c.accountID},
		"instance_token": {c.instanceToken},
	}
	if _, err := c.do(ctx, http.MethodPost, "/api/session/instance", form, nil); err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}

	var inst instanceResource
	if _, err := c.do(ctx, http.MethodGet, "/api/sessions/instance", nil, &inst); err != nil {
		return fmt.Errorf("failed to load instance: %w", err)
	}
	c.instance = inst.toCloud()
	if c.instance.CloudHref == "" {
		return fmt.Errorf("instance %s has no cloud link", c.instance.Href)
	}

	c.logger.WithFields(logrus.Fields{
		"instance": c.instance.Href,
		"cloud":    c.instance.CloudHref,
	}).Info("Logged in to RightScale.")
	return nil
}

func (c *Client) cloudPath(collection string) (string, error) {
	if c.instance == nil {
		return "", fmt.Errorf("not logged in")
	}
	return c.instance.CloudHref + "/" + collection, nil
}

// apiError is a non-2xx response.
type apiError struct {
	method string
	path   string
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.method, e.path, e.status, e.body)
}

// do sends a request and decodes a JSON response into out when out is not
// nil. params are form encoded for POST and sent as the query otherwise.
// Returns the Location header.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, out any) (string, error) {
	target := c.baseURL + path
	var body io.Reader
	if method == http.MethodPost || method == http.MethodPut {
		body = strings.NewReader(params.Encode())
	} else if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-API-Version", apiVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	c.logger.WithFields(logrus.Fields{"method": method, "path": path}).Debug("RightScale request.")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return "", faults.NotFound(path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &apiError{method: method, path: path, status: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return "", fmt.Errorf("failed to decode %s %s: %w", method, path, err)
		}
	}
	return locationPath(resp.Header.Get("Location")), nil
}

// locationPath strips scheme and host from a Location header.
func locationPath(location string) string {
	if location == "" {
		return ""
	}
	u, err := url.Parse(location)
	if err != nil {
		return location
	}
	return u.Path
}

// create posts params and loads the new resource from its Location.
func (c *Client) create(ctx context.Context, path string, params any, out any) error {
	form, err := query.Values(params)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	href, err := c.do(ctx, http.MethodPost, path, form, nil)
	if err != nil {
		return err
	}
	if href == "" {
		return fmt.Errorf("POST %s: response has no Location", path)
	}
	_, err = c.do(ctx, http.MethodGet, href, nil, out)
	return err
}

func (c *Client) index(ctx context.Context, path string, filters []cloud.Filter, out any) error {
	form, err := query.Values(indexParams{Filters: filterStrings(filters)})
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}
	_, err = c.do(ctx, http.MethodGet, path, form, out)
	return err
}

func (c *Client) show(ctx context.Context, href string, out any) error {
	_, err := c.do(ctx, http.MethodGet, href, nil, out)
	return err
}

func (c *Client) destroy(ctx context.Context, href string) error {
	_, err := c.do(ctx, http.MethodDelete, href, nil, nil)
	return err
}

func filterStrings(filters []cloud.Filter) []string {
	out := make([]string, 0, len(filters))
	for _, f := range filters {
		out = append(out, f.String())
	}
	return out
}
