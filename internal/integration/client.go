// Package integration is an HTTP client for the geoindex API.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/paulmach/orb/geojson"
)

type prefixRoundTripper struct {
	addr string
	rt   http.RoundTripper
}

func (p *prefixRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	u := r.URL
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	if u.Host == "" {
		u.Host = p.addr
	}

	return p.rt.RoundTrip(r)
}

func NewClient(addr string) *Client {
	return &Client{client: &http.Client{Transport: &prefixRoundTripper{addr: addr, rt: http.DefaultTransport}}}
}

type Client struct {
	client *http.Client
}

// StatusError is returned for responses other than 200 OK.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

type PutResult struct {
	IDs      []string `json:"ids"`
	Rejected []string `json:"rejected,omitempty"`
}

func (c *Client) Put(ctx context.Context, layer string, fc *geojson.FeatureCollection) (PutResult, error) {
	var result PutResult
	b, err := json.Marshal(fc)
	if err != nil {
		return result, fmt.Errorf("unable marshal feature collection: %w", err)
	}
	path := "/features"
	if layer != "" {
		path += "?" + url.Values{"layer": {layer}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(b))
	if err != nil {
		return result, fmt.Errorf("create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/geo+json")

	body, err := c.do(req)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return result, fmt.Errorf("unable decode put response: %w", err)
	}
	return result, nil
}

func (c *Client) Delete(ctx context.Context, id string) (*geojson.Feature, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, "/features?"+url.Values{"id": {id}}.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create new request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return geojson.UnmarshalFeature(body)
}

// Nearest returns nil without error when nothing is in reach. A negative
// maxDistance is unbounded.
func (c *Client) Nearest(ctx context.Context, lat, lon, maxDistance float64) (*geojson.Feature, error) {
	q := pointQuery(lat, lon, maxDistance)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/nearest?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create new request: %w", err)
	}
	body, err := c.do(req)
	if se, ok := err.(*StatusError); ok && se.Code == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return geojson.UnmarshalFeature(body)
}

func (c *Client) KNearest(ctx context.Context, lat, lon float64, k int, maxDistance float64) (*geojson.FeatureCollection, error) {
	q := pointQuery(lat, lon, maxDistance)
	q.Set("k", strconv.Itoa(k))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/knn?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create new request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return geojson.UnmarshalFeatureCollection(body)
}

// Range queries the rectangle. An empty mode uses the server default.
func (c *Client) Range(ctx context.Context, north, west, south, east float64, mode string) (*geojson.FeatureCollection, error) {
	q := url.Values{}
	q.Set("north", formatFloat(north))
	q.Set("west", formatFloat(west))
	q.Set("south", formatFloat(south))
	q.Set("east", formatFloat(east))
	if mode != "" {
		q.Set("mode", mode)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/range?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create new request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return geojson.UnmarshalFeatureCollection(body)
}

func (c *Client) Health(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create new request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	return resp, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error with sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func pointQuery(lat, lon, maxDistance float64) url.Values {
	q := url.Values{}
	q.Set("lat", formatFloat(lat))
	q.Set("lon", formatFloat(lon))
	if maxDistance >= 0 {
		q.Set("max", formatFloat(maxDistance))
	}
	return q
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
