package hook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Request dispatches an HTTP request against the backend. Method is one of
// GET, POST, PUT, or DELETE; segments is the endpoint-relative path, e.g.
// "collection/books/42". Data is encoded per encodePayload.
//
// Credentials ride both the headers and the query string. With
// Config.UsePostInstead set, PUT and DELETE go out as POST carrying an
// X-HTTP-Method-Override header.
//
// A non-2xx status, or a 2xx body decoding to false, null, or an object with
// an "error" field, is returned as *APIError. Transport failures are
// returned as *ConnectionError.
func (c *Client) Request(ctx context.Context, method, segments string, data any, opts ...RequestOption) (*Response, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	method = strings.ToUpper(method)
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}

	o := requestDefaults()
	for _, opt := range opts {
		opt(&o)
	}

	pl, err := encodePayload(method, data)
	if err != nil {
		return nil, err
	}

	httpMethod := method
	override := ""
	if c.cfg.UsePostInstead && (method == http.MethodPut || method == http.MethodDelete) {
		httpMethod = http.MethodPost
		override = method
	}

	target := joinURL(c.cfg.Endpoint, segments)
	query := c.credentialQuery()
	if pl != nil && pl.query != "" {
		query += "&" + pl.query
	}

	var body io.Reader
	contentType := "application/json"
	if pl != nil {
		switch {
		case pl.form != nil:
			body, contentType, err = pl.form.Encode()
			if err != nil {
				return nil, err
			}
		case pl.json != nil:
			body = bytes.NewReader(pl.json)
		}
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, target+"?"+query, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", contentType)
	c.applyCredentials(req)
	if override != "" {
		req.Header.Set("X-HTTP-Method-Override", override)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("path", segments).Msg("request failed")
		return nil, &ConnectionError{URL: target, Reason: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("path", segments).Msg("read response failed")
		return nil, &ConnectionError{URL: target, Reason: err.Error()}
	}

	parsed, decoded := decodeBody(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error().
			Int("status", resp.StatusCode).
			Str("method", method).
			Str("path", segments).
			Msg("request rejected")
		return nil, &APIError{Status: resp.StatusCode, Data: parsed}
	}

	if decoded && rejectedPayload(parsed) {
		c.log.Error().
			Int("status", resp.StatusCode).
			Str("method", method).
			Str("path", segments).
			Msg("request rejected by response body")
		return nil, &APIError{Status: resp.StatusCode, Data: parsed}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Raw:        raw,
		Data:       parsed,
		Total:      totalCount(resp.Header),
	}, nil
}

// rejectedPayload reports whether a decoded 2xx body signals failure: JSON
// null, false, or an object carrying an "error" field.
func rejectedPayload(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case map[string]any:
		_, has := t["error"]
		return has
	}
	return false
}
