// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package requests talks to the Galaxy master gateway.

Calls go to an endpoint picked by [endpointmanager.Default]. An endpoint that
refuses connections or answers with a server error is backed off and the
call moves on to the next one. GET responses are kept in an LRU cache until
a mutation invalidates them or their TTL runs out.
*/
package requests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"codeberg.org/galaxy/console/config"
	"codeberg.org/galaxy/console/core/audit"
	"codeberg.org/galaxy/console/core/endpointmanager"
	"codeberg.org/galaxy/console/core/idgen"
	"codeberg.org/galaxy/console/server/request_context"
	"codeberg.org/galaxy/console/server/utils"
)

var (
	// ErrMasterUnavailable is returned when every attempt failed to reach a master.
	ErrMasterUnavailable = errors.New("galaxy master unavailable")

	errNoEndpoint       = errors.New("no master endpoint configured")
	errInvalidJSON      = errors.New("response contained invalid JSON")
	errAPIResponseError = errors.New("master reported an error")
)

// APIError is an error reported by the master gateway.
type APIError struct {
	// StatusCode is the HTTP status of the response, or 502 when the
	// master flagged an error in a 2xx envelope.
	StatusCode int

	// Message is the master's explanation, falling back to the status text.
	Message string

	Err error
}

func (e *APIError) Error() string {
	var b strings.Builder

	b.WriteString(e.Err.Error())

	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}

	fmt.Fprintf(&b, " (status code: %d)", e.StatusCode)

	return b.String()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a master 404.
func IsNotFound(err error) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// GetJSONBody makes a GET request and returns the `body` field of the
// response envelope.
func GetJSONBody(ctx context.Context, path string, incomingHeaders http.Header) ([]byte, error) {
	respBody, err := do(ctx, RequestOptions{
		Method:          http.MethodGet,
		Path:            path,
		IncomingHeaders: incomingHeaders,
	})
	if err != nil {
		return nil, err
	}

	return processJSONResponse(respBody)
}

// PostJSONBody sends payload as JSON and returns the `body` field of the
// response envelope.
func PostJSONBody(ctx context.Context, path string, payload any) ([]byte, error) {
	respBody, err := do(ctx, RequestOptions{
		Method:  http.MethodPost,
		Path:    path,
		Payload: payload,
	})
	if err != nil {
		return nil, err
	}

	return processJSONResponse(respBody)
}

// Do sends a request to the master and returns the response with its body read.
//
// Non-2xx statuses are not errors here. An error means no master produced
// a usable answer within the configured number of attempts.
func Do(ctx context.Context, opts RequestOptions) (*http.Response, []byte, error) {
	var policy cachePolicy
	if opts.Method == http.MethodGet {
		policy = determineCachePolicy(opts.Path, opts.IncomingHeaders)
		if policy.cached != nil {
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": {"application/json"}},
				Body:       io.NopCloser(bytes.NewReader(policy.cached)),
			}, policy.cached, nil
		}
	}

	manager := endpointmanager.Default
	if manager == nil || manager.Len() == 0 {
		return nil, nil, errNoEndpoint
	}

	payload, err := encodePayload(opts)
	if err != nil {
		return nil, nil, err
	}

	var (
		lastResp *http.Response
		lastBody []byte
		lastErr  error
	)

	for attempt := range manager.MaxRetries() {
		if manager.HealthyCount() == 0 {
			log.Warn().
				Int("endpoints", manager.Len()).
				Msg("Every master endpoint is timed out, putting all back in rotation")
		}

		endpoint := manager.GetEndpoint()

		resp, body, err := attemptRequest(ctx, endpoint, opts, payload)
		if err != nil {
			if isContextCanceled(err) && ctx.Err() != nil {
				return nil, nil, err
			}

			lastResp, lastBody, lastErr = nil, nil, err

			if !retryable(opts.Method, err, 0) {
				return nil, nil, err
			}

			manager.MarkEndpointStatus(endpoint, endpointmanager.TimedOut)
			logRetry(ctx, endpoint, attempt, err, 0)

			continue
		}

		if retryable(opts.Method, nil, resp.StatusCode) {
			lastResp, lastBody, lastErr = resp, body, nil

			manager.MarkEndpointStatus(endpoint, endpointmanager.TimedOut)
			logRetry(ctx, endpoint, attempt, nil, resp.StatusCode)

			continue
		}

		manager.MarkEndpointStatus(endpoint, endpointmanager.Good)

		if opts.Method == http.MethodGet && resp.StatusCode == http.StatusOK && policy.store {
			storeResponse(opts.Path, body)
		}

		return resp, body, nil
	}

	if lastResp != nil {
		return lastResp, lastBody, nil
	}

	return nil, nil, fmt.Errorf("%w after %d attempts: %w", ErrMasterUnavailable, manager.MaxRetries(), lastErr)
}

// do runs Do and turns error statuses into *APIError.
func do(ctx context.Context, opts RequestOptions) ([]byte, error) {
	resp, body, err := Do(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		message := gjson.GetBytes(body, "message").String()
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}

		if message == "" {
			message = "unknown master error"
		}

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    message,
			Err:        errAPIResponseError,
		}
	}

	return body, nil
}

// processJSONResponse unwraps the gateway envelope {"error","message","body"}.
// A response without a body field is returned whole.
func processJSONResponse(respBody []byte) ([]byte, error) {
	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, nil
	}

	if !gjson.ValidBytes(respBody) {
		return nil, fmt.Errorf("%w: %.200s", errInvalidJSON, respBody)
	}

	result := gjson.ParseBytes(respBody)

	if result.Get("error").Bool() {
		message := result.Get("message").String()
		if message == "" {
			message = "master reported an error with no message"
		}

		return nil, &APIError{
			StatusCode: http.StatusBadGateway,
			Message:    message,
			Err:        errAPIResponseError,
		}
	}

	body := result.Get("body")
	if !body.Exists() {
		return respBody, nil
	}

	return []byte(body.Raw), nil
}

func encodePayload(opts RequestOptions) ([]byte, error) {
	if opts.Method != http.MethodPost || opts.Payload == nil {
		return nil, nil
	}

	payload, err := json.Marshal(opts.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request payload: %w", err)
	}

	return payload, nil
}

// attemptRequest makes one call to endpoint, bounded by Master.RequestTimeout.
func attemptRequest(
	ctx context.Context,
	endpoint *endpointmanager.Endpoint,
	opts RequestOptions,
	payload []byte,
) (*http.Response, []byte, error) {
	if timeout := config.Global.Master.RequestTimeout; timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, endpoint.URL+opts.Path, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "galaxy-console/"+config.BuildVersion)

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return sendRequest(ctx, req, endpoint.URL)
}

// sendRequest executes req, reads the body for auditing, and returns the
// response with a fresh body reader along with the raw bytes.
func sendRequest(ctx context.Context, req *http.Request, endpoint string) (_ *http.Response, _ []byte, err error) {
	span := audit.Span{
		Destination: audit.ToMaster,
		RequestID:   request_context.FromContext(ctx).RequestID + "-" + idgen.Make(),
		Method:      req.Method,
		URL:         req.URL.String(),
		Endpoint:    endpoint,
	}

	defer func() {
		span.Error = err
		span.End()
		span.Log()
	}()

	_ = span.Begin(ctx)

	resp, err := utils.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	span.StatusCode = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	span.Body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return resp, body, nil
}

// retryable decides whether a failed attempt may be repeated on another endpoint.
//
// POSTs are only repeated when the master certainly did not act on them:
// the connection was never made, or a proxy reported the master missing.
func retryable(method string, err error, statusCode int) bool {
	if err != nil {
		if method == http.MethodGet {
			return true
		}

		var opErr *net.OpError

		return errors.As(err, &opErr) && opErr.Op == "dial"
	}

	switch statusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	case http.StatusInternalServerError:
		return method == http.MethodGet
	default:
		return false
	}
}

func logRetry(ctx context.Context, endpoint *endpointmanager.Endpoint, attempt int, err error, statusCode int) {
	event := log.Warn().
		Str("request_id", request_context.FromContext(ctx).RequestID).
		Str("endpoint", endpoint.URL).
		Int("attempt", attempt+1)

	if err != nil {
		event = event.Err(err)
	} else {
		event = event.Int("status_code", statusCode)
	}

	event.Msg("Master call failed, backing off endpoint")
}

// isContextCanceled returns true if the error is due to context cancellation or deadline exceeded.
func isContextCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
