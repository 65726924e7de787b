// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package audit

import (
	"context"
	"encoding/base64"
	"os"
	"path"
	"runtime/trace"
	"strconv"
	"time"

	"github.com/docker/go-units"
	servertiming "github.com/mitchellh/go-server-timing"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Span represents an HTTP exchange in flight, either a console page served
// to a user or a call made to the Galaxy master.
type Span struct {
	// set by Begin and End
	task     *trace.Task
	start    time.Time
	duration time.Duration
	metric   *servertiming.Metric

	Destination TrafficDestination
	RequestID   string
	Method      string
	URL         string
	// Endpoint is the master endpoint that served a ToMaster span.
	Endpoint   string
	StatusCode int
	Error      error
	Body       []byte // only kept for response saving

	responseFilename string
}

// TrafficDestination describes the logical destination of an HTTP request.
type TrafficDestination string

const (
	ToUser   TrafficDestination = "user"
	ToMaster TrafficDestination = "master"

	responseFilePermissions = 0o600
)

var (
	// SaveResponses indicates whether master response bodies are written to ResponseDirectory.
	SaveResponses bool

	// ResponseDirectory is where saved master responses go.
	ResponseDirectory string
)

// ServerTimingName encodes the span as a Server-Timing metric name:
// "<destination>$<method>$<base64url(url)>".
func (span Span) ServerTimingName() string {
	return string(span.Destination) + "$" + span.Method + "$" + base64.RawURLEncoding.EncodeToString([]byte(span.URL))
}

// Begin starts the span timer and, when ctx carries a server-timing header, registers a metric.
func (span *Span) Begin(ctx context.Context) context.Context {
	span.start = time.Now()

	ctx, span.task = trace.NewTask(ctx, "http."+string(span.Destination))
	if timing := servertiming.FromContext(ctx); timing != nil {
		span.metric = timing.NewMetric(span.ServerTimingName())
		span.metric.Extra = map[string]string{
			"start": strconv.FormatFloat(float64(span.start.UnixNano())/float64(time.Millisecond), 'f', -1, 64),
		}
	}

	return ctx
}

// End stops the timer. Calling it more than once has no effect.
func (span *Span) End() {
	if span.task == nil {
		return
	}

	span.duration = time.Since(span.start)
	span.task.End()

	if span.metric != nil {
		span.metric.Duration = span.duration
	}

	span.task = nil
}

// Duration reports how long the span ran. It is zero before End.
func (span Span) Duration() time.Duration {
	return span.duration
}

// Log writes the span to the global logger.
//
// Failed master calls are logged at warn level, everything else at debug.
func (span Span) Log() {
	if span.Destination == ToMaster && len(span.Body) > 0 && SaveResponses {
		filename := path.Join(ResponseDirectory, span.RequestID)

		if err := os.WriteFile(filename, span.Body, responseFilePermissions); err != nil {
			log.Err(err).
				Str("request_id", span.RequestID).
				Msg("Failed to save response")
		} else {
			span.responseFilename = filename
		}
	}

	var event *zerolog.Event
	if span.Destination == ToMaster && (span.Error != nil || span.StatusCode >= 500) {
		event = log.Warn()
	} else {
		event = log.Debug()
	}

	event.Str("sys", "http").
		Str("method", span.Method).
		Str("url", span.URL).
		Int("status_code", span.StatusCode).
		Str("len", units.BytesSize(float64(len(span.Body)))).
		Dur("dur", span.duration).
		Str("destination", string(span.Destination)).
		Str("request_id", span.RequestID)

	if span.Endpoint != "" {
		event.Str("endpoint", span.Endpoint)
	}

	if span.responseFilename != "" {
		event.Str("response_filename", span.responseFilename)
	}

	if span.Error != nil {
		event.Err(span.Error)
	}

	event.Send()
}
