// Package sse frames pipeline events onto a Gin response writer as
// Server-Sent Events. A research run belongs to exactly one requester,
// so there is no broker: the handler drains the run's private channel
// straight to its own HTTP response.
package sse

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scoutline/relay/internal/events"
	"github.com/scoutline/relay/internal/logger"
)

// HeartbeatInterval is how often a comment line is written to keep
// reverse proxies and browsers from idling the connection out.
const HeartbeatInterval = 15 * time.Second

const (
	headerContentType     = "Content-Type"
	headerCacheControl    = "Cache-Control"
	headerConnection      = "Connection"
	headerXAccelBuffering = "X-Accel-Buffering"

	contentTypeEventStream = "text/event-stream"
)

// SetHeaders sets the standard SSE response headers on w.
func SetHeaders(w gin.ResponseWriter) {
	w.Header().Set(headerContentType, contentTypeEventStream)
	w.Header().Set(headerCacheControl, "no-cache")
	w.Header().Set(headerConnection, "keep-alive")
	w.Header().Set(headerXAccelBuffering, "no")
}

// Stream drains in and writes each event as an SSE frame to c's response
// writer: `event: <lowercase variant>` followed by `data: <json>`. It
// returns when in closes or the client disconnects. Heartbeats are
// written on HeartbeatInterval so the connection survives idle gaps
// between pipeline events.
func Stream(c *gin.Context, log logger.Logger, in <-chan events.Event) {
	SetHeaders(c.Writer)
	c.Writer.Flush()

	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-in:
			if !ok {
				return
			}
			if err := writeEvent(c.Writer, event); err != nil {
				log.Debug("sse: write failed, client likely disconnected", logger.Error(err))
				return
			}

		case <-ticker.C:
			if err := writeHeartbeat(c.Writer); err != nil {
				log.Debug("sse: heartbeat failed, client likely disconnected")
				return
			}

		case <-c.Request.Context().Done():
			log.Debug("sse: client request context cancelled")
			return
		}
	}
}

func writeEvent(w gin.ResponseWriter, event events.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.EventType()); err != nil {
		return fmt.Errorf("write event type: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event data: %w", err)
	}

	w.Flush()
	return nil
}

func writeHeartbeat(w gin.ResponseWriter) error {
	if _, err := fmt.Fprintf(w, ": heartbeat %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	w.Flush()
	return nil
}
