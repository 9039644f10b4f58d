// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"fmt"
	"net/http"
	"sync"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// streamTerminator is the sentinel the mobile client watches for to
	// detect end of stream. Changing it breaks deployed clients.
	streamTerminator = "[DONE-UP]"

	// streamErrorNotice is appended to the body when generation dies
	// mid-stream, ahead of the terminator, so partial answers are flagged.
	streamErrorNotice = "\n[ERROR] Streaming interrupted"
)

// =============================================================================
// Interface Definition
// =============================================================================

// StreamSink decouples token production from the transport writing them out.
//
// # Description
//
// A synthesis loop emits tokens as they arrive and finishes the stream with
// exactly one Complete or Fail call. Implementations own framing: the
// production sink writes plain chunked text terminated by the client
// sentinel, a test sink can capture everything in memory.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; tokens may be produced
// from a different goroutine than the one that finalizes the stream.
type StreamSink interface {
	// Emit writes one token to the stream and flushes it immediately.
	// Returns an error if the stream is already finalized or the write failed.
	Emit(token string) error

	// Complete terminates the stream successfully. Idempotent; calls after
	// the first are no-ops.
	Complete() error

	// Fail terminates the stream after a mid-stream failure, flagging the
	// partial output before the terminator. Idempotent like Complete.
	Fail() error
}

// =============================================================================
// Struct Definition
// =============================================================================

// chunkedSink streams plain text over a chunked HTTP response.
//
// # Description
//
// chunkedSink writes raw token text with no event framing; the client renders
// the body as it arrives and stops at the terminator sentinel. This matches
// what the deployed mobile clients parse, so the sink must never wrap tokens
// in any envelope.
//
// # Thread Safety
//
// Thread-safe via mutex. Emit after finalization returns an error rather
// than corrupting the terminated body.
type chunkedSink struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	done    bool
	mu      sync.Mutex
}

var _ StreamSink = (*chunkedSink)(nil)

// =============================================================================
// Constructor
// =============================================================================

// NewStreamSink wraps a ResponseWriter as a chunked-text StreamSink.
//
// # Inputs
//
//   - w: HTTP ResponseWriter. Must implement http.Flusher.
//
// # Outputs
//
//   - StreamSink: Ready to emit tokens.
//   - error: Non-nil if the ResponseWriter cannot flush.
//
// # Example
//
//	SetStreamHeaders(c.Writer)
//	sink, err := NewStreamSink(c.Writer)
//	if err != nil {
//	    c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
//	    return
//	}
func NewStreamSink(w http.ResponseWriter) (StreamSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}

	return &chunkedSink{
		writer:  w,
		flusher: flusher,
	}, nil
}

// =============================================================================
// Methods
// =============================================================================

// Emit writes one token and flushes.
func (s *chunkedSink) Emit(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return fmt.Errorf("emit on finalized stream")
	}
	if token == "" {
		return nil
	}
	if _, err := fmt.Fprint(s.writer, token); err != nil {
		return fmt.Errorf("write token: %w", err)
	}

	s.flusher.Flush()
	return nil
}

// Complete writes the terminator sentinel and closes the stream.
func (s *chunkedSink) Complete() error {
	return s.finalize("")
}

// Fail flags the partial output and closes the stream.
func (s *chunkedSink) Fail() error {
	return s.finalize(streamErrorNotice)
}

func (s *chunkedSink) finalize(notice string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil
	}
	s.done = true

	if _, err := fmt.Fprint(s.writer, notice+streamTerminator); err != nil {
		return fmt.Errorf("write terminator: %w", err)
	}

	s.flusher.Flush()
	return nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// SetStreamHeaders configures response headers for chunked text streaming.
//
// # Description
//
// Sets Content-Type to UTF-8 plain text and disables proxy buffering so
// tokens reach the client as they are written. Must be called before the
// first write.
func SetStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
}
