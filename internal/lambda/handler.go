// Package lambda adapts the calendar emitter to a serverless invocation:
// the payload is ignored and the document is returned as a string.
package lambda

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"unicode/utf8"

	"annualcal/internal/ics"
	appLog "annualcal/internal/log"
)

// ErrInvalidUTF8 is returned when the rendered document cannot be returned
// as a string.
var ErrInvalidUTF8 = errors.New("calendar document is not valid UTF-8")

// Renderer writes a calendar document.
type Renderer interface {
	Write(w io.Writer) error
}

var _ Renderer = (*ics.Emitter)(nil)

// Handler serves invocations with a single Renderer.
type Handler struct {
	renderer Renderer
}

func NewHandler(r Renderer) *Handler {
	return &Handler{renderer: r}
}

// Invoke renders the calendar into memory and returns it. The payload is
// ignored. A cancelled context aborts rendering between writes and the
// partial buffer is discarded.
func (h *Handler) Invoke(ctx context.Context, _ json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := h.renderer.Write(&ctxWriter{ctx: ctx, w: &buf}); err != nil {
		appLog.Error("render calendar failed", err)
		return "", err
	}
	if !utf8.Valid(buf.Bytes()) {
		appLog.Error("render calendar failed", ErrInvalidUTF8, "bytes", buf.Len())
		return "", ErrInvalidUTF8
	}
	appLog.Info("calendar rendered", "bytes", buf.Len())
	return buf.String(), nil
}

// ctxWriter fails writes once its context is done.
type ctxWriter struct {
	ctx context.Context
	w   io.Writer
}

func (cw *ctxWriter) Write(p []byte) (int, error) {
	if err := cw.ctx.Err(); err != nil {
		return 0, err
	}
	return cw.w.Write(p)
}
