// File: internal/sink/stdout.go
package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/wildmooseai/pageprep/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriterSink writes events as JSON lines to a writer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink over an arbitrary writer.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// NewStdoutSink creates a sink over standard output.
func NewStdoutSink() *WriterSink {
	return NewWriterSink(os.Stdout)
}

func (s *WriterSink) Emit(ctx context.Context, ev schemas.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

func (s *WriterSink) Close() error { return nil }
