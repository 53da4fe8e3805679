package models

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kris-hansen/scrollystory/utils/config"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// Stream is an in-flight streaming completion. Fragments arrive in order on Fragments;
// Text accumulates everything received so far.
type Stream struct {
	fragments chan string
	done      chan struct{}
	body      io.ReadCloser
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu         sync.Mutex
	text       strings.Builder
	terminated bool
	err        error
}

func newStream(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser) *Stream {
	s := &Stream{
		fragments: make(chan string),
		done:      make(chan struct{}),
		body:      body,
		cancel:    cancel,
	}
	go s.run(ctx)
	return s
}

func (s *Stream) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.fragments)
	defer s.closeBody()

	terminated, err := decodeStream(s.body, func(fragment string) bool {
		s.mu.Lock()
		s.text.WriteString(fragment)
		s.mu.Unlock()

		select {
		case s.fragments <- fragment:
			return true
		case <-ctx.Done():
			return false
		}
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminated = terminated
	switch {
	case terminated:
		s.err = nil
	case ctx.Err() != nil:
		s.err = ctx.Err()
	case err != nil:
		s.err = err
	default:
		s.err = ErrStreamTruncated
	}
	config.DebugLog("Stream finished: %d characters, terminated=%v, err=%v", s.text.Len(), terminated, s.err)
}

// Fragments yields each non-empty content delta. The channel closes when the stream ends.
func (s *Stream) Fragments() <-chan string {
	return s.fragments
}

// Wait discards fragments not yet received, blocks until the stream ends and reports how it ended:
// nil after [DONE], ErrStreamTruncated if the body ended without it, otherwise the context or read error.
func (s *Stream) Wait() error {
	for range s.fragments {
	}
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Terminated reports whether the [DONE] terminator was received
func (s *Stream) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// Text returns the content received so far
func (s *Stream) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// Close abandons the stream and releases the response body. It is safe to call more than once.
func (s *Stream) Close() error {
	s.cancel()
	s.closeBody()
	for range s.fragments {
	}
	<-s.done
	return nil
}

func (s *Stream) closeBody() {
	s.closeOnce.Do(func() {
		s.body.Close()
	})
}

// decodeStream reads server-sent events, calling emit for each non-empty content delta.
// Lines without the data prefix and payloads that are not valid JSON are skipped. It returns
// true once the [DONE] terminator is seen; emit returning false stops decoding.
func decodeStream(r io.Reader, emit func(string) bool) (bool, error) {
	reader := bufio.NewReader(r)
	for {
		line, readErr := reader.ReadString('\n')
		if line != "" {
			line = strings.TrimRight(line, "\r\n")
			if strings.HasPrefix(line, dataPrefix) {
				payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
				if payload == doneSentinel {
					return true, nil
				}
				if fragment, ok := parseChunk(payload); ok && fragment != "" {
					if !emit(fragment) {
						return false, nil
					}
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return false, nil
			}
			return false, readErr
		}
	}
}

func parseChunk(payload string) (string, bool) {
	var chunk openai.ChatCompletionStreamResponse
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		config.DebugLog("Skipping unparseable stream chunk: %v", err)
		return "", false
	}
	if len(chunk.Choices) == 0 {
		return "", true
	}
	return chunk.Choices[0].Delta.Content, true
}
