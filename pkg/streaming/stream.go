package streaming

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/llmwire/llmwire/pkg/provider/types"
)

// DefaultBufferSize is the capacity of the chunk queue between the reader
// task and the consumer. A full queue blocks the socket read.
const DefaultBufferSize = 64

// ErrInvalidToolArguments is the in-band error code emitted when an
// accumulated tool-call argument buffer fails to parse as JSON.
const ErrInvalidToolArguments = "invalid_tool_arguments"

// Decoder turns one SSE event into zero or more stream chunks. Decoders
// come from the provider codec layer and never fail; unrecognized events
// yield nil.
type Decoder func(Event) []types.StreamChunk

// Stream is a lazy, finite, single-pass sequence of StreamChunks fed by a
// dedicated reader goroutine. Each stream is independent; many can run in
// parallel.
type Stream struct {
	ch     chan types.StreamChunk
	cancel context.CancelFunc
	body   io.ReadCloser

	mu        sync.Mutex
	usage     *types.Usage
	finish    types.FinishReason
	model     string
	text      strings.Builder
	thinking  strings.Builder
	toolCalls []types.ToolCall
	readErr   error
	closed    bool

	done chan struct{}
}

// Start opens a stream over the given response body. The reader task
// parses SSE events, feeds them to decode, accumulates tool-call argument
// fragments, and forwards chunks to the bounded queue until a terminal
// condition is reached.
func Start(ctx context.Context, body io.ReadCloser, decode Decoder) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		ch:     make(chan types.StreamChunk, DefaultBufferSize),
		cancel: cancel,
		body:   body,
		done:   make(chan struct{}),
	}
	go s.run(ctx, decode)
	return s
}

// toolCallState is one entry of the per-stream accumulator, keyed by the
// tool call's per-turn index.
type toolCallState struct {
	id   string
	name string
	buf  strings.Builder
}

func (s *Stream) run(ctx context.Context, decode Decoder) {
	defer close(s.done)
	defer close(s.ch)
	defer s.body.Close()

	parser := NewParser(s.body)
	acc := map[int]*toolCallState{}
	var lastUsage *types.Usage
	finish := types.FinishReasonOther

	finalize := func(failed bool) {
		// Synthesized tool calls go out before the terminal meta, in
		// index order.
		indices := make([]int, 0, len(acc))
		for idx := range acc {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			state := acc[idx]
			raw := state.buf.String()
			if raw == "" {
				raw = "{}"
			}
			var args map[string]interface{}
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				s.send(ctx, types.MetaChunk(types.ChunkMeta{
					Err: ErrInvalidToolArguments,
					ErrDetail: map[string]interface{}{
						"index": idx,
						"id":    state.id,
					},
				}))
				continue
			}
			chunk := types.StreamChunk{
				Type:       types.ChunkTypeToolCall,
				ToolName:   state.name,
				ToolCallID: state.id,
				Index:      idx,
				ToolArgs:   args,
			}
			s.recordToolCall(state, raw)
			s.send(ctx, chunk)
		}
		if failed {
			finish = types.FinishReasonError
		}
		if len(acc) > 0 && finish == types.FinishReasonOther {
			finish = types.FinishReasonToolCalls
		}
		s.mu.Lock()
		s.usage = lastUsage
		s.finish = finish
		s.mu.Unlock()
		s.send(ctx, types.MetaChunk(types.ChunkMeta{
			Terminal:     true,
			FinishReason: finish,
			Usage:        lastUsage,
		}))
	}

	for {
		event, err := parser.Next()
		if err == io.EOF {
			finalize(false)
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				// Cancelled by the consumer; no terminal chunk is owed.
				return
			}
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			s.send(ctx, types.MetaChunk(types.ChunkMeta{
				Err:       "stream_read_failed",
				ErrDetail: map[string]interface{}{"reason": err.Error()},
			}))
			finalize(true)
			return
		}

		if event.Done() {
			finalize(false)
			return
		}

		terminal := false
		for _, chunk := range decode(*event) {
			switch chunk.Type {
			case types.ChunkTypeText:
				s.mu.Lock()
				s.text.WriteString(chunk.Text)
				s.mu.Unlock()
				s.send(ctx, chunk)
			case types.ChunkTypeThinking:
				s.mu.Lock()
				s.thinking.WriteString(chunk.Text)
				s.mu.Unlock()
				s.send(ctx, chunk)
			case types.ChunkTypeToolCall:
				// Start of a tool call: record id and name, hold the
				// chunk until finalization.
				state, ok := acc[chunk.Index]
				if !ok {
					state = &toolCallState{}
					acc[chunk.Index] = state
				}
				state.id = chunk.ToolCallID
				state.name = chunk.ToolName
			case types.ChunkTypeMeta:
				meta := chunk.Meta
				if meta == nil {
					continue
				}
				if meta.ToolCallArgs != nil {
					state, ok := acc[meta.ToolCallArgs.Index]
					if !ok {
						state = &toolCallState{}
						acc[meta.ToolCallArgs.Index] = state
					}
					state.buf.WriteString(meta.ToolCallArgs.Fragment)
					continue
				}
				if meta.Usage != nil {
					lastUsage = mergeUsage(lastUsage, meta.Usage)
				}
				if meta.Model != "" {
					s.mu.Lock()
					s.model = meta.Model
					s.mu.Unlock()
				}
				if meta.FinishReason != "" {
					finish = meta.FinishReason
				}
				if meta.Terminal {
					terminal = true
					continue
				}
				if meta.Usage != nil || meta.Err != "" {
					s.send(ctx, chunk)
				}
			}
		}

		if terminal {
			finalize(false)
			return
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// mergeUsage folds a later usage observation into the running one.
// Vendors split counters across events (input at stream start, output at
// the end); non-zero fields of the newer observation win.
func mergeUsage(prev, next *types.Usage) *types.Usage {
	if prev == nil {
		u := *next
		return &u
	}
	merged := *prev
	if next.InputTokens != 0 {
		merged.InputTokens = next.InputTokens
	}
	if next.OutputTokens != 0 {
		merged.OutputTokens = next.OutputTokens
	}
	if next.ReasoningTokens != 0 {
		merged.ReasoningTokens = next.ReasoningTokens
	}
	if next.CachedTokens != 0 {
		merged.CachedTokens = next.CachedTokens
	}
	merged.TotalTokens = merged.InputTokens + merged.OutputTokens
	return &merged
}

func (s *Stream) recordToolCall(state *toolCallState, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolCalls = append(s.toolCalls, types.ToolCall{
		ID:        state.id,
		Name:      state.name,
		Arguments: raw,
	})
}

// send forwards a chunk to the consumer, blocking when the queue is full.
// A cancelled context drops the chunk and lets the reader unwind.
func (s *Stream) send(ctx context.Context, chunk types.StreamChunk) {
	select {
	case s.ch <- chunk:
	case <-ctx.Done():
	}
}

// Next returns the next chunk, or io.EOF once the stream has terminated.
func (s *Stream) Next() (*types.StreamChunk, error) {
	chunk, ok := <-s.ch
	if !ok {
		if err := s.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return &chunk, nil
}

// Close cancels the stream, severs the socket, and releases the reader
// task. Safe to call more than once and after normal completion.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	err := s.body.Close()
	// Drain so a blocked reader can finish.
	go func() {
		for range s.ch {
		}
	}()
	<-s.done
	return err
}

// Err returns the transport error that terminated the stream, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readErr
}

// Usage returns the last usage observed before the terminal chunk. Valid
// after the stream has terminated.
func (s *Stream) Usage() types.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usage == nil {
		return types.Usage{}
	}
	return *s.usage
}

// FinishReason returns the terminal finish reason. Valid after the stream
// has terminated.
func (s *Stream) FinishReason() types.FinishReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finish
}

// Model returns the model id echoed by the vendor during the stream.
func (s *Stream) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Message assembles the assistant message from everything the stream
// produced: thinking first, then text, then tool calls, matching the
// vendor segment order. Returns nil when the stream produced nothing.
// Valid after the stream has terminated.
func (s *Stream) Message() *types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var parts []types.ContentPart
	if s.thinking.Len() > 0 {
		parts = append(parts, types.ReasoningPart{Text: s.thinking.String()})
	}
	if s.text.Len() > 0 {
		parts = append(parts, types.TextPart{Text: s.text.String()})
	}
	for _, tc := range s.toolCalls {
		parts = append(parts, types.ToolCallPart(tc))
	}
	if len(parts) == 0 {
		return nil
	}
	return &types.Message{Role: types.RoleAssistant, Content: parts}
}

// CollectText drains the stream and returns the concatenated text
// content. The stream is single-pass; after CollectText only the post-hoc
// accessors remain useful.
func (s *Stream) CollectText() (string, error) {
	for {
		chunk, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		_ = chunk
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String(), nil
}
