// Package anthropic implements the C1 streaming protocol adapter and C9
// credential/header resolver against the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"io"
	"sync"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
	"github.com/agentrtkit/codexrt/runtime/protocol"
)

// eventBufferCapacity bounds the stream adapter's internal channel, giving
// a slow consumer headroom without letting the provider connection run
// unboundedly far ahead of it.
const eventBufferCapacity = 1600

// Stream adapts a single Anthropic Messages streaming response to a
// sequence of protocol.ResponseEvent, enforcing the ordering state machine
// in machine.go.
type Stream struct {
	ctx    context.Context
	cancel context.CancelFunc
	raw    *ssestream.Stream[sdk.MessageStreamEventUnion]

	events chan protocol.ResponseEvent

	errMu    sync.Mutex
	errSet   bool
	finalErr error
}

// NewStream starts consuming raw and returns a Stream that emits
// protocol.ResponseEvents in order. freeformToolNames marks which tool
// names (by their provider-visible name) should be decoded as
// CustomToolCall rather than FunctionCall.
func NewStream(ctx context.Context, raw *ssestream.Stream[sdk.MessageStreamEventUnion], freeformToolNames map[string]struct{}) *Stream {
	cctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		ctx:    cctx,
		cancel: cancel,
		raw:    raw,
		events: make(chan protocol.ResponseEvent, eventBufferCapacity),
	}
	go s.run(freeformToolNames)
	return s
}

// Recv returns the next event, io.EOF once the stream completed cleanly,
// or a typed codexerr on transport failure.
func (s *Stream) Recv() (protocol.ResponseEvent, error) {
	select {
	case ev, ok := <-s.events:
		if ok {
			return ev, nil
		}
		if err := s.err(); err != nil {
			return protocol.ResponseEvent{}, err
		}
		return protocol.ResponseEvent{}, io.EOF
	case <-s.ctx.Done():
		return protocol.ResponseEvent{}, codexerr.TurnAborted()
	}
}

// Close cancels the stream and releases the underlying SSE connection.
func (s *Stream) Close() error {
	s.cancel()
	if s.raw == nil {
		return nil
	}
	return s.raw.Close()
}

// Collect drains the stream to completion and returns every event in
// order, for the collect-and-validate interaction shape used in
// schema-constrained mode.
func (s *Stream) Collect() ([]protocol.ResponseEvent, error) {
	var out []protocol.ResponseEvent
	for {
		ev, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}

func (s *Stream) run(freeformToolNames map[string]struct{}) {
	defer close(s.events)
	defer func() {
		if s.raw != nil {
			_ = s.raw.Close()
		}
	}()

	machine := newStreamMachine(freeformToolNames)

	for {
		select {
		case <-s.ctx.Done():
			s.setErr(codexerr.TurnAborted())
			return
		default:
		}

		if !s.raw.Next() {
			if err := s.raw.Err(); err != nil {
				s.setErr(classifyTransportError(err))
			}
			return
		}

		raw, err := toRawEvent(s.raw.Current())
		if err != nil {
			s.setErr(err)
			return
		}
		if raw == nil {
			continue
		}

		events, err := machine.Feed(*raw)
		if err != nil {
			s.setErr(codexerr.Stream("%v", err))
			return
		}
		for _, ev := range events {
			if !s.emit(ev) {
				return
			}
		}
	}
}

func (s *Stream) emit(ev protocol.ResponseEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		s.setErr(codexerr.TurnAborted())
		return false
	}
}

func (s *Stream) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.errSet {
		return
	}
	s.errSet = true
	s.finalErr = err
}

func (s *Stream) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.finalErr
}

// toRawEvent converts one SDK stream event into the machine's neutral
// shape. A nil, nil return means the event carries no state-machine
// relevant information (unknown delta variants or event types) and is not
// a defect.
func toRawEvent(event sdk.MessageStreamEventUnion) (*rawEvent, error) {
	switch ev := event.AsAny().(type) {
	case sdk.MessageStartEvent:
		return &rawEvent{Kind: rawMessageStart, MessageID: ev.Message.ID}, nil

	case sdk.ContentBlockStartEvent:
		idx := int(ev.Index)
		switch block := ev.ContentBlock.AsAny().(type) {
		case sdk.TextBlock:
			return &rawEvent{Kind: rawContentBlockStart, Index: idx, BlockKind: rawBlockText, TextSeed: block.Text}, nil
		case sdk.ToolUseBlock:
			input := "{}"
			if len(block.Input) > 0 {
				if b, err := block.Input.MarshalJSON(); err == nil {
					input = string(b)
				}
			}
			return &rawEvent{
				Kind: rawContentBlockStart, Index: idx, BlockKind: rawBlockToolUse,
				ToolID: block.ID, ToolName: block.Name, ToolInput: input,
			}, nil
		default:
			return &rawEvent{Kind: rawContentBlockStart, Index: idx, BlockKind: rawBlockOther}, nil
		}

	case sdk.ContentBlockDeltaEvent:
		idx := int(ev.Index)
		switch delta := ev.Delta.AsAny().(type) {
		case sdk.TextDelta:
			return &rawEvent{Kind: rawContentBlockDelta, Index: idx, DeltaKind: rawDeltaText, Text: delta.Text}, nil
		case sdk.InputJSONDelta:
			return &rawEvent{Kind: rawContentBlockDelta, Index: idx, DeltaKind: rawDeltaInputJSON, PartialJSON: delta.PartialJSON}, nil
		case sdk.ThinkingDelta:
			return &rawEvent{Kind: rawContentBlockDelta, Index: idx, DeltaKind: rawDeltaThinking, Thinking: delta.Thinking}, nil
		case sdk.SignatureDelta:
			return &rawEvent{Kind: rawContentBlockDelta, Index: idx, DeltaKind: rawDeltaSignature, Signature: delta.Signature}, nil
		default:
			return nil, nil
		}

	case sdk.ContentBlockStopEvent:
		return &rawEvent{Kind: rawContentBlockStop, Index: int(ev.Index)}, nil

	case sdk.MessageDeltaEvent:
		return &rawEvent{
			Kind:       rawMessageDelta,
			StopReason: string(ev.Delta.StopReason),
			Usage: rawUsage{
				InputTokens:          int(ev.Usage.InputTokens),
				CacheReadInputTokens: int(ev.Usage.CacheReadInputTokens),
				OutputTokens:         int(ev.Usage.OutputTokens),
			},
		}, nil

	case sdk.MessageStopEvent:
		return &rawEvent{Kind: rawMessageStop}, nil

	default:
		return nil, nil
	}
}
