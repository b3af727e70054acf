package toolregistry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
	"github.com/agentrtkit/codexrt/runtime/hooks"
	"github.com/agentrtkit/codexrt/runtime/protocol"
)

type fakeHandler struct {
	kind       HandlerKind
	matchKind  PayloadKind
	mutating   bool
	handleFunc func(ctx context.Context, inv Invocation) (protocol.ToolOutput, error)
}

func (f *fakeHandler) Kind() HandlerKind              { return f.kind }
func (f *fakeHandler) MatchesKind(k PayloadKind) bool { return k == f.matchKind }
func (f *fakeHandler) IsMutating(Invocation) bool     { return f.mutating }
func (f *fakeHandler) Handle(ctx context.Context, inv Invocation) (protocol.ToolOutput, error) {
	return f.handleFunc(ctx, inv)
}

func newTestDispatcher(reg *ToolRegistry) *Dispatcher {
	return NewDispatcher(reg, hooks.Hooks{}, hooks.NewDispatcher(nil), nil, nil, nil)
}

func TestDispatchUnknownToolIsRespondToModel(t *testing.T) {
	reg := NewToolRegistry()
	d := newTestDispatcher(reg)

	_, err := d.Dispatch(context.Background(), DispatchContext{}, Invocation{
		ToolInvocation: protocol.ToolInvocation{Name: "does_not_exist"},
		PayloadKind:    PayloadFunction,
	})
	require.Error(t, err)
	assert.Equal(t, codexerr.KindRespondToModel, codexerr.KindOf(err))
}

func TestDispatchIncompatiblePayloadIsFatal(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register("shell", &fakeHandler{kind: HandlerFunction, matchKind: PayloadFunction})
	d := newTestDispatcher(reg)

	_, err := d.Dispatch(context.Background(), DispatchContext{}, Invocation{
		ToolInvocation: protocol.ToolInvocation{Name: "shell"},
		PayloadKind:    PayloadMCP,
	})
	require.Error(t, err)
	assert.Equal(t, codexerr.KindFatal, codexerr.KindOf(err))
}

func TestDispatchSuccessReturnsOutput(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register("shell", &fakeHandler{
		kind: HandlerFunction, matchKind: PayloadFunction,
		handleFunc: func(ctx context.Context, inv Invocation) (protocol.ToolOutput, error) {
			return protocol.ToolOutput{CallID: inv.CallID, Status: protocol.ToolOutputSuccess, Output: "ok"}, nil
		},
	})
	d := newTestDispatcher(reg)

	out, err := d.Dispatch(context.Background(), DispatchContext{}, Invocation{
		ToolInvocation: protocol.ToolInvocation{Name: "shell", CallID: "call_1"},
		PayloadKind:    PayloadFunction,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Output)
}

func TestGateSerializesMutatingCalls(t *testing.T) {
	reg := NewToolRegistry()
	var active int32
	var sawOverlap bool
	var mu sync.Mutex
	reg.Register("mutator", &fakeHandler{
		kind: HandlerFunction, matchKind: PayloadFunction, mutating: true,
		handleFunc: func(ctx context.Context, inv Invocation) (protocol.ToolOutput, error) {
			n := atomic.AddInt32(&active, 1)
			if n > 1 {
				mu.Lock()
				sawOverlap = true
				mu.Unlock()
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return protocol.ToolOutput{}, nil
		},
	})
	d := newTestDispatcher(reg)
	gate := NewGate()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Dispatch(context.Background(), DispatchContext{Gate: gate}, Invocation{
				ToolInvocation: protocol.ToolInvocation{Name: "mutator"},
				PayloadKind:    PayloadFunction,
			})
		}()
	}
	wg.Wait()

	assert.False(t, sawOverlap, "gate must serialize concurrent mutating calls")
}
