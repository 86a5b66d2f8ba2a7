package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/heddlehq/heddle/internal/provider"
	"github.com/heddlehq/heddle/internal/tools"
)

// Defaults for Options.
const (
	DefaultMaxIterations     = 20
	DefaultDoomLoopThreshold = 3
)

var errNoChoice = errors.New("no choice in response")

// Client is the provider surface the loop drives. *provider.Client
// satisfies it; tests substitute fakes.
type Client interface {
	Send(ctx context.Context, conversation []provider.Message, tools []provider.ToolDefinition, overrides map[string]any) (*provider.Response, error)
	Stream(ctx context.Context, conversation []provider.Message, tools []provider.ToolDefinition, overrides map[string]any) (*provider.StreamReader, error)
}

// Options tune one run. Zero values take the defaults.
type Options struct {
	MaxIterations     int
	DoomLoopThreshold int
	RequestOverrides  map[string]any
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.DoomLoopThreshold <= 0 {
		o.DoomLoopThreshold = DefaultDoomLoopThreshold
	}
	return o
}

// Loop runs completions against a conversation it mutates in place: each
// iteration appends the assistant message, then one tool message per call.
// Termination, iteration caps, and repeated-call detection surface as
// events; provider and transport failures surface as returned errors.
type Loop struct {
	client   Client
	registry *tools.Registry
	conv     *[]provider.Message
	opts     Options
}

func New(client Client, registry *tools.Registry, conv *[]provider.Message, opts Options) *Loop {
	return &Loop{client: client, registry: registry, conv: conv, opts: opts.withDefaults()}
}

// Run executes the loop without streaming.
func (l *Loop) Run(ctx context.Context, emit Sink) error {
	return l.run(ctx, emit, false)
}

// RunStream executes the loop with streaming completions, emitting
// content_delta events as text arrives. Event order per iteration is
// otherwise identical to Run.
func (l *Loop) RunStream(ctx context.Context, emit Sink) error {
	return l.run(ctx, emit, true)
}

func (l *Loop) run(ctx context.Context, emit Sink, streaming bool) error {
	win := &window{threshold: l.opts.DoomLoopThreshold}
	defs := l.registry.Definitions()

	for iter := 0; iter < l.opts.MaxIterations; iter++ {
		slog.Debug("loop iteration", "channel", "agent", "iteration", iter+1, "streaming", streaming)

		var (
			msg   provider.Message
			usage *provider.Usage
			err   error
		)
		if streaming {
			msg, usage, err = l.streamOnce(ctx, defs, emit)
		} else {
			msg, usage, err = l.sendOnce(ctx, defs)
		}
		if err != nil {
			if errors.Is(err, errNoChoice) {
				return emit(Event{Kind: EventError, Err: "No choice in response"})
			}
			return err
		}

		*l.conv = append(*l.conv, msg)
		if err := emit(Event{Kind: EventAssistantMessage, Message: &msg}); err != nil {
			return err
		}
		if usage != nil {
			if err := emit(Event{Kind: EventUsage, Usage: usage}); err != nil {
				return err
			}
		}

		if len(msg.ToolCalls) == 0 {
			return nil
		}

		for i := range msg.ToolCalls {
			call := msg.ToolCalls[i]
			if err := emit(Event{Kind: EventToolStart, Call: &call}); err != nil {
				return err
			}
			result, err := l.registry.Execute(ctx, call.Function.Name, call.Function.Arguments)
			if err != nil {
				return err
			}
			*l.conv = append(*l.conv, provider.ToolMessage(call.ID, result))
			if err := emit(Event{Kind: EventToolEnd, Call: &call, Result: result}); err != nil {
				return err
			}
		}

		win.push(fingerprint(msg.ToolCalls))
		if win.looping() {
			slog.Debug("doom loop detected", "channel", "agent", "iterations", l.opts.DoomLoopThreshold)
			return emit(Event{Kind: EventLoopDetected, Count: l.opts.DoomLoopThreshold})
		}
	}

	return emit(Event{Kind: EventError, Err: fmt.Sprintf("Max iterations (%d) reached — possible infinite loop", l.opts.MaxIterations)})
}

func (l *Loop) sendOnce(ctx context.Context, defs []provider.ToolDefinition) (provider.Message, *provider.Usage, error) {
	resp, err := l.client.Send(ctx, *l.conv, defs, l.opts.RequestOverrides)
	if err != nil {
		return provider.Message{}, nil, err
	}
	if len(resp.Choices) == 0 {
		return provider.Message{}, nil, errNoChoice
	}
	return resp.Choices[0].Message, resp.Usage, nil
}

func (l *Loop) streamOnce(ctx context.Context, defs []provider.ToolDefinition, emit Sink) (provider.Message, *provider.Usage, error) {
	stream, err := l.client.Stream(ctx, *l.conv, defs, l.opts.RequestOverrides)
	if err != nil {
		return provider.Message{}, nil, err
	}
	defer stream.Close()

	asm := newAssembler()
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return provider.Message{}, nil, err
		}
		if delta := asm.add(chunk); delta != "" {
			if err := emit(Event{Kind: EventContentDelta, Delta: delta}); err != nil {
				return provider.Message{}, nil, err
			}
		}
	}
	return asm.message(), asm.usage, nil
}
