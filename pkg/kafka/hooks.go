package kafka

import (
	"context"
	"fmt"
)

// ConsumerHook defines lifecycle hooks around message handling.
// Returning a non-nil error from BeforeHandle skips the handler and treats
// the message as failed.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, topic string, data []byte) (context.Context, []byte, error)
	AfterHandle(ctx context.Context, topic string, data []byte, err error)
	OnError(ctx context.Context, topic string, data []byte, err error)
}

// NoopHook is a default hook that does nothing.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ string, data []byte) (context.Context, []byte, error) {
	return ctx, data, nil
}

func (NoopHook) AfterHandle(context.Context, string, []byte, error) {}

func (NoopHook) OnError(context.Context, string, []byte, error) {}

// HookError represents an error produced by a hook.
// Code classifies the error (e.g. "ERR_TOO_LARGE").
type HookError struct {
	Code string
	Err  error
}

func (e *HookError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *HookError) Unwrap() error { return e.Err }

// HookFuncs is an adapter that implements ConsumerHook from plain functions.
// All functions are optional; nil functions are treated as no-ops.
type HookFuncs struct {
	Before func(context.Context, string, []byte) (context.Context, []byte, error)
	After  func(context.Context, string, []byte, error)
	Err    func(context.Context, string, []byte, error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, topic string, data []byte) (context.Context, []byte, error) {
	if h.Before == nil {
		return ctx, data, nil
	}
	return h.Before(ctx, topic, data)
}

func (h HookFuncs) AfterHandle(ctx context.Context, topic string, data []byte, err error) {
	if h.After != nil {
		h.After(ctx, topic, data, err)
	}
}

func (h HookFuncs) OnError(ctx context.Context, topic string, data []byte, err error) {
	if h.Err != nil {
		h.Err(ctx, topic, data, err)
	}
}

// MaxSizeHook rejects messages larger than limit bytes before they are decoded.
func MaxSizeHook(limit int) ConsumerHook {
	return HookFuncs{
		Before: func(ctx context.Context, _ string, data []byte) (context.Context, []byte, error) {
			if limit > 0 && len(data) > limit {
				return ctx, data, Permanent(&HookError{
					Code: "ERR_TOO_LARGE",
					Err:  fmt.Errorf("message of %d bytes exceeds %d", len(data), limit),
				})
			}
			return ctx, data, nil
		},
	}
}
