package remotedata

import (
	"context"
)

// Emit delivers one value to a subscriber. It returns false once the
// subscriber is gone; the producer must then return.
type Emit[T any] func(T) bool

// Stream is a cold sequence of values. The producer runs once per
// subscription, in its own goroutine.
type Stream[T any] struct {
	run func(ctx context.Context, emit Emit[T])
}

// NewStream creates a stream from a producer.
func NewStream[T any](run func(ctx context.Context, emit Emit[T])) Stream[T] {
	return Stream[T]{run: run}
}

// Subscribe starts the producer and returns the channel it delivers on. The
// channel is unbuffered and closes when the producer returns or ctx is done.
func (s Stream[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T)
	go func() {
		defer close(ch)
		if s.run == nil {
			return
		}
		s.run(ctx, func(v T) bool {
			select {
			case ch <- v:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return ch
}

// Run drives the producer on the calling goroutine. Subscribe is built on it;
// composite streams use it to forward without an extra channel hop.
func (s Stream[T]) Run(ctx context.Context, emit Emit[T]) {
	if s.run != nil {
		s.run(ctx, emit)
	}
}

// Just returns a stream that emits values and completes.
func Just[T any](values ...T) Stream[T] {
	return NewStream(func(_ context.Context, emit Emit[T]) {
		for _, v := range values {
			if !emit(v) {
				return
			}
		}
	})
}

// Map transforms every value of s.
func Map[A, B any](s Stream[A], fn func(A) B) Stream[B] {
	return NewStream(func(ctx context.Context, emit Emit[B]) {
		s.Run(ctx, func(a A) bool {
			return emit(fn(a))
		})
	})
}

// MapPayload transforms the payload of Success snapshots. A mapping error
// turns the snapshot into Failed; other states pass through.
func MapPayload[A, B any](s Stream[RemoteData[A]], fn func(A) (B, error)) Stream[RemoteData[B]] {
	return Map(s, func(rd RemoteData[A]) RemoteData[B] {
		payload, ok := rd.Payload()
		if !rd.HasSucceeded() || !ok {
			return Convert[B](rd)
		}
		b, err := fn(payload)
		if err != nil {
			return Failed[B](ErrorFrom(err)).WithTimeCompleted(rd.TimeCompleted())
		}
		out := Success(b).WithTimeCompleted(rd.TimeCompleted())
		if rd.IsStale() {
			out = out.WithStale()
		}
		return out
	})
}

// Chain switches to the stream fn returns for each successful payload of s.
// Pending and failed snapshots of s are forwarded converted, so a failure
// upstream is mirrored downstream unchanged.
func Chain[A, B any](s Stream[RemoteData[A]], fn func(A) Stream[RemoteData[B]]) Stream[RemoteData[B]] {
	return NewStream(func(ctx context.Context, emit Emit[RemoteData[B]]) {
		s.Run(ctx, func(rd RemoteData[A]) bool {
			payload, ok := rd.Payload()
			if !rd.HasSucceeded() || !ok {
				return emit(Convert[B](rd))
			}
			alive := true
			fn(payload).Run(ctx, func(b RemoteData[B]) bool {
				alive = emit(b)
				return alive
			})
			return alive
		})
	})
}

// Await returns the first terminal snapshot of s. If ctx ends first, the
// result is Failed with status 0.
func Await[T any](ctx context.Context, s Stream[RemoteData[T]]) RemoteData[T] {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for rd := range s.Subscribe(ctx) {
		if rd.HasCompleted() {
			return rd
		}
	}
	if err := ctx.Err(); err != nil {
		return Failed[T](ErrorFrom(err))
	}
	return Failed[T](ErrorInfo{Message: "stream completed without a result"})
}

// Collect subscribes and gathers every value until the stream completes or
// ctx is done.
func Collect[T any](ctx context.Context, s Stream[T]) []T {
	var out []T
	for v := range s.Subscribe(ctx) {
		out = append(out, v)
	}
	return out
}
