package eventbus

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type admitted struct {
	id int64
}

type removed struct {
	id int64
}

func TestMatchSignature(t *testing.T) {
	t.Parallel()

	assert.True(t, MatchSignature(func(e *admitted) {}, []any{&admitted{}}))
	assert.False(t, MatchSignature(func(e *admitted) {}, []any{&removed{}}))
	assert.False(t, MatchSignature(func(e *admitted) {}, []any{}))
	assert.False(t, MatchSignature(func(e *admitted) {}, []any{&admitted{}, &admitted{}}))
	assert.True(t, MatchSignature(func(ctx context.Context) {}, []any{context.Background()}))
	assert.True(t, MatchSignature(func(e *admitted) {}, []any{nil}))
	assert.False(t, MatchSignature(func(id int64) {}, []any{nil}))
	assert.False(t, MatchSignature("not a func", []any{}))
}

func TestPublish_DeliversToMatchingHandlers(t *testing.T) {
	t.Parallel()

	bus := NewEventPublisher(logrus.New())
	var got []int64
	bus.Subscribe(func(e *admitted) { got = append(got, e.id) })
	bus.Subscribe(func(e *removed) { t.Error("removed handler should not run") })

	bus.Publish(&admitted{id: 7})
	assert.Equal(t, []int64{7}, got)
	assert.Equal(t, 2, bus.SubscribersCount())
}

func TestPublish_NoSubscribersIsLoggedAtDebug(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	bus := NewEventPublisher(logger)

	bus.Publish(&removed{id: 1})
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.ErrorIs(t, bus.PublishE(&removed{id: 1}), ErrNoSubscribers)
}

func TestPublish_PanicIsContained(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	bus := NewEventPublisher(logger)

	first, third := false, false
	bus.Subscribe(func(e *admitted) { first = true })
	bus.Subscribe(func(e *admitted) { panic("boom") })
	bus.Subscribe(func(e *admitted) { third = true })

	require.NotPanics(t, func() { bus.Publish(&admitted{id: 1}) })
	assert.True(t, first)
	assert.True(t, third)
	assert.Contains(t, buf.String(), "panicked")
	assert.Contains(t, buf.String(), "boom")
}

func TestPublishE_JoinsHandlerErrors(t *testing.T) {
	t.Parallel()

	bus := NewEventPublisher(nil)
	errA := errors.New("a failed")
	bus.Subscribe(func(e *admitted) error { return errA })
	bus.Subscribe(func(e *admitted) error { return nil })
	bus.Subscribe(func(e *admitted) (int, error) { return 0, nil })

	err := bus.PublishE(&admitted{id: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, ErrInvalidHandlerReturn)
}

func TestUnsubscribeAndClear(t *testing.T) {
	t.Parallel()

	bus := NewEventPublisher(nil)
	calls := 0
	handler := func(e *admitted) { calls++ }
	bus.Subscribe(handler)
	bus.Subscribe(func(e *removed) {})

	bus.Unsubscribe(handler)
	bus.Publish(&admitted{id: 1})
	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, bus.SubscribersCount())

	bus.Clear()
	assert.Equal(t, 0, bus.SubscribersCount())
}
