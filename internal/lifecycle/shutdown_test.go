package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestShutdown_RunsHooksInReverseOrder(t *testing.T) {
	s := NewShutdown(testLogger())

	var order []string
	for _, name := range []string{"store", "manager", "bot"} {
		name := name
		s.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"bot", "manager", "store"}, order)
}

func TestShutdown_FailingHookDoesNotStopSequence(t *testing.T) {
	s := NewShutdown(testLogger())

	var order []string
	s.Register("store", func(context.Context) error {
		order = append(order, "store")
		return nil
	})
	s.Register("bot", func(context.Context) error {
		order = append(order, "bot")
		return errors.New("poller stuck")
	})

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot: poller stuck")
	assert.Equal(t, []string{"bot", "store"}, order)
}

func TestShutdown_NilHookIsIgnored(t *testing.T) {
	s := NewShutdown(testLogger())
	s.Register("noop", nil)

	assert.NoError(t, s.Execute(context.Background()))
}

func TestShutdown_NoHooksIsNoop(t *testing.T) {
	s := NewShutdown(testLogger())
	assert.NoError(t, s.Execute(context.Background()))
}
