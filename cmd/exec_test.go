package cmd

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"dolphinmem/pkg/memory"
)

func TestBindFailure(t *testing.T) {
	exhausted := fmt.Errorf("%w after %d attempts: %w", memory.ErrAcquireExhausted, 1, errors.New("no dolphin"))

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"bound", nil, nil},
		{"interrupted", fmt.Errorf("acquire: %w", context.Canceled), nil},
		{"closed", memory.ErrClosed, nil},
		{"exhausted", exhausted, memory.ErrAcquireExhausted},
		{"timeout", fmt.Errorf("acquire: %w", context.DeadlineExceeded), context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bindFailure(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestReportBind(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core).Sugar()

	bound := make(chan error, 1)
	bound <- fmt.Errorf("%w after %d attempts: %w", memory.ErrAcquireExhausted, 1, errors.New("no dolphin"))
	reportBind(bound, logger)

	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	if assert.Len(t, entries, 1) {
		assert.Contains(t, entries[0].Message, "stopped polling for Dolphin")
		assert.Contains(t, entries[0].Message, "no dolphin")
	}

	bound <- memory.ErrClosed
	reportBind(bound, logger)
	assert.Equal(t, 1, logs.Len())
}
