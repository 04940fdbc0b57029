package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTraceQuery_SlowQueryLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	SetSlowQueryLogging(time.Nanosecond, logger)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	_, end := TraceQuery(context.Background(), "ListLatest", "SELECT * FROM properties")
	time.Sleep(time.Millisecond)
	end(nil)

	assert.Contains(t, buf.String(), "slow query detected")
	assert.Contains(t, buf.String(), "ListLatest")
}

func TestTraceQuery_SlowQueryIncludesError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	SetSlowQueryLogging(time.Nanosecond, logger)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	_, end := TraceQuery(context.Background(), "GetByID", "SELECT * FROM properties WHERE id = $1")
	time.Sleep(time.Millisecond)
	end(errors.New("no rows"))

	assert.Contains(t, buf.String(), "no rows")
}

func TestTraceQuery_DisabledThresholdStaysQuiet(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	SetSlowQueryLogging(0, logger)

	_, end := TraceQuery(context.Background(), "Search", "SELECT 1")
	end(nil)

	assert.Empty(t, buf.String())
}
