package telemetry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pluginforge/core/internal/telemetry"
)

func TestNewFallsBackToStdoutProvider(t *testing.T) {
	inst, err := telemetry.New(nil, nil)
	require.NoError(t, err)
	require.NotNil(t, inst)
	inst.RecordCall(context.Background(), "search", 5*time.Millisecond, true)
}

func TestTimerRecordsElapsedAndOutcome(t *testing.T) {
	inst, err := telemetry.New(nil, nil)
	require.NoError(t, err)

	timer := inst.Timer("recommend")
	time.Sleep(time.Millisecond)
	timer.Stop(context.Background(), false)
}

func TestStdoutMeterProviderExportsReadableJSON(t *testing.T) {
	var buf bytes.Buffer
	mp, err := telemetry.NewStdoutMeterProvider(&buf)
	require.NoError(t, err)

	inst, err := telemetry.New(mp, nil)
	require.NoError(t, err)
	inst.RecordCall(context.Background(), "index_plugin", time.Millisecond, true)

	require.NoError(t, mp.ForceFlush(context.Background()))
	require.NoError(t, mp.Shutdown(context.Background()))

	require.Positive(t, buf.Len())
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
}
