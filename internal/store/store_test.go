package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wisbric/shiftroster/internal/dateutil"
	"github.com/wisbric/shiftroster/internal/engine"
)

func sampleResult() (*engine.Config, *engine.Result) {
	d := dateutil.Normalize(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := &engine.Config{
		StartDate: d,
		EndDate:   d,
		NumShifts: 1,
		Holidays:  map[time.Time]struct{}{},
	}
	state := &engine.State{
		Config:   cfg,
		Schedule: engine.Schedule{d: {"w1"}},
	}
	result := &engine.Result{
		State: state,
		Statistics: engine.Statistics{
			Coverage:   1.0,
			Violations: map[string]int{"weekend_cap": 0},
		},
		Warnings: []string{"restart 2 of 3 exhausted without reaching zero violations"},
	}
	return cfg, result
}

func TestMarshalConfigRoundTrips(t *testing.T) {
	cfg, _ := sampleResult()
	b, err := marshalConfig(cfg)
	require.NoError(t, err)

	var decoded engine.Config
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.True(t, decoded.StartDate.Equal(cfg.StartDate))
	require.Equal(t, cfg.NumShifts, decoded.NumShifts)
}

func TestMarshalResultAndUnmarshalRunRoundTrips(t *testing.T) {
	cfg, result := sampleResult()
	configBytes, err := marshalConfig(cfg)
	require.NoError(t, err)
	resultBytes, err := marshalResult(result)
	require.NoError(t, err)

	var row Run
	require.NoError(t, unmarshalRun(&row, configBytes, resultBytes))

	require.Equal(t, cfg.NumShifts, row.Config.NumShifts)
	require.Equal(t, 1.0, row.Statistics.Coverage)
	require.Equal(t, []string{"w1"}, row.Schedule[cfg.StartDate])
	require.Len(t, row.Warnings, 1)
}

func TestUnmarshalRunHandlesEmptyColumns(t *testing.T) {
	var row Run
	require.NoError(t, unmarshalRun(&row, nil, nil))
	require.NotNil(t, row.Config)
	require.Nil(t, row.Statistics)
}
