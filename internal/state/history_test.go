package state_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"codeberg.org/mutker/obsctl/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(i int) state.HistoryRecord {
	v := float64(i)
	return state.HistoryRecord{
		Timestamp:     fmt.Sprintf("t%03d", i),
		MotorReadings: state.MotorReadings{MotorRaAz: &v},
	}
}

func TestHistoryAppend(t *testing.T) {
	var h state.History
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Records())

	for i := 0; i < 3; i++ {
		h.Append(record(i))
	}
	require.Equal(t, 3, h.Len())
	assert.Equal(t, "t000", h.Records()[0].Timestamp)
	assert.Equal(t, "t002", h.Records()[2].Timestamp)
}

func TestHistoryEvictsOldest(t *testing.T) {
	var h state.History
	for i := 0; i < 250; i++ {
		h.Append(record(i))
	}

	records := h.Records()
	require.Len(t, records, state.HistoryCapacity)
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("t%03d", 150+i), r.Timestamp)
	}
}

func TestHistoryValueSemantics(t *testing.T) {
	var h state.History
	h.Append(record(1))

	c := h
	c.Append(record(2))

	assert.Equal(t, 1, h.Len())
	assert.Equal(t, 2, c.Len())
}

func TestHistoryJSON(t *testing.T) {
	var h state.History
	h.Append(record(7))

	data, err := json.Marshal(h)
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "t007", out[0]["time"])
	assert.Equal(t, 7.0, out[0]["motorRaAz"])
	assert.Nil(t, out[0]["keypadPcb"])
}
