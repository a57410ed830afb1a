package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIAccessEmitsStructuredEvent(t *testing.T) {
	log := New("logger-test", "info")
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.PIIAccess(7, 42, "patient.view", true)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, true, event["pii_access"])
	assert.Equal(t, float64(7), event["user_id"])
	assert.Equal(t, float64(42), event["patient_id"])
	assert.Equal(t, "patient.view", event["action"])
	assert.Equal(t, true, event["sensitive"])
	assert.Equal(t, "logger-test", event["service"])
}

func TestContextHelpersSetFields(t *testing.T) {
	log := New("logger-test", "info")

	assert.Equal(t, int64(7), log.WithUserID(7).Data["user_id"])
	assert.Equal(t, "req-1", log.WithRequestID("req-1").Data["request_id"])
	assert.Equal(t, "poller", log.WithComponent("poller").Data["component"])
}
