package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_WritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, DEBUG)

	l.Info("batch scheduled", "component", "schedule", "batch", 3, "took", 2*time.Second)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "batch scheduled", entry["message"])
	assert.Equal(t, "schedule", entry["component"])
	assert.EqualValues(t, 3, entry["batch"])
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WARN)

	l.Info("ignored")
	l.Debug("ignored too")
	assert.Zero(t, buf.Len())

	l.Error("kept", "err", errors.New("boom"))
	entry := decodeLine(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "boom", entry["err"])
}

func TestLogger_RedactsEmails(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, DEBUG)

	l.Warn("send failed", "sender_email", "john.doe@example.com", "detail", "bounce from jane@corp.io")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "jo***@example.com", entry["sender_email"])
	assert.Equal(t, "bounce from ja***@corp.io", entry["detail"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" warning "))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("nonsense"))
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}

func TestRedactSecret(t *testing.T) {
	assert.Equal(t, "****", RedactSecret("short"))
	assert.Equal(t, "eyJh****", RedactSecret("eyJhbGciOiJIUzI1NiJ9"))
}
