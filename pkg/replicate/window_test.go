package replicate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tideflow-io/tideflow/pkg/testutil"
)

func TestNextWindowTruncatesSubSecondCursor(t *testing.T) {
	cursor := testutil.MustTime(t, "2023-01-01T00:00:00Z").Add(750 * time.Millisecond)
	upper := testutil.MustTime(t, "2023-01-03T00:00:00Z")

	w, ok := nextWindow(cursor, 24*time.Hour, upper)
	assert.True(t, ok)
	assert.Equal(t, testutil.MustTime(t, "2023-01-01T00:00:00Z"), w.Start)
	assert.Equal(t, testutil.MustTime(t, "2023-01-02T00:00:00Z"), w.End)
}

func TestNextWindowCapsAtUpperBound(t *testing.T) {
	cursor := testutil.MustTime(t, "2023-01-01T00:00:00Z")
	upper := testutil.MustTime(t, "2023-01-01T06:00:00Z")

	w, ok := nextWindow(cursor, 24*time.Hour, upper)
	assert.True(t, ok)
	assert.Equal(t, upper, w.End)
}

func TestNextWindowTerminatesAtUpperBound(t *testing.T) {
	upper := testutil.MustTime(t, "2023-01-02T00:00:00Z")

	_, ok := nextWindow(upper, 24*time.Hour, upper)
	assert.False(t, ok)

	_, ok = nextWindow(upper.Add(time.Hour), 24*time.Hour, upper)
	assert.False(t, ok)
}
