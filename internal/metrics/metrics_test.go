package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrementCreated()
	m.IncrementCreated()
	m.IncrementDismissals("anonymous")
	m.IncrementDismissals("authenticated")
	m.IncrementDismissals("authenticated")
	m.AddNotificationsSent(3)
	m.ObserveCurrent("anonymous", time.Now(), 2)
	m.ObserveRequest("GET", "GET /announcements/current", 200, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnnouncementsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dismissals.WithLabelValues("anonymous")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Dismissals.WithLabelValues("authenticated")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.NotificationsSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "GET /announcements/current", "200")))

	count, err := testutil.GatherAndCount(reg, "announcements_current_query_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
