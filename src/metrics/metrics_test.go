package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewIsSingleton(t *testing.T) {
	assert.Same(t, New(), New())
}

func TestRecorders(t *testing.T) {
	m := New()
	before := testutil.ToFloat64(m.TurnsTotal)
	m.TurnStarted()
	assert.Equal(t, before+1, testutil.ToFloat64(m.TurnsTotal))

	m.Submission("conflict")
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("conflict")), 1.0)

	m.SetChangeRatio(0.25)
	assert.Equal(t, 0.25, testutil.ToFloat64(m.ChangeRatio))

	m.ObserveModelCall(time.Second)
	m.ActionExecuted("click")
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.ActionsTotal.WithLabelValues("click")), 1.0)
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	m.TurnStarted()
	m.TurnFailed()
	m.ActionExecuted("click")
	m.ObserveModelCall(time.Second)
	m.SetChangeRatio(1)
	m.Submission("accepted")
	m.AnnotationTimedOut()
	m.ViewerConnected()
	m.ViewerDisconnected()
}
