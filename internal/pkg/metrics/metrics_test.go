package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := New("test", reg)
	require.NoError(t, err)

	r.SweepFinished(time.Second, map[string]int64{"users": 3, "players": 0}, nil)
	r.SweepFinished(time.Second, map[string]int64{"users": 1}, errors.New("boom"))
	r.SweepSkipped()
	r.CodeValidated("valid")
	r.CodeValidated("valid")
	r.CodeRedeemed("lost_race")

	assert.Equal(t, 4.0, testutil.ToFloat64(r.sweepRows.WithLabelValues("users")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sweepRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sweepRuns.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sweepRuns.WithLabelValues("skipped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.codeValidations.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.codeRedemptions.WithLabelValues("lost_race")))
}

func TestNew_SharesCollectorsOnOneRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := New("test", reg)
	require.NoError(t, err)
	b, err := New("test", reg)
	require.NoError(t, err)

	a.CodeRedeemed("redeemed")
	b.CodeRedeemed("redeemed")

	assert.Equal(t, 2.0, testutil.ToFloat64(a.codeRedemptions.WithLabelValues("redeemed")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.SweepFinished(time.Second, map[string]int64{"users": 1}, nil)
		r.SweepSkipped()
		r.CodeValidated("valid")
		r.CodeRedeemed("redeemed")
	})
}
