package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/san-kum/chaoslab/internal/sim"
)

func TestCollectorObserveTick(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.SessionOpened()
	c.ObserveTick("betatron", "s1", sim.TickReport{
		Steps: 10,
		Live:  3,
		Divergences: []sim.Divergence{
			{Index: 0, Reseeded: true, Err: errors.New("escaped")},
			{Index: 1, Err: errors.New("escaped")},
		},
	})
	c.ObserveCrossing("betatron")
	c.ObserveScan("logistic", 20*time.Millisecond)

	if v := testutil.ToFloat64(c.steps.WithLabelValues("betatron")); v != 10 {
		t.Errorf("steps = %v", v)
	}
	if v := testutil.ToFloat64(c.divergences.WithLabelValues("betatron")); v != 2 {
		t.Errorf("divergences = %v", v)
	}
	if v := testutil.ToFloat64(c.reseeds.WithLabelValues("betatron")); v != 1 {
		t.Errorf("reseeds = %v", v)
	}
	if v := testutil.ToFloat64(c.live.WithLabelValues("s1")); v != 3 {
		t.Errorf("live = %v", v)
	}
	if v := testutil.ToFloat64(c.sessions); v != 1 {
		t.Errorf("sessions = %v", v)
	}
	if n := testutil.CollectAndCount(c.scans); n != 1 {
		t.Errorf("scan histogram series = %d", n)
	}

	c.SessionClosed("s1")
	if v := testutil.ToFloat64(c.sessions); v != 0 {
		t.Errorf("sessions after close = %v", v)
	}
}

func TestCollectorDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewCollector(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := NewCollector(reg); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}
