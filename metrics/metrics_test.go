package metrics

import "testing"

func TestCounter(t *testing.T) {
	c := NewCounter("batches_committed")
	if c.Value() != 0 {
		t.Fatalf("fresh counter should be 0, got %d", c.Value())
	}
	c.Inc()
	c.Add(4)
	c.Add(-10) // ignored
	if c.Value() != 5 {
		t.Fatalf("counter = %d, want 5", c.Value())
	}
	if c.Name() != "batches_committed" {
		t.Fatalf("unexpected name %q", c.Name())
	}
}

func TestGauge(t *testing.T) {
	g := NewGauge("ledger_tip")
	g.Set(7)
	g.Inc()
	g.Dec()
	g.Dec()
	if g.Value() != 6 {
		t.Fatalf("gauge = %d, want 6", g.Value())
	}
	if g.Name() != "ledger_tip" {
		t.Fatalf("unexpected name %q", g.Name())
	}
}
