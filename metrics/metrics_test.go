package metrics

import (
	"testing"

	"github.com/pjlighting/artwiz-bridge/wiz"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserverIncrementsSentCounter(t *testing.T) {
	before := testutil.ToFloat64(SentTotal.WithLabelValues("aa:bb:metrics-test"))

	var obs Observer
	obs.OnSent("aa:bb:metrics-test", wiz.SlotVector{State: true}, true)

	after := testutil.ToFloat64(SentTotal.WithLabelValues("aa:bb:metrics-test"))
	if after != before+1 {
		t.Errorf("SentTotal = %v, want %v", after, before+1)
	}
}

func TestObserverSetsQueueDepthGauge(t *testing.T) {
	var obs Observer
	obs.OnQueueDepth("aa:bb:metrics-test-2", 7)

	if got := testutil.ToFloat64(QueueDepth.WithLabelValues("aa:bb:metrics-test-2")); got != 7 {
		t.Errorf("QueueDepth = %v, want 7", got)
	}
}

func TestObserverIncrementsDroppedAndRetryCounters(t *testing.T) {
	beforeDropped := testutil.ToFloat64(DroppedTotal.WithLabelValues("aa:bb:metrics-test-3"))
	beforeRetries := testutil.ToFloat64(OffVerifyRetries.WithLabelValues("aa:bb:metrics-test-3"))

	var obs Observer
	obs.OnDropped("aa:bb:metrics-test-3")
	obs.OnOffVerifyRetry("aa:bb:metrics-test-3", 1)

	if got := testutil.ToFloat64(DroppedTotal.WithLabelValues("aa:bb:metrics-test-3")); got != beforeDropped+1 {
		t.Errorf("DroppedTotal = %v, want %v", got, beforeDropped+1)
	}
	if got := testutil.ToFloat64(OffVerifyRetries.WithLabelValues("aa:bb:metrics-test-3")); got != beforeRetries+1 {
		t.Errorf("OffVerifyRetries = %v, want %v", got, beforeRetries+1)
	}
}
