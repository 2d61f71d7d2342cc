package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/SyedDaiam9101/tl-detector/internal/classifier"
	"github.com/SyedDaiam9101/tl-detector/internal/signal"
)

func TestObserverClassified(t *testing.T) {
	counter := ClassificationsTotal.WithLabelValues(string(classifier.Simulator), signal.Yellow.String())
	before := testutil.ToFloat64(counter)

	Observer{}.Classified(classifier.Simulator, signal.Yellow, 3*time.Millisecond)
	Observer{}.Classified(classifier.Simulator, signal.Yellow, 4*time.Millisecond)

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("Expected 2 new classifications, got %v", got)
	}
	if n := testutil.CollectAndCount(InferenceLatencySeconds); n == 0 {
		t.Error("Expected inference latency series to be collected")
	}
}

func TestObserverSelfTestCompleted(t *testing.T) {
	Observer{}.SelfTestCompleted(classifier.RealVehicle, signal.Unknown, 250*time.Millisecond)

	got := testutil.ToFloat64(WarmupLatencySeconds.WithLabelValues(string(classifier.RealVehicle)))
	if got != 0.25 {
		t.Errorf("Expected warm-up latency 0.25s, got %v", got)
	}
}

func TestReadyStatus(t *testing.T) {
	SetReady()
	if got := testutil.ToFloat64(ReadyStatus); got != 1 {
		t.Errorf("Expected ready gauge 1, got %v", got)
	}
	SetNotReady()
	if got := testutil.ToFloat64(ReadyStatus); got != 0 {
		t.Errorf("Expected ready gauge 0, got %v", got)
	}
}

func TestRecordPublishFailure(t *testing.T) {
	before := testutil.ToFloat64(PublishFailuresTotal)
	RecordPublishFailure()
	if got := testutil.ToFloat64(PublishFailuresTotal) - before; got != 1 {
		t.Errorf("Expected one publish failure, got %v", got)
	}
}
