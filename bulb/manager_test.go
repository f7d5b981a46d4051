package bulb

import (
	"sync"
	"testing"

	"github.com/pjlighting/artwiz-bridge/wiz"
)

func TestReloadAddsAndRemovesBulbs(t *testing.T) {
	sender := &fakeSender{}
	verifier := &fakeVerifier{results: []bool{true}}
	m := NewManager(sender, verifier, discardLogger())

	m.Reload([]Record{
		{MAC: "one", IP: "10.0.0.1", Channel: 1},
		{MAC: "two", IP: "10.0.0.2", Channel: 7},
	})
	if got := len(m.Runtimes()); got != 2 {
		t.Fatalf("Runtimes() = %d, want 2", got)
	}

	m.Reload([]Record{{MAC: "one", IP: "10.0.0.1", Channel: 1}})
	if got := len(m.Runtimes()); got != 1 {
		t.Fatalf("Runtimes() after removal = %d, want 1", got)
	}
	m.Stop()
}

func TestReloadPreservesStateForSurvivingMAC(t *testing.T) {
	sender := &fakeSender{}
	verifier := &fakeVerifier{results: []bool{true}}
	m := NewManager(sender, verifier, discardLogger())

	m.Reload([]Record{{MAC: "one", IP: "10.0.0.1", Channel: 1}})
	var rt *Runtime
	for _, r := range m.Runtimes() {
		rt = r
	}
	rt.OnFrame(wiz.SlotVector{R: 9, Dimming: 50, State: true})

	// Reload with the same MAC but a changed IP — Runtime must survive.
	m.Reload([]Record{{MAC: "one", IP: "10.0.0.99", Channel: 1}})
	var rt2 *Runtime
	for _, r := range m.Runtimes() {
		rt2 = r
	}
	if rt2 != rt {
		t.Error("Runtime was replaced across reload, want the same instance to survive")
	}
	if got := rt2.Record().IP; got != "10.0.0.99" {
		t.Errorf("Record().IP = %q, want updated IP", got)
	}
	m.Stop()
}

// TestConcurrentReloadAndRecordReadsDoNotRace exercises the scenario the
// manager lock alone can't protect: a pump goroutine reading Record() for
// a mac whose IP is rewritten by a concurrent Reload. Runs clean under
// `go test -race`.
func TestConcurrentReloadAndRecordReadsDoNotRace(t *testing.T) {
	sender := &fakeSender{}
	verifier := &fakeVerifier{results: []bool{true}}
	m := NewManager(sender, verifier, discardLogger())
	m.Reload([]Record{{MAC: "one", IP: "10.0.0.1", Channel: 1}})

	var rt *Runtime
	for _, r := range m.Runtimes() {
		rt = r
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = rt.Record().IP
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			m.Reload([]Record{{MAC: "one", IP: "10.0.0.2", Channel: 1}})
		}
	}()
	wg.Wait()
	m.Stop()
}
