package sim

import (
	"testing"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/pkg/scenario"
)

func newBenchSim(b *testing.B, sc *scenario.Scenario) *Simulation {
	b.Helper()
	s, err := NewFromScenario(sc, zap.NewNop())
	if err != nil {
		b.Fatalf("NewFromScenario() error = %v", err)
	}
	return s
}

// BenchmarkTick measures a steady-state tick of the stretched cluster with
// both hosts writing.
func BenchmarkTick(b *testing.B) {
	s := newBenchSim(b, &scenario.Scenario{})
	for i := 0; i < 4; i++ {
		s.Tick()
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Tick()
	}
}

// BenchmarkPartitionCycle measures a WAN partition, mediation and resync.
func BenchmarkPartitionCycle(b *testing.B) {
	sc := &scenario.Scenario{Topology: scenario.Topology{FailoverPreference: site1}}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		s := newBenchSim(b, sc)
		b.StartTimer()

		for j := 0; j < 4; j++ {
			s.Tick()
		}
		if err := s.SetWANLatency(24); err != nil {
			b.Fatal(err)
		}
		for j := 0; j < 5; j++ {
			s.Tick()
		}
		if err := s.SetWANLatency(3); err != nil {
			b.Fatal(err)
		}
		for j := 0; j < 3; j++ {
			s.Tick()
		}
	}
}
