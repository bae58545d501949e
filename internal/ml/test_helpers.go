package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu               sync.Mutex
	predictions      map[string]int
	failures         int
	latencySum       float64
	latencyCount     int
	fallbackUse      int
	degenerate       map[string]int
	predictionScores []float64
}

func (m *MockMetrics) MLPredictionsInc(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.predictions == nil {
		m.predictions = make(map[string]int)
	}
	m.predictions[label]++
}

func (m *MockMetrics) MLFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) MLLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
	m.latencyCount++
}

func (m *MockMetrics) MLPredictionScoresObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictionScores = append(m.predictionScores, v)
}

func (m *MockMetrics) MLFallbackUseInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackUse++
}

func (m *MockMetrics) FeatureDegenerateInc(feature string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.degenerate == nil {
		m.degenerate = make(map[string]int)
	}
	m.degenerate[feature]++
}

// TotalPredictions sums predictions over all labels.
func (m *MockMetrics) TotalPredictions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.predictions {
		total += n
	}
	return total
}
