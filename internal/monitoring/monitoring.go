package monitoring

import (
	"sync"
	"time"

	nuts "github.com/vaudience/go-nuts"
)

// Config holds monitoring configuration
type Config struct {
	PrometheusEndpoint string
	LokiEndpoint       string
}

// Service provides monitoring functionality
type Service struct {
	config Config

	mu     sync.Mutex
	counts map[string]int64
}

// NewService creates a new monitoring service
func NewService(config Config) *Service {
	return &Service{
		config: config,
		counts: make(map[string]int64),
	}
}

// RecordEvent records a monitored event with labels
func (s *Service) RecordEvent(eventName string, labels map[string]string) {
	ts := time.Now()

	s.mu.Lock()
	s.counts[eventName]++
	s.mu.Unlock()

	nuts.L.Infof("[Monitoring] Event %s recorded at %v with labels: %v", eventName, ts, labels)
	// TODO: export counters via the configured Prometheus endpoint
}

// GetEventMetrics retrieves counts for recorded events
func (s *Service) GetEventMetrics(eventType string, duration time.Duration) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics := make(map[string]int64)
	for name, count := range s.counts {
		if eventType == "" || name == eventType {
			metrics[name] = count
		}
	}
	return metrics, nil
}
