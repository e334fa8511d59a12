package metrics

import (
	"sort"
	"sync"
	"time"
)

type MetricType int

const (
	RequestMetric MetricType = iota
	DatabaseMetric
	ErrorMetric
)

type Metric struct {
	Type      MetricType             `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
	Method    string                 `json:"method,omitempty"`
	Path      string                 `json:"path,omitempty"`
	Status    int                    `json:"status,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// AggregatedMetric summarises every metric recorded under one key
type AggregatedMetric struct {
	Key         string  `json:"key"`
	Count       int64   `json:"count"`
	ErrorCount  int64   `json:"error_count"`
	AvgDuration float64 `json:"avg_duration_ms"`
	MaxDuration float64 `json:"max_duration_ms"`
	total       float64
}

type Snapshot struct {
	Since      time.Time          `json:"since"`
	Uptime     string             `json:"uptime"`
	Requests   []AggregatedMetric `json:"requests"`
	Database   []AggregatedMetric `json:"database"`
	Errors     map[string]int64   `json:"errors"`
	StatusCode map[int]int64      `json:"status_codes"`
}

// Collector keeps in-memory aggregates for the lifetime of the process
type Collector struct {
	mu        sync.Mutex
	requests  map[string]*AggregatedMetric // key: "METHOD route"
	database  map[string]*AggregatedMetric // key: operation
	errors    map[string]int64             // key: error type
	statuses  map[int]int64
	startTime time.Time
}

func NewCollector() *Collector {
	return &Collector{
		requests:  make(map[string]*AggregatedMetric),
		database:  make(map[string]*AggregatedMetric),
		errors:    make(map[string]int64),
		statuses:  make(map[int]int64),
		startTime: time.Now(),
	}
}

func (c *Collector) RecordMetric(m Metric) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch m.Type {
	case RequestMetric:
		aggregate(c.requests, m.Method+" "+m.Path, m)
		c.statuses[m.Status]++
	case DatabaseMetric:
		op, _ := m.Metadata["operation"].(string)
		aggregate(c.database, op, m)
	case ErrorMetric:
		kind, _ := m.Metadata["error_type"].(string)
		c.errors[kind]++
	}
}

func aggregate(into map[string]*AggregatedMetric, key string, m Metric) {
	agg, ok := into[key]
	if !ok {
		agg = &AggregatedMetric{Key: key}
		into[key] = agg
	}
	ms := float64(m.Duration) / float64(time.Millisecond)
	agg.Count++
	agg.total += ms
	agg.AvgDuration = agg.total / float64(agg.Count)
	if ms > agg.MaxDuration {
		agg.MaxDuration = ms
	}
	if m.Error != "" {
		agg.ErrorCount++
	}
}

// Snapshot returns a copy of the current aggregates, sorted by key
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Since:      c.startTime,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		Requests:   flatten(c.requests),
		Database:   flatten(c.database),
		Errors:     make(map[string]int64, len(c.errors)),
		StatusCode: make(map[int]int64, len(c.statuses)),
	}
	for k, v := range c.errors {
		s.Errors[k] = v
	}
	for k, v := range c.statuses {
		s.StatusCode[k] = v
	}
	return s
}

func flatten(m map[string]*AggregatedMetric) []AggregatedMetric {
	out := make([]AggregatedMetric, 0, len(m))
	for _, agg := range m {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Reset clears every aggregate. Used by tests.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = make(map[string]*AggregatedMetric)
	c.database = make(map[string]*AggregatedMetric)
	c.errors = make(map[string]int64)
	c.statuses = make(map[int]int64)
	c.startTime = time.Now()
}
