package metrics

import (
	"sync/atomic"
	"time"
)

type RunKind string

const (
	StepRun RunKind = "step"
	AutoRun RunKind = "auto"
)

// SolveMetric summarizes one Step or Auto run of a solver.
type SolveMetric struct {
	Kind      RunKind
	StartTime time.Time
	Duration  time.Duration
	Steps     int // Internal nodes computed and logged
	Terminals int // Terminal values assigned
	Cancelled bool
	Solved    bool
}

type Collector interface {
	Start(kind RunKind)
	AddStep()
	AddTerminal()
	SetCancelled(value bool)
	SetSolved(value bool)
	Complete() SolveMetric
}

type collector struct {
	kind      RunKind
	startTime time.Time
	steps     atomic.Int32
	terminals atomic.Int32
	cancelled atomic.Bool
	solved    atomic.Bool
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start(kind RunKind) {
	m.kind = kind
	m.startTime = time.Now()
	m.steps.Store(0)
	m.terminals.Store(0)
	m.cancelled.Store(false)
	m.solved.Store(false)
}

func (m *collector) AddStep() {
	m.steps.Add(1)
}

func (m *collector) AddTerminal() {
	m.terminals.Add(1)
}

func (m *collector) SetCancelled(value bool) {
	m.cancelled.Store(value)
}

func (m *collector) SetSolved(value bool) {
	m.solved.Store(value)
}

func (m *collector) Complete() SolveMetric {
	return SolveMetric{
		Kind:      m.kind,
		StartTime: m.startTime,
		Duration:  time.Since(m.startTime),
		Steps:     int(m.steps.Load()),
		Terminals: int(m.terminals.Load()),
		Cancelled: m.cancelled.Load(),
		Solved:    m.solved.Load(),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(kind RunKind)      {}
func (m *dummyCollector) AddStep()                {}
func (m *dummyCollector) AddTerminal()            {}
func (m *dummyCollector) SetCancelled(value bool) {}
func (m *dummyCollector) SetSolved(value bool)    {}
func (m *dummyCollector) Complete() SolveMetric   { return SolveMetric{} }
