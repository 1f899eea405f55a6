package command

import (
	"sort"
	"sync"
	"time"
)

// Metrics collects dispatch statistics.
type Metrics struct {
	mu sync.RWMutex

	commandMetrics map[string]*CommandMetrics

	totalDispatches uint64
	totalErrors     uint64
	totalPanics     uint64

	totalDuration time.Duration
}

// CommandMetrics holds metrics for a specific command.
type CommandMetrics struct {
	Name          string
	DispatchCount uint64
	ErrorCount    uint64
	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	LastStatus    ResultStatus
	LastDispatch  time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		commandMetrics: make(map[string]*CommandMetrics),
	}
}

// RecordDispatch records a dispatch event.
func (m *Metrics) RecordDispatch(name string, duration time.Duration, status ResultStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalDispatches++
	m.totalDuration += duration

	if status == StatusError {
		m.totalErrors++
	}

	cm := m.commandMetrics[name]
	if cm == nil {
		cm = &CommandMetrics{
			Name:        name,
			MinDuration: duration,
			MaxDuration: duration,
		}
		m.commandMetrics[name] = cm
	}

	cm.DispatchCount++
	cm.TotalDuration += duration
	cm.LastStatus = status
	cm.LastDispatch = time.Now()

	if duration < cm.MinDuration {
		cm.MinDuration = duration
	}
	if duration > cm.MaxDuration {
		cm.MaxDuration = duration
	}

	if status == StatusError {
		cm.ErrorCount++
	}
}

// RecordPanic records a panic recovery.
func (m *Metrics) RecordPanic(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalPanics++

	if cm := m.commandMetrics[name]; cm != nil {
		cm.ErrorCount++
	}
}

// TotalDispatches returns the total number of dispatches.
func (m *Metrics) TotalDispatches() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalDispatches
}

// TotalErrors returns the total number of errors.
func (m *Metrics) TotalErrors() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalErrors
}

// TotalPanics returns the total number of panics recovered.
func (m *Metrics) TotalPanics() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalPanics
}

// AverageDuration returns the average dispatch duration.
func (m *Metrics) AverageDuration() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.totalDispatches == 0 {
		return 0
	}
	return m.totalDuration / time.Duration(m.totalDispatches)
}

// CommandStats returns metrics for a specific command.
func (m *Metrics) CommandStats(name string) *CommandMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cm := m.commandMetrics[name]
	if cm == nil {
		return nil
	}

	out := *cm
	return &out
}

// TopCommands returns the top N most dispatched commands.
func (m *Metrics) TopCommands(n int) []*CommandMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cmds := make([]*CommandMetrics, 0, len(m.commandMetrics))
	for _, cm := range m.commandMetrics {
		out := *cm
		cmds = append(cmds, &out)
	}

	sort.Slice(cmds, func(i, j int) bool {
		return cmds[i].DispatchCount > cmds[j].DispatchCount
	})

	if n > len(cmds) {
		n = len(cmds)
	}
	return cmds[:n]
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.commandMetrics = make(map[string]*CommandMetrics)
	m.totalDispatches = 0
	m.totalErrors = 0
	m.totalPanics = 0
	m.totalDuration = 0
}

// AverageCommandDuration returns the average duration for this command.
func (cm *CommandMetrics) AverageCommandDuration() time.Duration {
	if cm.DispatchCount == 0 {
		return 0
	}
	return cm.TotalDuration / time.Duration(cm.DispatchCount)
}

// ErrorRate returns the error rate as a percentage.
func (cm *CommandMetrics) ErrorRate() float64 {
	if cm.DispatchCount == 0 {
		return 0
	}
	return float64(cm.ErrorCount) / float64(cm.DispatchCount) * 100
}
