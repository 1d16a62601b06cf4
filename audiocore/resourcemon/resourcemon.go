// Package resourcemon periodically samples process CPU% and RSS via
// gopsutil, feeding a session's Statistics without the capture pipeline
// itself depending on any platform-specific syscalls.
package resourcemon

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/sooth/audio-capture-library/internal/errors"
)

// Sample is one point-in-time resource reading.
type Sample struct {
	CPUPercent float64
	RSSBytes   uint64
	At         time.Time
}

// Monitor samples this process's CPU% and RSS on a fixed interval.
type Monitor struct {
	interval time.Duration
	proc     *process.Process

	mu     sync.RWMutex
	latest Sample
}

// New creates a Monitor for the current process.
func New(interval time.Duration) (*Monitor, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "resourcemon_new").
			Build()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{interval: interval, proc: proc}, nil
}

// Run samples resources on m.interval until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	m.sampleOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sampleOnce()
		}
	}
}

func (m *Monitor) sampleOnce() {
	cpuPercent, _ := cpu.Percent(0, false)
	var pct float64
	if len(cpuPercent) > 0 {
		pct = cpuPercent[0]
	}

	var rss uint64
	if info, err := m.proc.MemoryInfo(); err == nil && info != nil {
		rss = info.RSS
	}

	m.mu.Lock()
	m.latest = Sample{CPUPercent: pct, RSSBytes: rss, At: time.Now()}
	m.mu.Unlock()
}

// Latest returns the most recent sample.
func (m *Monitor) Latest() Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}
