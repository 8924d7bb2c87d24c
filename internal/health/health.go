// Package health samples host CPU and memory for diagnostics, grounded on
// the lineage repo's internal/metrics.SystemMetrics: gopsutil for actual
// CPU percentage, an exponential moving average to smooth spikes, and
// runtime.MemStats for process memory. It never feeds back into engine
// behavior — purely an operational signal surfaced via logs or metrics.
package health

import (
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Sampler tracks smoothed CPU usage and current process memory.
type Sampler struct {
	mu         sync.RWMutex
	cpuPercent float64
}

// NewSampler returns a Sampler with an initial CPU reading taken.
func NewSampler() *Sampler {
	s := &Sampler{}
	s.Update()
	return s
}

// Update refreshes the smoothed CPU percentage. It blocks for up to one
// second while gopsutil samples the host.
func (s *Sampler) Update() {
	percents, err := cpu.Percent(time.Second, false)
	if err != nil || len(percents) == 0 {
		return
	}
	current := percents[0]

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cpuPercent == 0 {
		s.cpuPercent = current
		return
	}
	const alpha = 0.3
	s.cpuPercent = alpha*current + (1-alpha)*s.cpuPercent
}

// CPUPercent returns the last smoothed host CPU usage percentage.
func (s *Sampler) CPUPercent() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cpuPercent
}

// MemoryStats reports the process's current heap allocation and the host's
// total available memory, both in bytes.
type MemoryStats struct {
	HeapAllocBytes uint64
	HostAvailable  uint64
}

// Memory samples current process and host memory.
func Memory() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := MemoryStats{HeapAllocBytes: m.Alloc}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.HostAvailable = vm.Available
	}
	return stats
}
