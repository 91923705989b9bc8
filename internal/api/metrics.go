package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ServerMetrics собирает метрики процесса для /api/stats
type ServerMetrics struct {
	StartTime time.Time
	proc      *process.Process
}

// ServerSnapshot: срез метрик процесса
type ServerSnapshot struct {
	Uptime        string  `json:"uptime"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	RSSMB         float64 `json:"rss_mb,omitempty"`
	CPUPercent    float64 `json:"cpu_percent,omitempty"`
	SystemMemUsed float64 `json:"system_mem_used_percent,omitempty"`
	Goroutines    int     `json:"goroutines"`
	NumGC         uint32  `json:"num_gc"`
	ServerTime    int64   `json:"server_time"`
}

// NewServerMetrics создает новый экземпляр метрик
func NewServerMetrics() *ServerMetrics {
	sm := &ServerMetrics{StartTime: time.Now()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		sm.proc = proc
	}
	return sm
}

// FormatUptime возвращает длительность в виде "1д 2ч 3м 4с", старшие нулевые части опускаются
func FormatUptime(uptime time.Duration) string {
	total := int64(uptime.Seconds())
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// Snapshot собирает метрики. Недоступные на платформе значения остаются нулевыми.
func (sm *ServerMetrics) Snapshot() ServerSnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(sm.StartTime)
	snap := ServerSnapshot{
		Uptime:        FormatUptime(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		HeapAllocMB:   bytesToMB(m.HeapAlloc),
		Goroutines:    runtime.NumGoroutine(),
		NumGC:         m.NumGC,
		ServerTime:    time.Now().Unix(),
	}

	if sm.proc != nil {
		if info, err := sm.proc.MemoryInfo(); err == nil {
			snap.RSSMB = bytesToMB(info.RSS)
		}
		if cpu, err := sm.proc.CPUPercent(); err == nil {
			snap.CPUPercent = cpu
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.SystemMemUsed = vm.UsedPercent
	}

	return snap
}

func bytesToMB(b uint64) float64 {
	return float64(b) / 1024 / 1024
}
