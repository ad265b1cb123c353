package monitor

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/bytedacia/guardian/internal/logging"
)

// SystemStats is one point-in-time health capture of the host running
// the defense engine. Alert bodies embed it so an operator reading a
// raid mail can tell whether the box itself is struggling.
type SystemStats struct {
	Hostname    string
	OS          string
	Uptime      time.Duration
	CPUUsage    float64
	CPUCores    int
	MemUsedMB   uint64
	MemTotalMB  uint64
	MemPercent  float64
	DiskPercent float64
	Goroutines  int
	CapturedAt  time.Time
}

// Capture gathers host metrics. Individual probe failures degrade to
// zero values instead of failing the capture.
func Capture() *SystemStats {
	stats := &SystemStats{
		CPUCores:   runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
		CapturedAt: time.Now(),
	}

	if info, err := host.Info(); err == nil {
		stats.Hostname = info.Hostname
		stats.OS = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
		stats.Uptime = time.Duration(info.Uptime) * time.Second
	} else {
		logging.Debug("Host probe failed: %v", err)
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats.CPUUsage = percents[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemUsedMB = vm.Used / 1024 / 1024
		stats.MemTotalMB = vm.Total / 1024 / 1024
		stats.MemPercent = vm.UsedPercent
	}

	if usage, err := disk.Usage("/"); err == nil {
		stats.DiskPercent = usage.UsedPercent
	}

	return stats
}

// StartLogging captures and logs a health line on the given interval
// until stop is closed. High CPU or memory pressure is logged at warn.
func StartLogging(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s := Capture()
				line := fmt.Sprintf("Health: cpu %.1f%% mem %.1f%% disk %.1f%% goroutines %d",
					s.CPUUsage, s.MemPercent, s.DiskPercent, s.Goroutines)
				if s.CPUUsage > 90 || s.MemPercent > 90 {
					logging.Warn("%s", line)
				} else {
					logging.Info("%s", line)
				}
			case <-stop:
				return
			}
		}
	}()
}

// Summary renders the capture as the alert-body block appended to raid
// notifications.
func (s *SystemStats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Host: %s (%s)\n", s.Hostname, s.OS)
	fmt.Fprintf(&b, "Uptime: %s\n", s.Uptime.Round(time.Second))
	fmt.Fprintf(&b, "CPU: %.1f%% of %d cores\n", s.CPUUsage, s.CPUCores)
	fmt.Fprintf(&b, "Memory: %d/%d MB (%.1f%%)\n", s.MemUsedMB, s.MemTotalMB, s.MemPercent)
	fmt.Fprintf(&b, "Disk: %.1f%%\n", s.DiskPercent)
	fmt.Fprintf(&b, "Goroutines: %d\n", s.Goroutines)
	return b.String()
}
