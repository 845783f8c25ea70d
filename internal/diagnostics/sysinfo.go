package diagnostics

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// cpuSampleWindow is how long CPU utilization is sampled for a snapshot
const cpuSampleWindow = 200 * time.Millisecond

// CaptureSystemInfo collects host and process resource usage into a
// human-readable block headed by reason. Readings that fail are skipped.
func CaptureSystemInfo(reason string) string {
	var info strings.Builder

	separator := "======== SYSTEM SNAPSHOT START ========"
	fmt.Fprintf(&info, "%s\n", separator)
	fmt.Fprintf(&info, "Reason: %s\n", reason)

	if cpuPercent, err := cpu.Percent(cpuSampleWindow, false); err == nil && len(cpuPercent) > 0 {
		fmt.Fprintf(&info, "CPU Utilization: %.2f%%\n", cpuPercent[0])
	}

	if vmStat, err := mem.VirtualMemory(); err == nil {
		fmt.Fprintf(&info, "RAM Usage: %.2f%% (%d MiB available)\n", vmStat.UsedPercent, bToMb(vmStat.Available))
	}

	if swapStat, err := mem.SwapMemory(); err == nil {
		fmt.Fprintf(&info, "Swap Usage: %.2f%%\n", swapStat.UsedPercent)
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil { //nolint:gosec // pid fits in int32
		if procMem, err := proc.MemoryInfo(); err == nil {
			fmt.Fprintf(&info, "Process RSS: %d MiB\n", bToMb(procMem.RSS))
		}
		if procCPU, err := proc.CPUPercent(); err == nil {
			fmt.Fprintf(&info, "Process CPU: %.2f%%\n", procCPU)
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fmt.Fprintf(&info, "Go Runtime: Alloc = %v MiB, Sys = %v MiB, NumGC = %v, Goroutines = %d\n",
		bToMb(m.Alloc), bToMb(m.Sys), m.NumGC, runtime.NumGoroutine())

	fmt.Fprintf(&info, "%s\n", strings.ReplaceAll(separator, "START", "END"))
	return info.String()
}

// bToMb converts bytes to megabytes
func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
