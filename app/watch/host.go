package watch

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// Limits a host has to stay below for a browser run, zero values are not checked
type Limits struct {
	CPUBelow     int     // cpu usage, percent
	MemoryBelow  int     // used memory, percent
	LoadAvgBelow float64 // 1 minute load average
}

func (l Limits) empty() bool {
	return l.CPUBelow <= 0 && l.MemoryBelow <= 0 && l.LoadAvgBelow <= 0
}

// Host reads the metrics of the local machine
type Host struct{}

// Check returns false and the reason on the first exceeded limit
func (Host) Check(l Limits) (bool, string) {
	if l.CPUBelow > 0 {
		pct, err := cpu.Percent(time.Second, false)
		if err != nil || len(pct) == 0 {
			return false, fmt.Sprintf("can't get cpu usage: %v", err)
		}
		if current := int(pct[0]); current >= l.CPUBelow {
			return false, fmt.Sprintf("cpu at %d%%, limit %d%%", current, l.CPUBelow)
		}
	}
	if l.MemoryBelow > 0 {
		v, err := mem.VirtualMemory()
		if err != nil {
			return false, fmt.Sprintf("can't get memory usage: %v", err)
		}
		if current := int(v.UsedPercent); current >= l.MemoryBelow {
			return false, fmt.Sprintf("memory at %d%%, limit %d%%", current, l.MemoryBelow)
		}
	}
	if l.LoadAvgBelow > 0 {
		avg, err := load.Avg()
		if err != nil {
			return false, fmt.Sprintf("can't get load average: %v", err)
		}
		if avg.Load1 >= l.LoadAvgBelow {
			return false, fmt.Sprintf("load at %.2f, limit %.2f", avg.Load1, l.LoadAvgBelow)
		}
	}
	return true, ""
}
