package sysinfo

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// Info is the host summary shown in the UI.
type Info struct {
	OS              string `json:"os"`
	Arch            string `json:"arch"`
	TotalMemory     uint64 `json:"total_memory"`     // bytes
	AvailableMemory uint64 `json:"available_memory"` // bytes
	CPUCount        int    `json:"cpu_count"`        // logical
	Uptime          uint64 `json:"uptime"`           // seconds
}

// Reader returns the current host summary.
type Reader interface {
	Read(ctx context.Context) (Info, error)
}

// Host reads system information through gopsutil.
type Host struct {
	memory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	cpus   func(ctx context.Context, logical bool) (int, error)
	uptime func(ctx context.Context) (uint64, error)
}

func NewHost() *Host {
	return &Host{
		memory: mem.VirtualMemoryWithContext,
		cpus:   cpu.CountsWithContext,
		uptime: host.UptimeWithContext,
	}
}

func (h *Host) Read(ctx context.Context) (Info, error) {
	in := Info{OS: runtime.GOOS, Arch: runtime.GOARCH}

	vm, err := h.memory(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("read memory: %w", err)
	}
	in.TotalMemory = vm.Total
	in.AvailableMemory = vm.Available

	n, err := h.cpus(ctx, true)
	if err != nil || n <= 0 {
		n = runtime.NumCPU()
	}
	in.CPUCount = n

	up, err := h.uptime(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("read uptime: %w", err)
	}
	in.Uptime = up
	return in, nil
}
