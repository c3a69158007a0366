package sysinfo

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostReadLive(t *testing.T) {
	in, err := NewHost().Read(context.Background())
	if err != nil {
		t.Skipf("host metrics unavailable here: %v", err)
	}
	assert.Equal(t, runtime.GOOS, in.OS)
	assert.Equal(t, runtime.GOARCH, in.Arch)
	assert.Positive(t, in.TotalMemory)
	assert.LessOrEqual(t, in.AvailableMemory, in.TotalMemory)
	assert.Positive(t, in.CPUCount)
}

func fakeHost() *Host {
	return &Host{
		memory: func(context.Context) (*mem.VirtualMemoryStat, error) {
			return &mem.VirtualMemoryStat{Total: 16 << 30, Available: 4 << 30}, nil
		},
		cpus:   func(context.Context, bool) (int, error) { return 8, nil },
		uptime: func(context.Context) (uint64, error) { return 3600, nil },
	}
}

func TestHostReadFields(t *testing.T) {
	in, err := fakeHost().Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Info{
		OS:              runtime.GOOS,
		Arch:            runtime.GOARCH,
		TotalMemory:     16 << 30,
		AvailableMemory: 4 << 30,
		CPUCount:        8,
		Uptime:          3600,
	}, in)
}

func TestHostCPUFallback(t *testing.T) {
	h := fakeHost()
	h.cpus = func(context.Context, bool) (int, error) { return 0, errors.New("unsupported") }
	in, err := h.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, runtime.NumCPU(), in.CPUCount)
}

func TestHostErrors(t *testing.T) {
	h := fakeHost()
	h.memory = func(context.Context) (*mem.VirtualMemoryStat, error) { return nil, errors.New("no /proc") }
	_, err := h.Read(context.Background())
	assert.ErrorContains(t, err, "read memory")

	h = fakeHost()
	h.uptime = func(context.Context) (uint64, error) { return 0, errors.New("no boot time") }
	_, err = h.Read(context.Background())
	assert.ErrorContains(t, err, "read uptime")
}
