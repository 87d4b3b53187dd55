package monitor

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
	"testing"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/stretchr/testify/assert"
)

func TestWholeDisks(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  []string
	}{
		{"sata with partitions", []string{"sda1", "sda", "sda2"}, []string{"sda"}},
		{"nvme", []string{"nvme0n1p1", "nvme0n1", "nvme0n1p2"}, []string{"nvme0n1"}},
		{"virtual devices dropped", []string{"loop0", "loop1", "ram0", "zram0", "vda"}, []string{"vda"}},
		{"two disks", []string{"sdb", "sda", "sdb1"}, []string{"sda", "sdb"}},
		{"empty", nil, nil},
		{
			"stacked devices dropped",
			[]string{"sda", "sda1", "dm-0", "dm-1", "dm-10", "nvme0n1", "nvme0n1p1", "md0"},
			[]string{"nvme0n1", "sda"},
		},
		{"raid members kept", []string{"md127", "sdb", "sdc"}, []string{"sdb", "sdc"}},
		{"mmc", []string{"mmcblk0", "mmcblk0p1", "mmcblk0p2"}, []string{"mmcblk0"}},
		{"nvme namespace is not a partition", []string{"nvme0n1", "nvme0n10"}, []string{"nvme0n1", "nvme0n10"}},
		{"partition without parent kept", []string{"sdd3"}, []string{"sdd3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wholeDisks(tt.names))
		})
	}
}

func TestPartitionParent(t *testing.T) {
	parent, ok := partitionParent("sda12")
	assert.True(t, ok)
	assert.Equal(t, "sda", parent)

	parent, ok = partitionParent("nvme1n1p3")
	assert.True(t, ok)
	assert.Equal(t, "nvme1n1", parent)

	for _, name := range []string{"sda", "123", "nvme0n1p"} {
		_, ok := partitionParent(name)
		assert.False(t, ok, name)
	}
}

func TestTransportName(t *testing.T) {
	assert.Equal(t, "tcp", transportName(syscall.AF_INET, syscall.SOCK_STREAM))
	assert.Equal(t, "tcp6", transportName(syscall.AF_INET6, syscall.SOCK_STREAM))
	assert.Equal(t, "udp", transportName(syscall.AF_INET, syscall.SOCK_DGRAM))
	assert.Equal(t, "udp6", transportName(syscall.AF_INET6, syscall.SOCK_DGRAM))
}

func TestProcessErr(t *testing.T) {
	gone := []error{
		process.ErrorProcessNotRunning,
		fmt.Errorf("open /proc/42/io: %w", fs.ErrNotExist),
		fmt.Errorf("open /proc/1/io: %w", fs.ErrPermission),
		syscall.ESRCH,
	}
	for _, err := range gone {
		assert.ErrorIs(t, processErr(err), ErrProcessGone, err.Error())
	}

	other := errors.New("context deadline exceeded")
	assert.Equal(t, other, processErr(other))
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("lo"))
	assert.True(t, isLoopback("lo0"))
	assert.False(t, isLoopback("eth0"))
	assert.False(t, isLoopback("wlp3s0"))
}

func TestAddrOrDash(t *testing.T) {
	assert.Equal(t, "-", addrOrDash(""))
	assert.Equal(t, "10.0.0.1", addrOrDash("10.0.0.1"))
}
