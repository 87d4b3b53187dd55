package monitor

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	gnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// HostConnections reads the OS connection table through gopsutil.
type HostConnections struct{}

// Connections returns every inet (tcp/udp, v4/v6) socket on the host.
func (HostConnections) Connections(ctx context.Context) ([]Connection, error) {
	stats, err := gnet.ConnectionsWithContext(ctx, "inet")
	if err != nil {
		if isPermission(err) {
			return nil, fmt.Errorf("%w: %v", ErrPermission, err)
		}
		return nil, err
	}

	conns := make([]Connection, 0, len(stats))
	for _, s := range stats {
		conns = append(conns, Connection{
			PID: s.Pid,
			ConnectionDescriptor: ConnectionDescriptor{
				LocalAddr:  addrOrDash(s.Laddr.IP),
				LocalPort:  s.Laddr.Port,
				RemoteAddr: addrOrDash(s.Raddr.IP),
				RemotePort: s.Raddr.Port,
				Status:     s.Status,
				Transport:  transportName(s.Family, s.Type),
			},
		})
	}
	return conns, nil
}

// HostProcesses looks up process facts through gopsutil.
type HostProcesses struct{}

// Name returns the process name.
func (HostProcesses) Name(ctx context.Context, pid int32) (string, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return "", processErr(err)
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return "", processErr(err)
	}
	return name, nil
}

// IOCounters returns cumulative read/write bytes for the process.
func (HostProcesses) IOCounters(ctx context.Context, pid int32) (IOCounters, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return IOCounters{}, processErr(err)
	}
	io, err := p.IOCountersWithContext(ctx)
	if err != nil {
		return IOCounters{}, processErr(err)
	}
	return IOCounters{ReadBytes: io.ReadBytes, WriteBytes: io.WriteBytes}, nil
}

// processErr folds "no such process" and "access denied" into ErrProcessGone.
func processErr(err error) error {
	if stderrors.Is(err, process.ErrorProcessNotRunning) ||
		stderrors.Is(err, fs.ErrNotExist) ||
		stderrors.Is(err, syscall.ESRCH) ||
		isPermission(err) {
		return fmt.Errorf("%w: %v", ErrProcessGone, err)
	}
	return err
}

func isPermission(err error) bool {
	return stderrors.Is(err, fs.ErrPermission) ||
		stderrors.Is(err, syscall.EACCES) ||
		stderrors.Is(err, syscall.EPERM)
}

func addrOrDash(ip string) string {
	if ip == "" {
		return "-"
	}
	return ip
}

func transportName(family, sockType uint32) string {
	name := "tcp"
	if sockType == syscall.SOCK_DGRAM {
		name = "udp"
	}
	if family == syscall.AF_INET6 {
		name += "6"
	}
	return name
}

// MemoryStat is a point-in-time memory reading.
type MemoryStat struct {
	Used    uint64
	Total   uint64
	Percent float64
}

// NetCounters holds cumulative interface byte counts.
type NetCounters struct {
	BytesRecv uint64
	BytesSent uint64
}

// SystemSource provides host-wide counters for the graphs family.
type SystemSource interface {
	CPU(ctx context.Context) (percent float64, cores int, err error)
	Memory(ctx context.Context) (MemoryStat, error)
	DiskCounters(ctx context.Context) (IOCounters, error)
	NetCounters(ctx context.Context) (NetCounters, error)
	Partitions(ctx context.Context) ([]Partition, error)
}

// HostSystem reads host-wide counters through gopsutil.
type HostSystem struct{}

// CPU returns total utilization since the previous call and the logical core count.
func (HostSystem) CPU(ctx context.Context) (float64, int, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, 0, err
	}
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return 0, 0, err
	}
	if len(percents) == 0 {
		return 0, cores, nil
	}
	return percents[0], cores, nil
}

// Memory returns virtual memory usage.
func (HostSystem) Memory(ctx context.Context) (MemoryStat, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryStat{}, err
	}
	return MemoryStat{Used: vm.Used, Total: vm.Total, Percent: vm.UsedPercent}, nil
}

// DiskCounters sums read/write bytes over whole disks.
func (HostSystem) DiskCounters(ctx context.Context) (IOCounters, error) {
	stats, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return IOCounters{}, err
	}
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}

	var total IOCounters
	for _, name := range wholeDisks(names) {
		total.ReadBytes += stats[name].ReadBytes
		total.WriteBytes += stats[name].WriteBytes
	}
	return total, nil
}

// NetCounters sums interface byte counters, skipping loopback.
func (HostSystem) NetCounters(ctx context.Context) (NetCounters, error) {
	stats, err := gnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return NetCounters{}, err
	}
	var total NetCounters
	for _, s := range stats {
		if isLoopback(s.Name) {
			continue
		}
		total.BytesRecv += s.BytesRecv
		total.BytesSent += s.BytesSent
	}
	return total, nil
}

// Partitions returns usage for physical partitions in mount order.
func (HostSystem) Partitions(ctx context.Context) ([]Partition, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]Partition, 0, len(parts))
	for _, p := range parts {
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil || usage.Total == 0 {
			continue
		}
		out = append(out, Partition{
			Mountpoint: p.Mountpoint,
			Device:     p.Device,
			Fstype:     p.Fstype,
			Total:      usage.Total,
			Used:       usage.Used,
			Percent:    usage.UsedPercent,
		})
	}
	return out, nil
}

func isLoopback(iface string) bool {
	return iface == "lo" || iface == "lo0"
}

// virtualDiskPrefixes name block devices that sit on top of other disks or
// have no backing disk at all.
var virtualDiskPrefixes = []string{"loop", "ram", "zram", "dm-", "md"}

// wholeDisks drops virtual and stacked devices plus partitions whose parent
// disk is also listed, so bytes are not counted twice.
func wholeDisks(names []string) []string {
	sort.Strings(names)
	listed := make(map[string]bool, len(names))
	for _, name := range names {
		listed[name] = true
	}

	var out []string
	for _, name := range names {
		if isVirtualDisk(name) {
			continue
		}
		if parent, ok := partitionParent(name); ok && listed[parent] {
			continue
		}
		out = append(out, name)
	}
	return out
}

func isVirtualDisk(name string) bool {
	for _, prefix := range virtualDiskPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// partitionParent splits a kernel partition name into its disk. Disks whose
// name ends in a digit number partitions as <disk>p<n> (nvme0n1p1,
// mmcblk0p2); others append the number directly (sda1).
func partitionParent(name string) (string, bool) {
	end := len(name)
	for end > 0 && name[end-1] >= '0' && name[end-1] <= '9' {
		end--
	}
	if end == len(name) || end == 0 {
		return "", false
	}
	base := name[:end]
	if strings.HasSuffix(base, "p") && len(base) > 1 && isDigit(base[len(base)-2]) {
		return base[:len(base)-1], true
	}
	if isDigit(base[len(base)-1]) {
		return "", false
	}
	return base, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
