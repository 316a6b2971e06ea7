package systemmonitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const procStatFixture = `cpu  10132153 290696 3084719 46828483 16683 0 25195 0 175628 0
cpu0 3354624 93076 1024426 15631840 5563 0 8392 0 58553 0
intr 1462898 1 2 3
ctxt 10598182
btime 1696144961
`

func TestParseCPUTimeStat(t *testing.T) {
	ts := parseCPUTimeStat([]byte(procStatFixture))
	require.NotNil(t, ts)
	assert.Equal(t, 10132153, ts.user)
	assert.Equal(t, 290696, ts.nice)
	assert.Equal(t, 3084719, ts.system)
	assert.Equal(t, 46828483, ts.idle)
	assert.Equal(t, 16683, ts.iowait)
	assert.Equal(t, 25195, ts.softIrq)
	assert.Equal(t, 175628, ts.guest)
}

func TestParseCPUTimeStatNoAggregateLine(t *testing.T) {
	assert.Nil(t, parseCPUTimeStat([]byte("intr 0\nctxt 0\n")))
	assert.Nil(t, parseCPUTimeStat(nil))
}

func TestCPUPercent(t *testing.T) {
	prev := &cpuTimeStat{user: 100, system: 50, idle: 800, iowait: 50}
	curr := &cpuTimeStat{user: 400, system: 100, idle: 1400, iowait: 100}
	// window: total delta 1000, idle+iowait delta 650
	assert.InDelta(t, 35.0, cpuPercent(curr, prev), 1e-9)
}

func TestCPUPercentNonPositiveWindow(t *testing.T) {
	a := &cpuTimeStat{user: 100, idle: 100}
	b := &cpuTimeStat{user: 50, idle: 50}
	assert.Equal(t, 0.0, cpuPercent(a, a))
	assert.Equal(t, 0.0, cpuPercent(b, a))
}

const meminfoFixture = `MemTotal:       16384000 kB
MemFree:         8192000 kB
MemAvailable:   12288000 kB
Buffers:          512000 kB
Cached:          2048000 kB
SwapCached:            0 kB
SReclaimable:     256000 kB
HugePages_Total:       0
`

func TestParseMemInfo(t *testing.T) {
	st := parseMemInfo([]byte(meminfoFixture))
	assert.True(t, st.CacheExact)
	assert.Equal(t, uint64(16384000)*1024, st.TotalBytes)
	assert.Equal(t, uint64(12288000)*1024, st.AvailableBytes)
	assert.Equal(t, uint64(512000+2048000+256000)*1024, st.CacheBytes)
}

func TestParseMemInfoWithoutCachedKeys(t *testing.T) {
	st := parseMemInfo([]byte("MemTotal: 1000 kB\nMemAvailable: 400 kB\n"))
	assert.False(t, st.CacheExact)
	assert.Equal(t, uint64(1000*1024), st.TotalBytes)
	assert.Equal(t, uint64(400*1024), st.AvailableBytes)
}

func TestParseStatmResident(t *testing.T) {
	pages, err := parseStatmResident([]byte("12345 6789 1011 0 0 0 0\n"))
	require.NoError(t, err)
	assert.Equal(t, uint64(6789), pages)

	_, err = parseStatmResident([]byte("12345"))
	assert.Error(t, err)
}

const diskstatsFixture = ` 259       0 nvme0n1 1234 0 2000 500 5678 0 4000 800 0 0 0 0 0 0 0 0 0 0
 259       1 nvme0n1p1 100 0 1000 50 200 0 2000 100 0 0 0 0 0 0 0 0 0 0
   7       0 loop0 10 0 80 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0
`

func TestParseDiskstats(t *testing.T) {
	devices := map[string]bool{"nvme0n1": true}
	c := parseDiskstats([]byte(diskstatsFixture), func(name string) bool { return devices[name] })
	assert.Equal(t, uint64(2000*512), c.ReadBytes)
	assert.Equal(t, uint64(4000*512), c.WriteBytes)
}

func TestIncludeDeviceWithListing(t *testing.T) {
	src := &diskSource{devices: map[string]bool{"nvme0n1": true}}
	assert.True(t, src.includeDevice("nvme0n1"))
	assert.False(t, src.includeDevice("nvme0n1p1"))
	assert.False(t, src.includeDevice("loop0"))
}

func TestIncludeDeviceFallback(t *testing.T) {
	src := &diskSource{}
	assert.True(t, src.includeDevice("sda"))
	assert.True(t, src.includeDevice("nvme0n1"))
	assert.False(t, src.includeDevice("loop3"))
	assert.False(t, src.includeDevice("ram0"))
	assert.False(t, src.includeDevice("dm-0"))
}

func TestCounterRate(t *testing.T) {
	assert.Equal(t, 4000.0, counterRate(3000, 1000, 0.5))
	// A counter that moved backwards never produces a negative rate.
	assert.Equal(t, 0.0, counterRate(1000, 3000, 0.5))
}

func TestDiskRates(t *testing.T) {
	now := time.Now()
	mon := &systemMonitor{
		prevDisk:   DiskCounters{ReadBytes: 1000, WriteBytes: 0},
		prevDiskAt: now.Add(-500 * time.Millisecond),
	}

	readBps, writeBps := mon.diskRates(DiskCounters{ReadBytes: 3000, WriteBytes: 512}, now)
	assert.InDelta(t, 4000.0, readBps, 1e-6)
	assert.InDelta(t, 1024.0, writeBps, 1e-6)
	assert.Equal(t, uint64(3000), mon.prevDisk.ReadBytes)
}

func TestDiskRatesNonPositiveDelta(t *testing.T) {
	now := time.Now()
	mon := &systemMonitor{
		prevDisk:   DiskCounters{ReadBytes: 1000},
		prevDiskAt: now,
	}

	readBps, writeBps := mon.diskRates(DiskCounters{ReadBytes: 3000}, now)
	assert.Equal(t, 0.0, readBps)
	assert.Equal(t, 0.0, writeBps)
	// The baseline does not advance on an unusable delta.
	assert.Equal(t, uint64(1000), mon.prevDisk.ReadBytes)
}

func TestDiskRatesUnprimed(t *testing.T) {
	mon := &systemMonitor{}
	readBps, writeBps := mon.diskRates(DiskCounters{ReadBytes: 3000}, time.Now())
	assert.Equal(t, 0.0, readBps)
	assert.Equal(t, 0.0, writeBps)
	assert.Equal(t, uint64(3000), mon.prevDisk.ReadBytes)
	assert.False(t, mon.prevDiskAt.IsZero())
}

func TestFirstGPUName(t *testing.T) {
	out := []byte("GPU 0: NVIDIA A100-SXM4-40GB (UUID: GPU-8e163dbc)\nGPU 1: NVIDIA A100-SXM4-40GB (UUID: GPU-12ab34cd)\n")
	assert.Equal(t, "NVIDIA A100-SXM4-40GB", firstGPUName(out))
	assert.Equal(t, "", firstGPUName([]byte("No devices were found\n")))
	assert.Equal(t, "", firstGPUName(nil))
}

func TestParseGPUQuery(t *testing.T) {
	st, err := parseGPUQuery([]byte("42, 1024\n"))
	require.NoError(t, err)
	assert.Equal(t, 42.0, st.UtilPercent)
	assert.Equal(t, 1024.0, st.MemUsedMB)

	_, err = parseGPUQuery([]byte("garbage\n"))
	assert.Error(t, err)
}
