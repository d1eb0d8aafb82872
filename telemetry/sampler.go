package telemetry

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/procfs"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/rovlink/message"
)

// wlanQualityMax is the scale of the link quality column of
// /proc/net/wireless and of the sysfs wireless link file on most drivers.
const wlanQualityMax = 70

// Fallback sources below the sysfs root.
var (
	wlanLinkFile = filepath.Join("class", "net", "wlan0", "wireless", "link")
	hwmonTemp    = filepath.Join("devices", "virtual", "hwmon", "hwmon0", "temp1_input")
)

// errNoReading marks an optional counter the host does not provide.
var errNoReading = errors.New("no reading")

// Sample is one reading of the vehicle's health counters.
type Sample struct {
	Uptime      time.Duration
	LoadAvg     float64
	WlanPercent int
	// CPUPercent is the busy share since the previous sample; zero on the
	// first sample.
	CPUPercent int
	// Temperature is in hundredths of a degree Celsius. It is only
	// meaningful when HasTemperature is set.
	Temperature    int
	HasTemperature bool
}

// Stats converts the sample to STATS wire units, saturating at a byte.
func (s Sample) Stats() message.Stats {
	return message.Stats{
		UptimeMinutes: saturate(int(s.Uptime / time.Minute)),
		LoadAvgX10:    saturate(int(math.Round(s.LoadAvg * 10))),
		WlanPercent:   saturate(s.WlanPercent),
	}
}

func saturate(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > math.MaxUint8:
		return math.MaxUint8
	default:
		return uint8(v)
	}
}

// Sampler reads the vehicle's counters from a procfs and a sysfs tree.
// It is not safe for concurrent use.
type Sampler struct {
	procRoot string
	sysRoot  string
	proc     procfs.FS

	prevBusy  float64
	prevTotal float64
	havePrev  bool
}

// NewSampler returns a sampler reading procRoot, normally "/proc", and
// sysRoot, normally "/sys". A missing sysRoot only disables the readings
// that live there.
func NewSampler(procRoot, sysRoot string) (*Sampler, error) {
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return nil, fmt.Errorf("open procfs: %w", err)
	}
	return &Sampler{procRoot: procRoot, sysRoot: sysRoot, proc: fs}, nil
}

// Sample reads every counter. Uptime and load are required; a missing
// wireless source reads as 0 %, a missing /proc/stat as 0 % CPU, and a
// missing temperature sensor leaves HasTemperature unset.
func (s *Sampler) Sample() (Sample, error) {
	var out Sample
	var err error

	if out.Uptime, err = s.uptime(); err != nil {
		return Sample{}, err
	}
	load, err := s.proc.LoadAvg()
	if err != nil {
		return Sample{}, fmt.Errorf("read loadavg: %w", err)
	}
	out.LoadAvg = load.Load1

	out.WlanPercent, err = s.wlan()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Sample",
			"error":    err.Error(),
		}).Debug("Wireless quality unavailable")
	}

	out.CPUPercent, err = s.cpu()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Sample",
			"error":    err.Error(),
		}).Debug("CPU usage unavailable")
	}

	out.Temperature, err = s.temperature()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Sample",
			"error":    err.Error(),
		}).Trace("Temperature unavailable")
	} else {
		out.HasTemperature = true
	}

	return out, nil
}

// uptime parses the first field of /proc/uptime, in seconds.
func (s *Sampler) uptime() (time.Duration, error) {
	data, err := os.ReadFile(filepath.Join(s.procRoot, "uptime"))
	if err != nil {
		return 0, fmt.Errorf("read uptime: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, errors.New("parse uptime: empty file")
	}
	secs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("parse uptime: %w", err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// wlan returns the link quality of the first wireless interface as a
// percentage, falling back to the wlan0 sysfs link file when procfs lists
// none.
func (s *Sampler) wlan() (int, error) {
	ifaces, err := s.proc.Wireless()
	if err == nil && len(ifaces) > 0 {
		return wlanPercent(ifaces[0].QualityLink), nil
	}

	link, linkErr := readSysInt(filepath.Join(s.sysRoot, wlanLinkFile))
	if linkErr != nil {
		if err == nil {
			err = linkErr
		}
		return 0, err
	}
	return wlanPercent(int(link)), nil
}

func wlanPercent(quality int) int {
	pct := int(math.Round(float64(quality) * 100 / wlanQualityMax))
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}

// cpu returns the busy percentage of the aggregate CPU since the previous
// call. A counter that went backwards, as after a CPU went offline, reads
// as 0 %.
func (s *Sampler) cpu() (int, error) {
	stat, err := s.proc.Stat()
	if err != nil {
		return 0, err
	}

	c := stat.CPUTotal
	idle := c.Idle + c.Iowait
	total := c.User + c.Nice + c.System + idle + c.IRQ + c.SoftIRQ + c.Steal
	busy := total - idle

	prevBusy, prevTotal, havePrev := s.prevBusy, s.prevTotal, s.havePrev
	s.prevBusy, s.prevTotal, s.havePrev = busy, total, true
	if !havePrev {
		return 0, nil
	}
	return busyPercent(busy-prevBusy, total-prevTotal), nil
}

func busyPercent(busy, total float64) int {
	if total <= 0 || busy <= 0 {
		return 0
	}
	pct := int(math.Round(busy * 100 / total))
	if pct > 100 {
		pct = 100
	}
	return pct
}

// temperature returns the first thermal zone reading, falling back to the
// first hwmon sensor, in hundredths of a degree Celsius.
func (s *Sampler) temperature() (int, error) {
	milli, err := s.thermalZone()
	if err != nil {
		if milli, err = readSysInt(filepath.Join(s.sysRoot, hwmonTemp)); err != nil {
			return 0, err
		}
	}
	return int(milli / 10), nil
}

// readSysInt reads a sysfs attribute holding a single integer.
func readSysInt(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}
