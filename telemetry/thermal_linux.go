//go:build linux
// +build linux

package telemetry

import (
	"fmt"

	"github.com/prometheus/procfs/sysfs"
)

// thermalZone returns the first thermal zone temperature in millidegrees
// Celsius.
func (s *Sampler) thermalZone() (int64, error) {
	fs, err := sysfs.NewFS(s.sysRoot)
	if err != nil {
		return 0, err
	}
	zones, err := fs.ClassThermalZoneStats()
	if err != nil {
		return 0, fmt.Errorf("read thermal zones: %w", err)
	}
	if len(zones) == 0 {
		return 0, errNoReading
	}
	return zones[0].Temp, nil
}
