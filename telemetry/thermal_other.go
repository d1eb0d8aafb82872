//go:build !linux
// +build !linux

package telemetry

// thermalZone is only backed by sysfs on Linux.
func (s *Sampler) thermalZone() (int64, error) {
	return 0, errNoReading
}
