// Package telemetry samples the vehicle's procfs and sysfs counters for the
// STATS message and the periodic value reports.
//
// Load, CPU and wireless quality come from github.com/prometheus/procfs and
// the temperature from its sysfs thermal zones. Uptime, the wlan0 link file
// and the hwmon sensor are read directly because procfs has no reader for
// them.
package telemetry
