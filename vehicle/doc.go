// Package vehicle runs the vehicle end of the link. It reports procfs and
// sysfs telemetry every interval, answers video and light commands with a
// STATUS frame, applies drive and speed/turn commands and reports the
// resulting motor duty, points the camera, and stops the motors while the
// link is lost.
package vehicle
