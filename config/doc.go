// Package config loads the YAML configuration of a rovlink endpoint.
//
// Values start from Default, are overlaid by the file and then by the
// ROVLINK_REMOTE_HOST, ROVLINK_REMOTE_PORT and ROVLINK_LOG_LEVEL environment
// variables. Every validation failure wraps ErrInvalidConfig.
package config
