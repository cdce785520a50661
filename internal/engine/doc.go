// Package engine contains the core scanning logic for Enveil. It traverses
// target files, runs the detector, and returns structured findings. This
// package is internal; external consumers should use the stable facade in
// pkg/core.
package engine
