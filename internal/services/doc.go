// Package services defines shared utilities consumed by the recipe steps and
// the build tool clients.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs and step names for logging.
//   - Structured error markers plus the Wrap helper that classify a failure as
//     a dependency, configuration, build, or verification error.
//   - The Executor abstraction with an explicit Launch description, so every
//     subprocess receives its own working directory and environment instead
//     of inheriting mutations of the process state.
//
// Use these helpers when wiring new step logic so error classification and
// subprocess handling stay uniform across the pipeline.
package services
