// Package cmake drives the daemon's CMake build: a configure step with the
// assembled argument vector followed by make install.
//
// Each subprocess receives an explicit services.Launch carrying its working
// directory and a complete environment whose PATH is prefixed with the
// configured directories. The recipe's own environment is read once and never
// modified. Tool output streams to the configured writers byte for byte, and a
// failing step is reported as services.ErrBuild with the exit status kept in
// the error chain. A partially populated keg is left for the host package
// manager to discard.
package cmake
