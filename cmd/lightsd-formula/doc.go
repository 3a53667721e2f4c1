// Package main hosts the lightsd-formula CLI entrypoint and command graph.
//
// The Cobra command tree exposes the full install pipeline plus each recipe
// step on its own: dependency checks, the resolved layout, the configure
// argument vector, the launchd descriptor, caveats, and the smoke test. It
// centralizes configuration resolution and logger setup so subcommands only
// translate flags into calls on the internal packages.
package main
