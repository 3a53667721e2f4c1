// Package recipe runs the lightsd packaging steps in order: declare
// dependencies, preflight, resolve the install layout, assemble the build
// configuration, fetch the source, build and install, write the launchd
// descriptor, print caveats, and smoke test the installed binary.
//
// Every step blocks until it completes and the first failure ends the run.
// Nothing already installed is rolled back. Each run is recorded in the
// receipts ledger when a store is supplied.
package recipe
