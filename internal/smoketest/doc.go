// Package smoketest runs the installed daemon once with throwaway arguments to
// prove it starts and parses its command line.
//
// Each run owns a freshly created scratch directory that is removed on every
// exit path. The daemon is asked to listen on ephemeral IPv6 and IPv4 loopback
// ports, to use a command pipe inside the scratch directory, and to print its
// usage and exit. Any exit status other than the expected one, or a child
// killed because the context ended, is a services.ErrVerification failure.
package smoketest
