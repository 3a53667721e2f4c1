// Package preflight provides readiness checks run before anything is fetched
// or built.
//
// These checks run in two contexts:
//   - The install pipeline calls RunAll and aborts on the first failed check,
//     so a missing tool or an unwritable prefix is reported before minutes of
//     compilation are spent.
//   - The CLI "deps" command uses CheckSystemDeps to display dependency
//     availability.
//
// Optional dependencies switched off by their toggle are reported as skipped.
package preflight
