// Package preflight provides readiness checks for the filesystem paths and
// remote services trimreview depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failed check.
//   - The CLI "trimreview status" command uses CheckStore and CheckNtfy to
//     display connectivity.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
