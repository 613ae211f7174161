// Package preflight provides readiness checks for the filesystem paths and
// external tools a download run depends on.
//
// These checks run in two contexts:
//   - The download command runs them before any network or file activity;
//     a failed required check terminates the run before aria2c starts.
//   - The CLI "romdl deps" command uses CheckSystemDeps to display tool
//     availability on demand.
package preflight
