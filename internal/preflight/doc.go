// Package preflight provides readiness checks for the binaries, directories,
// credentials, and object storage bucket that hardsub depends on.
//
// These checks run in two contexts:
//   - The burn command calls RunAll before starting a run. If any check
//     fails, it stops with a configuration error before touching the video.
//   - The doctor command renders every result, passing or not.
package preflight
