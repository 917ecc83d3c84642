// Parses flags and configures logging for the crateship CLI.
//
// The build command accepts the target triple, build profile, parallel job
// bound, project root, and output directory; the target and job count may
// also come from CRATESHIP_TARGET and CRATESHIP_JOBS, with flags taking
// precedence. The process exits 0 on success and with a stage-specific code
// on failure (2 config, 3 toolchain, 4 compile, 5 package) so scripts can
// tell where a build broke without parsing output.
package cli
