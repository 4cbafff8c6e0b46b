// Package cli implements the ddmatrix command-line interface.
//
// # Command Structure
//
//	ddmatrix run       - Run the dashboard until interrupted
//	ddmatrix check     - Validate metrics.json and credentials
//	ddmatrix preview   - Query every metric once and print the result
//	ddmatrix init      - Write a starter metrics.json and secrets.yaml
//	ddmatrix version   - Print version information
//
// # Settings
//
// Runtime settings come from ddmatrix.yaml (see config.FindSettings for the
// search order) with DDMATRIX_* environment overrides. The --metrics and
// --secrets flags override the file paths named in settings.
//
// # Output
//
// When stdout is a terminal, run renders the panel in the terminal with
// half-block characters and logs go to a file. Otherwise the panel's text
// changes are logged, which suits a service manager's journal.
package cli
