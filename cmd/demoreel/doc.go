// Command demoreel builds narrated demo videos from declarative scenarios.
//
// `demoreel run` executes the whole pipeline. The narrate, record, capture,
// mux, plan and crop subcommands expose the individual steps, and status,
// history and config inspect the local setup.
package main
