// Package scenario loads the YAML files that describe a demo video: what to
// open, how to capture it, what to say and which browser steps to perform.
package scenario
