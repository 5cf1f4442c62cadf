// Package memory provides in-memory implementations of the driven
// storage ports. They back tests and the zero-configuration local setup
// where nothing needs to survive a restart.
package memory
