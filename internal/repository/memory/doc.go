// Package memory is an in-process implementation of every repository the
// services depend on. It backs fixture-driven dry runs of the scheduler and
// the package tests of the wiring layers.
package memory
