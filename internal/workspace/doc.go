// Package workspace manages the persistent checkout directory a single
// run owns exclusively, including the recreation escalation used after
// repeated sync failure.
package workspace
