// Package fixpoint loads a set of interdependent units whose load order is
// unknown.
//
// Run attempts every pending unit once per pass. Units that load are removed,
// units that fail with a retryable error stay for the next pass, and any other
// error aborts the run at once. A pass that loads nothing ends the run with a
// StalledError carrying the last retryable failure. Because every continuing
// pass removes at least one unit, Run always terminates.
package fixpoint
