// Package store records sweep history in SQLite.
//
// A run is one sweep; each calculated frame of the run is stored with its
// constant, point count, latency and the file it was written to. The store is
// optional: sweeps run without it when no history path is configured.
package store
