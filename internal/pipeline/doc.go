// Package pipeline drives a conversion batch: it lists the source folder,
// converts every replay container to a JSON document, archives or deletes
// the inputs as configured, and reports a summary.
//
// Files:
//   - discover.go: flat, sorted listing of the source folder.
//   - runner.go:   Run and the per-file convert/backup/delete sequence.
//   - stats.go:    RunStats counters.
//
// Files are processed sequentially and independently: a failure is logged
// and counted, never fatal to the batch. Only a listing failure of the
// source folder is returned as an error.
package pipeline
