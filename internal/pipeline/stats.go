package pipeline

// RunStats tracks aggregate counters and byte totals across a batch run.
type RunStats struct {
	Total     int // Directory entries seen.
	Current   int // Index of the entry being processed (1-based).
	Converted int
	Ignored   int // Not a container.
	Skipped   int // Existing output or already journaled.
	Failed    int
	BackedUp  int
	Deleted   int
	BytesIn   int64 // Container bytes read for converted files.
	BytesOut  int64 // JSON bytes written.
}

// Containers returns the number of entries that were conversion candidates.
func (s *RunStats) Containers() int {
	return s.Total - s.Ignored
}
