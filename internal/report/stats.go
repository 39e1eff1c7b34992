package report

// ComputeStatistics aggregates accuracy errors over an already-fetched set
// of reports. It performs no I/O, so it can be tested independently of the
// store. Zero counts yield zero averages and maxima.
func ComputeStatistics(reports []*LocationReport) Statistics {
	stats := Statistics{Count: len(reports)}
	if stats.Count == 0 {
		return stats
	}

	var total float64
	for _, r := range reports {
		errMeters := r.ErrorMeters()
		total += errMeters
		if errMeters > stats.MaxErrorMeters {
			stats.MaxErrorMeters = errMeters
		}
	}
	stats.AverageErrorMeters = total / float64(stats.Count)

	return stats
}
