package idutil

import "fmt"

// Row keys are fixed-width, zero-padded ASCII decimal fields separated by
// single-byte ':' delimiters (spec §6 "Key layouts"), so that a
// lexicographic byte-range scan is also a numeric range scan.

// PackObservationKey builds the key of one observation row:
// <customer>:<project>:<metric>:<day_index>:<arrival_id>, each field a
// 10-digit zero-padded decimal.
func PackObservationKey(customerID, projectID, metricID uint32, day DayIndex, arrivalID uint32) []byte {
	return []byte(fmt.Sprintf("%010d:%010d:%010d:%010d:%010d", customerID, projectID, metricID, uint32(day), arrivalID))
}

// ObservationMetricPrefix is the key prefix shared by every observation of
// one metric; scanning it returns exactly that metric's rows (invariant 1).
func ObservationMetricPrefix(customerID, projectID, metricID uint32) []byte {
	return []byte(fmt.Sprintf("%010d:%010d:%010d:", customerID, projectID, metricID))
}

// ObservationDayRangeBounds returns the [start, limit) byte-key bounds for a
// scan of day indices in [startDay, endDay] (inclusive on both ends per
// spec §4.2) for one metric. An endDay of DayIndexFutureInfinity yields a
// limit at the end of the metric's key range, so the scan still covers only
// that metric's rows.
func ObservationDayRangeBounds(customerID, projectID, metricID uint32, startDay, endDay DayIndex) (start, limit []byte) {
	prefix := ObservationMetricPrefix(customerID, projectID, metricID)
	start = append(append([]byte{}, prefix...), []byte(fmt.Sprintf("%010d:%010d", uint32(startDay), uint32(0)))...)
	// ';' is the byte after ':', so this sorts after every key with prefix.
	metricEnd := append(append([]byte{}, prefix[:len(prefix)-1]...), ';')
	if endDay == DayIndexFutureInfinity {
		return start, metricEnd
	}
	limitDay := uint32(endDay) + 1
	if limitDay == 0 {
		// endDay was already the max representable value; scan to the end
		// of the metric.
		return start, metricEnd
	}
	limit = append(append([]byte{}, prefix...), []byte(fmt.Sprintf("%010d:%010d", limitDay, uint32(0)))...)
	return start, limit
}

// PackReportMetadataKey builds the 69-byte metadata row key for a report ID:
// <customer>:<project>:<report_config_id>:<creation_time_seconds>:<instance_id>:<sequence_num>
// with widths 10:10:10:20:10:4.
func PackReportMetadataKey(id ReportID) []byte {
	return []byte(fmt.Sprintf("%010d:%010d:%010d:%020d:%010d:%04d",
		id.CustomerID, id.ProjectID, id.ReportConfigID, id.CreationTimeSeconds, id.InstanceID, id.SequenceNum))
}

// ReportConfigPrefix is the key prefix shared by every report ever started
// from one report config.
func ReportConfigPrefix(customerID, projectID, reportConfigID uint32) []byte {
	return []byte(fmt.Sprintf("%010d:%010d:%010d:", customerID, projectID, reportConfigID))
}

// ReportMetadataTimeRangeBounds returns the [start, limit) byte-key bounds
// for a metadata scan of one report config within
// [intervalStartSeconds, intervalEndSecondsExclusive). A negative
// intervalEndSecondsExclusive means no upper time bound; the limit is then
// the end of the report config's key range.
func ReportMetadataTimeRangeBounds(customerID, projectID, reportConfigID uint32, intervalStartSeconds, intervalEndSecondsExclusive int64) (start, limit []byte) {
	prefix := ReportConfigPrefix(customerID, projectID, reportConfigID)
	start = append(append([]byte{}, prefix...), []byte(fmt.Sprintf("%020d", intervalStartSeconds))...)
	if intervalEndSecondsExclusive < 0 {
		// ';' is the byte after ':', so this sorts after every key with prefix.
		return start, append(append([]byte{}, prefix[:len(prefix)-1]...), ';')
	}
	limit = append(append([]byte{}, prefix...), []byte(fmt.Sprintf("%020d", intervalEndSecondsExclusive))...)
	return start, limit
}

// ReportRowKeyPrefix is the metadata key followed by ':', the prefix under
// which every row of one report is stored.
func ReportRowKeyPrefix(id ReportID) []byte {
	return append(PackReportMetadataKey(id), ':')
}

// PackReportRowKey builds one report row's key: the metadata key, ':', and
// a 10-digit random suffix.
func PackReportRowKey(id ReportID, suffix uint64) []byte {
	return []byte(fmt.Sprintf("%s:%010d", PackReportMetadataKey(id), suffix%10000000000))
}

// ReportRowKeyUpperBound is the inclusive-high sentinel for a report's row
// scan: the prefix followed by the maximal 10-digit suffix (spec §6).
func ReportRowKeyUpperBound(id ReportID) []byte {
	return []byte(fmt.Sprintf("%s:9999999999", PackReportMetadataKey(id)))
}
