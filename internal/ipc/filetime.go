package ipc

import "time"

const (
	ticksPerSecond = 10_000_000 // FILETIME is in 100ns ticks
	// unixEpochTicks is the FILETIME value of 1970-01-01 00:00:00 UTC.
	// FILETIME counts from 1601-01-01, which is 11644473600 seconds earlier.
	unixEpochTicks = 11644473600 * ticksPerSecond
)

// filetimeToTime converts a raw FILETIME tick count to a time.Time.
// Zero and negative values (the engine reports -1 for "unknown") yield
// ok == false.
func filetimeToTime(ticks int64) (time.Time, bool) {
	if ticks <= 0 {
		return time.Time{}, false
	}
	rel := ticks - unixEpochTicks
	secs := rel / ticksPerSecond
	nsec := (rel % ticksPerSecond) * 100
	return time.Unix(secs, nsec).UTC(), true
}

// TimeToFiletime converts a time.Time to FILETIME ticks. Times before the
// FILETIME epoch map to zero ("unknown").
func TimeToFiletime(t time.Time) int64 {
	ticks := unixEpochTicks + t.Unix()*ticksPerSecond + int64(t.Nanosecond())/100
	if ticks <= 0 {
		return 0
	}
	return ticks
}
