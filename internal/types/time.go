package types

import "time"

// TimeLayout is the storage format of instants. It is fixed width and always UTC
// so stored values sort lexicographically in time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func ParseTime(t string) (time.Time, error) {
	parsed, err := time.Parse(TimeLayout, t)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, err
		}
	}
	return parsed.UTC(), nil
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
