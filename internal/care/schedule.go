package care

import "time"

const (
	DefaultWateringIntervalDays    = 7
	DefaultFertilizingIntervalDays = 14
)

type Intervals struct {
	Watering    int `json:"watering"`
	Fertilizing int `json:"fertilizing"`
}

func DefaultIntervals() Intervals {
	return Intervals{
		Watering:    DefaultWateringIntervalDays,
		Fertilizing: DefaultFertilizingIntervalDays,
	}
}

// Normalize replaces unset (non-positive) intervals with the defaults.
func (iv Intervals) Normalize() Intervals {
	if iv.Watering <= 0 {
		iv.Watering = DefaultWateringIntervalDays
	}
	if iv.Fertilizing <= 0 {
		iv.Fertilizing = DefaultFertilizingIntervalDays
	}
	return iv
}

func (iv Intervals) For(kind TaskKind) int {
	iv = iv.Normalize()
	if kind == Fertilizing {
		return iv.Fertilizing
	}
	return iv.Watering
}

// Schedule is the outcome of one schedule generation.
type Schedule struct {
	Intervals       Intervals
	NextWatering    time.Time
	NextFertilizing time.Time
	Recommendations string
}

// ResolveIntervals keeps the current interval wherever the adviser had no
// opinion. Suggested values below one day are raised to one day.
func ResolveIntervals(current Intervals, watering, fertilizing *int) Intervals {
	out := current.Normalize()
	if watering != nil {
		out.Watering = max(1, *watering)
	}
	if fertilizing != nil {
		out.Fertilizing = max(1, *fertilizing)
	}
	return out
}

// NextDueDate adds whole calendar days in now's location, so the wall-clock
// time survives daylight-saving transitions.
func NextDueDate(now time.Time, intervalDays int) time.Time {
	if intervalDays <= 0 {
		intervalDays = 1
	}
	return now.AddDate(0, 0, intervalDays)
}

func BuildSchedule(now time.Time, iv Intervals, recommendations string) Schedule {
	iv = iv.Normalize()
	return Schedule{
		Intervals:       iv,
		NextWatering:    NextDueDate(now, iv.Watering),
		NextFertilizing: NextDueDate(now, iv.Fertilizing),
		Recommendations: recommendations,
	}
}

// IsFirstPhoto reports whether a plant whose photo list now has photoCount
// entries has just received its first one.
func IsFirstPhoto(photoCount int) bool {
	return photoCount == 1
}
