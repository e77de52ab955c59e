package care

import "fmt"

const (
	MinHappiness     = 0
	MaxHappiness     = 100
	DefaultHappiness = 50
)

type TaskKind string

const (
	Watering    TaskKind = "watering"
	Fertilizing TaskKind = "fertilizing"
)

func ParseTaskKind(s string) (TaskKind, error) {
	switch TaskKind(s) {
	case Watering, Fertilizing:
		return TaskKind(s), nil
	default:
		return "", fmt.Errorf("unknown task type %q", s)
	}
}

// Status is the derived care state of a plant. It is never stored:
// Classify recomputes it from the happiness value on every read.
type Status string

const (
	Healthy        Status = "healthy"
	NeedsAttention Status = "needs_attention"
	Neglected      Status = "neglected"
	Emergency      Status = "emergency"
)

func Clamp(h int) int {
	if h < MinHappiness {
		return MinHappiness
	}
	if h > MaxHappiness {
		return MaxHappiness
	}
	return h
}

// TaskDelta is the happiness change for one care event.
// Fertilizing weighs three times as much as watering, in both directions.
func TaskDelta(kind TaskKind, completed bool) int {
	d := 1
	if kind == Fertilizing {
		d = 3
	}
	if !completed {
		d = -d
	}
	return d
}

func ApplyTaskEvent(current int, kind TaskKind, completed bool) int {
	return Clamp(current + TaskDelta(kind, completed))
}

// ResolveHappiness applies the AI override policy: a happiness value
// suggested by the AI adapter wins over the locally computed one.
// A nil suggestion keeps the local value.
func ResolveHappiness(computed int, suggested *int) int {
	if suggested != nil {
		return Clamp(*suggested)
	}
	return Clamp(computed)
}

func Classify(h int) Status {
	switch h = Clamp(h); {
	case h >= 75:
		return Healthy
	case h >= 50:
		return NeedsAttention
	case h >= 25:
		return Neglected
	default:
		return Emergency
	}
}

func ValidStatus(s string) bool {
	switch Status(s) {
	case Healthy, NeedsAttention, Neglected, Emergency:
		return true
	}
	return false
}
