package plants

import (
	"time"

	"plantpal-backend/internal/care"
)

type Plant struct {
	ID                      string     `json:"id"`
	Name                    string     `json:"name"`
	Species                 string     `json:"species"`
	Happiness               int        `json:"happiness"`
	WateringIntervalDays    int        `json:"wateringIntervalDays"`
	FertilizingIntervalDays int        `json:"fertilizingIntervalDays"`
	LastWatered             *time.Time `json:"lastWatered"`
	NextWatering            *time.Time `json:"nextWatering"`
	LastFertilized          *time.Time `json:"lastFertilized"`
	NextFertilizing         *time.Time `json:"nextFertilizing"`
	PhotoURLs               []string   `json:"photoUrls"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
	UserID                  string     `json:"userId"`
}

func (p Plant) Intervals() care.Intervals {
	return care.Intervals{
		Watering:    p.WateringIntervalDays,
		Fertilizing: p.FertilizingIntervalDays,
	}
}

// PlantUpdate is a partial write: nil fields are left untouched.
type PlantUpdate struct {
	Happiness               *int
	WateringIntervalDays    *int
	FertilizingIntervalDays *int
	LastWatered             *time.Time
	NextWatering            *time.Time
	LastFertilized          *time.Time
	NextFertilizing         *time.Time
	PhotoURLs               []string
	UpdatedAt               time.Time
}

func (u PlantUpdate) apply(p *Plant) {
	if u.Happiness != nil {
		p.Happiness = care.Clamp(*u.Happiness)
	}
	if u.WateringIntervalDays != nil {
		p.WateringIntervalDays = *u.WateringIntervalDays
	}
	if u.FertilizingIntervalDays != nil {
		p.FertilizingIntervalDays = *u.FertilizingIntervalDays
	}
	if u.LastWatered != nil {
		p.LastWatered = ptrTime(*u.LastWatered)
	}
	if u.NextWatering != nil {
		p.NextWatering = ptrTime(*u.NextWatering)
	}
	if u.LastFertilized != nil {
		p.LastFertilized = ptrTime(*u.LastFertilized)
	}
	if u.NextFertilizing != nil {
		p.NextFertilizing = ptrTime(*u.NextFertilizing)
	}
	if u.PhotoURLs != nil {
		p.PhotoURLs = append([]string(nil), u.PhotoURLs...)
	}
	if !u.UpdatedAt.IsZero() {
		p.UpdatedAt = u.UpdatedAt
	}
}

type Task struct {
	ID            string        `json:"id"`
	PlantID       string        `json:"plantId"`
	PlantName     string        `json:"plantName"`
	Type          care.TaskKind `json:"type"`
	ScheduledDate time.Time     `json:"scheduledDate"`
	Completed     bool          `json:"completed"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
	UserID        string        `json:"userId"`
	CreatedAt     time.Time     `json:"createdAt"`
}

func ptrTime(t time.Time) *time.Time { return &t }
