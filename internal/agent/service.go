package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"plantpal-backend/internal/ai"
	"plantpal-backend/internal/analytics"
	"plantpal-backend/internal/care"
	"plantpal-backend/internal/plants"
)

var (
	ErrForbidden      = errors.New("plant belongs to another user")
	ErrInvalidRequest = errors.New("invalid request")
)

// PhotoUploader moves inline (data URL) photos to object storage and returns
// the URL to store instead.
type PhotoUploader interface {
	Upload(ctx context.Context, plantID, dataURL string) (string, error)
}

type Request struct {
	PlantID string      `json:"plantId"`
	Action  ai.Action   `json:"action"`
	Data    RequestData `json:"data"`
}

type RequestData struct {
	TaskType    string   `json:"taskType"`
	Completed   *bool    `json:"completed"`
	ImageURL    string   `json:"imageUrl"`
	CareHistory []string `json:"careHistory"`
}

type Response struct {
	PlantID                 string      `json:"plantId"`
	Status                  string      `json:"status"`
	Happiness               *int        `json:"happiness,omitempty"`
	HealthStatus            care.Status `json:"healthStatus,omitempty"`
	WateringIntervalDays    *int        `json:"watering_interval_days,omitempty"`
	FertilizingIntervalDays *int        `json:"fertilizing_interval_days,omitempty"`
	Recommendations         string      `json:"recommendations,omitempty"`
}

// Service runs the three plant-agent actions against a store and an AI agent.
type Service struct {
	Store  plants.Store
	AI     ai.Agent
	Photos PhotoUploader
	Events analytics.Sink
	Logger *log.Logger

	Now      func() time.Time
	Location *time.Location
}

func (s *Service) now() time.Time {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	if s.Location != nil {
		now = now.In(s.Location)
	}
	return now
}

func (s *Service) logger() *log.Logger {
	if s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}

// LoadOwned returns the plant if userID owns it. Nothing is written
// before this check passes.
func (s *Service) LoadOwned(ctx context.Context, userID, plantID string) (plants.Plant, error) {
	p, err := s.Store.GetPlant(ctx, plantID)
	if err != nil {
		return plants.Plant{}, err
	}
	if p.UserID != userID {
		return plants.Plant{}, ErrForbidden
	}
	return p, nil
}

// Handle validates and dispatches one agent request on behalf of userID.
func (s *Service) Handle(ctx context.Context, userID string, req Request) (Response, error) {
	req.PlantID = strings.TrimSpace(req.PlantID)
	if req.PlantID == "" || req.Action == "" {
		return Response{}, fmt.Errorf("%w: missing plantId or action", ErrInvalidRequest)
	}
	if !req.Action.Valid() {
		return Response{}, fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, req.Action)
	}

	p, err := s.LoadOwned(ctx, userID, req.PlantID)
	if err != nil {
		return Response{}, err
	}

	switch req.Action {
	case ai.GenerateSchedule:
		return s.GenerateSchedule(ctx, p)

	case ai.UpdateStatus:
		kind, err := care.ParseTaskKind(req.Data.TaskType)
		if err != nil {
			return Response{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		completed := true
		if req.Data.Completed != nil {
			completed = *req.Data.Completed
		}
		return s.UpdateStatus(ctx, p, kind, completed, req.Data.CareHistory)

	default:
		if strings.TrimSpace(req.Data.ImageURL) == "" {
			return Response{}, fmt.Errorf("%w: imageUrl is required", ErrInvalidRequest)
		}
		return s.AnalyzePhoto(ctx, p, req.Data.ImageURL)
	}
}

// GenerateSchedule asks the AI for care intervals, keeps the current ones
// where it has no opinion, writes the next due dates and creates one task
// per care kind.
func (s *Service) GenerateSchedule(ctx context.Context, p plants.Plant) (Response, error) {
	res, err := s.AI.Run(ctx, ai.GenerateSchedule, ai.Payload{
		Species:          p.Species,
		CurrentIntervals: p.Intervals(),
	})
	if err != nil {
		return Response{}, fmt.Errorf("generate schedule: %w", err)
	}

	now := s.now()
	iv := care.ResolveIntervals(p.Intervals(), res.WateringIntervalDays, res.FertilizingIntervalDays)
	sched := care.BuildSchedule(now, iv, res.Recommendations)

	err = s.Store.UpdatePlant(ctx, p.ID, plants.PlantUpdate{
		WateringIntervalDays:    &sched.Intervals.Watering,
		FertilizingIntervalDays: &sched.Intervals.Fertilizing,
		NextWatering:            &sched.NextWatering,
		NextFertilizing:         &sched.NextFertilizing,
		UpdatedAt:               now,
	})
	if err != nil {
		return Response{}, fmt.Errorf("update plant: %w", err)
	}

	for _, t := range []struct {
		kind care.TaskKind
		at   time.Time
	}{
		{care.Watering, sched.NextWatering},
		{care.Fertilizing, sched.NextFertilizing},
	} {
		_, err := s.Store.CreateTask(ctx, plants.Task{
			PlantID:       p.ID,
			PlantName:     p.Name,
			Type:          t.kind,
			ScheduledDate: t.at,
			UserID:        p.UserID,
			CreatedAt:     now,
		})
		if err != nil {
			return Response{}, fmt.Errorf("create %s task: %w", t.kind, err)
		}
	}

	s.record(ctx, p.UserID, "schedule_generated", map[string]any{
		"plant_id":                  p.ID,
		"watering_interval_days":    sched.Intervals.Watering,
		"fertilizing_interval_days": sched.Intervals.Fertilizing,
		"ai_intervals":              res.WateringIntervalDays != nil || res.FertilizingIntervalDays != nil,
	})

	return Response{
		PlantID:                 p.ID,
		Status:                  "updated",
		WateringIntervalDays:    &sched.Intervals.Watering,
		FertilizingIntervalDays: &sched.Intervals.Fertilizing,
		Recommendations:         sched.Recommendations,
	}, nil
}

// UpdateStatus applies one care event. The locally computed happiness is
// replaced by the AI's value when it offers one.
func (s *Service) UpdateStatus(ctx context.Context, p plants.Plant, kind care.TaskKind, completed bool, history []string) (Response, error) {
	computed := care.ApplyTaskEvent(p.Happiness, kind, completed)

	res, err := s.AI.Run(ctx, ai.UpdateStatus, ai.Payload{
		TaskType:         kind,
		Completed:        completed,
		CurrentHappiness: p.Happiness,
		CareHistory:      history,
	})
	if err != nil {
		return Response{}, fmt.Errorf("update status: %w", err)
	}

	now := s.now()
	happiness := care.ResolveHappiness(computed, res.Happiness)
	u := plants.PlantUpdate{Happiness: &happiness, UpdatedAt: now}
	if completed {
		next := care.NextDueDate(now, p.Intervals().For(kind))
		if kind == care.Fertilizing {
			u.LastFertilized, u.NextFertilizing = &now, &next
		} else {
			u.LastWatered, u.NextWatering = &now, &next
		}
	}
	if err := s.Store.UpdatePlant(ctx, p.ID, u); err != nil {
		return Response{}, fmt.Errorf("update plant: %w", err)
	}

	status := care.Classify(happiness)
	s.record(ctx, p.UserID, "status_updated", map[string]any{
		"plant_id":       p.ID,
		"task_type":      kind,
		"completed":      completed,
		"happiness_from": p.Happiness,
		"happiness_to":   happiness,
		"health_status":  status,
		"ai_override":    res.Happiness != nil,
	})

	return Response{
		PlantID:         p.ID,
		Status:          "updated",
		Happiness:       &happiness,
		HealthStatus:    status,
		Recommendations: res.Recommendations,
	}, nil
}

// AnalyzePhoto appends the photo and takes the AI's happiness baseline.
// On the plant's first photo a schedule is generated as well; a failure
// there is logged and does not fail the photo analysis.
func (s *Service) AnalyzePhoto(ctx context.Context, p plants.Plant, imageURL string) (Response, error) {
	url := imageURL
	if s.Photos != nil && strings.HasPrefix(imageURL, "data:") {
		uploaded, err := s.Photos.Upload(ctx, p.ID, imageURL)
		if err != nil {
			return Response{}, fmt.Errorf("upload photo: %w", err)
		}
		url = uploaded
	}

	res, err := s.AI.Run(ctx, ai.AnalyzePhoto, ai.Payload{ImageURL: url})
	if err != nil {
		return Response{}, fmt.Errorf("analyze photo: %w", err)
	}

	happiness := care.ResolveHappiness(p.Happiness, res.Happiness)
	photos := append(append([]string{}, p.PhotoURLs...), url)
	now := s.now()
	err = s.Store.UpdatePlant(ctx, p.ID, plants.PlantUpdate{
		Happiness: &happiness,
		PhotoURLs: photos,
		UpdatedAt: now,
	})
	if err != nil {
		return Response{}, fmt.Errorf("update plant: %w", err)
	}

	first := care.IsFirstPhoto(len(photos))
	if first {
		p.Happiness, p.PhotoURLs = happiness, photos
		if _, err := s.GenerateSchedule(ctx, p); err != nil {
			s.logger().Warn("schedule generation after first photo failed", "plant", p.ID, "err", err)
		}
	}

	status := care.Classify(happiness)
	s.record(ctx, p.UserID, "photo_analyzed", map[string]any{
		"plant_id":      p.ID,
		"photo_count":   len(photos),
		"first_photo":   first,
		"happiness":     happiness,
		"health_status": status,
		"inline_upload": url != imageURL,
	})

	return Response{
		PlantID:         p.ID,
		Status:          "updated",
		Happiness:       &happiness,
		HealthStatus:    status,
		Recommendations: res.Recommendations,
	}, nil
}

// CompleteTask marks a task done and feeds it into the plant's happiness.
func (s *Service) CompleteTask(ctx context.Context, userID, taskID string) (plants.Task, Response, error) {
	t, err := s.Store.GetTask(ctx, taskID)
	if err != nil {
		return plants.Task{}, Response{}, err
	}
	if t.UserID != userID {
		return plants.Task{}, Response{}, ErrForbidden
	}
	p, err := s.LoadOwned(ctx, userID, t.PlantID)
	if err != nil {
		return plants.Task{}, Response{}, err
	}

	if t.Completed {
		return t, Response{}, plants.ErrAlreadyCompleted
	}

	// A failed status update leaves the task open.
	resp, err := s.UpdateStatus(ctx, p, t.Type, true, nil)
	if err != nil {
		return t, Response{}, err
	}

	t, err = s.Store.CompleteTask(ctx, taskID, s.now())
	if err != nil {
		return t, Response{}, err
	}

	s.record(ctx, userID, "task_completed", map[string]any{
		"task_id":   t.ID,
		"plant_id":  t.PlantID,
		"task_type": t.Type,
		"late":      t.CompletedAt != nil && t.CompletedAt.After(t.ScheduledDate),
	})
	return t, resp, nil
}

func (s *Service) record(ctx context.Context, userID, name string, props map[string]any) {
	if s.Events == nil {
		return
	}
	env, _ := EnvelopeFromContext(ctx)
	env.UserID = userID
	_ = analytics.Log(ctx, s.Events, env, name, props, sourceKeyFromContext(ctx, name))
}
