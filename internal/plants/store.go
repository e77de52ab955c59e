package plants

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyCompleted = errors.New("task already completed")
)

// Store persists plants and their care tasks. Every method is a single
// read or a single read-modify-write; there is no cross-call locking.
type Store interface {
	CreatePlant(ctx context.Context, p Plant) (Plant, error)
	GetPlant(ctx context.Context, id string) (Plant, error)
	ListPlants(ctx context.Context, userID string) ([]Plant, error)
	UpdatePlant(ctx context.Context, id string, u PlantUpdate) error

	CreateTask(ctx context.Context, t Task) (Task, error)
	GetTask(ctx context.Context, id string) (Task, error)
	ListTasks(ctx context.Context, userID, plantID string) ([]Task, error)
	CompleteTask(ctx context.Context, id string, at time.Time) (Task, error)

	Close() error
}
