package plants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"plantpal-backend/internal/care"
)

type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

const plantColumns = `
	id, name, species, happiness,
	watering_interval_days, fertilizing_interval_days,
	last_watered, next_watering, last_fertilized, next_fertilizing,
	photo_urls, created_at, updated_at, user_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlant(row rowScanner) (Plant, error) {
	var (
		p            Plant
		lastW, nextW sql.NullTime
		lastF, nextF sql.NullTime
		photos       pq.StringArray
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Species, &p.Happiness,
		&p.WateringIntervalDays, &p.FertilizingIntervalDays,
		&lastW, &nextW, &lastF, &nextF,
		&photos, &p.CreatedAt, &p.UpdatedAt, &p.UserID,
	)
	if err != nil {
		return Plant{}, err
	}
	p.LastWatered = nullTime(lastW)
	p.NextWatering = nullTime(nextW)
	p.LastFertilized = nullTime(lastF)
	p.NextFertilizing = nullTime(nextF)
	p.PhotoURLs = append([]string{}, photos...)
	return p, nil
}

func (s *PostgresStore) CreatePlant(ctx context.Context, p Plant) (Plant, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	p.Happiness = care.Clamp(p.Happiness)
	if p.PhotoURLs == nil {
		p.PhotoURLs = []string{}
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO plants (`+plantColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		p.ID, p.Name, p.Species, p.Happiness,
		p.WateringIntervalDays, p.FertilizingIntervalDays,
		p.LastWatered, p.NextWatering, p.LastFertilized, p.NextFertilizing,
		pq.Array(p.PhotoURLs), p.CreatedAt, p.UpdatedAt, p.UserID,
	)
	if err != nil {
		return Plant{}, fmt.Errorf("insert plant: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetPlant(ctx context.Context, id string) (Plant, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+plantColumns+` FROM plants WHERE id = $1`, id)
	p, err := scanPlant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Plant{}, ErrNotFound
	}
	if err != nil {
		return Plant{}, fmt.Errorf("select plant: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPlants(ctx context.Context, userID string) ([]Plant, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+plantColumns+`
		FROM plants
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}
	defer rows.Close()

	out := []Plant{}
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePlant builds the SET clause from the non-nil fields of u,
// the SQL counterpart of a document merge.
func (s *PostgresStore) UpdatePlant(ctx context.Context, id string, u PlantUpdate) error {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.Happiness != nil {
		add("happiness", care.Clamp(*u.Happiness))
	}
	if u.WateringIntervalDays != nil {
		add("watering_interval_days", *u.WateringIntervalDays)
	}
	if u.FertilizingIntervalDays != nil {
		add("fertilizing_interval_days", *u.FertilizingIntervalDays)
	}
	if u.LastWatered != nil {
		add("last_watered", *u.LastWatered)
	}
	if u.NextWatering != nil {
		add("next_watering", *u.NextWatering)
	}
	if u.LastFertilized != nil {
		add("last_fertilized", *u.LastFertilized)
	}
	if u.NextFertilizing != nil {
		add("next_fertilizing", *u.NextFertilizing)
	}
	if u.PhotoURLs != nil {
		add("photo_urls", pq.Array(u.PhotoURLs))
	}
	updatedAt := u.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	add("updated_at", updatedAt)

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE plants SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update plant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const taskColumns = `id, plant_id, plant_name, type, scheduled_date, completed, completed_at, user_id, created_at`

func scanTask(row rowScanner) (Task, error) {
	var (
		t           Task
		kind        string
		completedAt sql.NullTime
	)
	if err := row.Scan(
		&t.ID, &t.PlantID, &t.PlantName, &kind, &t.ScheduledDate,
		&t.Completed, &completedAt, &t.UserID, &t.CreatedAt,
	); err != nil {
		return Task{}, err
	}
	t.Type = care.TaskKind(kind)
	t.CompletedAt = nullTime(completedAt)
	return t, nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, t Task) (Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		t.ID, t.PlantID, t.PlantName, string(t.Type), t.ScheduledDate,
		t.Completed, t.CompletedAt, t.UserID, t.CreatedAt,
	)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, id string) (Task, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("select task: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, userID, plantID string) ([]Task, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1 AND ($2 = '' OR plant_id = $2)
		ORDER BY scheduled_date, created_at
	`, userID, plantID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CompleteTask(ctx context.Context, id string, at time.Time) (Task, error) {
	row := s.DB.QueryRowContext(ctx, `
		UPDATE tasks
		SET completed = TRUE, completed_at = $2
		WHERE id = $1 AND completed = FALSE
		RETURNING `+taskColumns, id, at)
	t, err := scanTask(row)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Task{}, fmt.Errorf("complete task: %w", err)
	}

	// either missing or already done
	existing, getErr := s.GetTask(ctx, id)
	if getErr != nil {
		return Task{}, getErr
	}
	return existing, ErrAlreadyCompleted
}

func (s *PostgresStore) Close() error {
	return s.DB.Close()
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return ptrTime(t.Time)
}
