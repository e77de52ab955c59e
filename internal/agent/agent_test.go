package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantpal-backend/internal/ai"
	"plantpal-backend/internal/analytics"
	"plantpal-backend/internal/auth"
	"plantpal-backend/internal/care"
	"plantpal-backend/internal/plants"
)

var fixedNow = time.Date(2026, 4, 10, 8, 30, 0, 0, time.UTC)

type fakeAI struct {
	results map[ai.Action]ai.Result
	errs    map[ai.Action]error
	calls   []ai.Action
}

func (f *fakeAI) Run(_ context.Context, action ai.Action, _ ai.Payload) (ai.Result, error) {
	f.calls = append(f.calls, action)
	if err := f.errs[action]; err != nil {
		return ai.Result{}, err
	}
	return f.results[action], nil
}

// countingStore records writes so tests can assert none happened.
type countingStore struct {
	*plants.MemoryStore
	writes int
}

func (s *countingStore) UpdatePlant(ctx context.Context, id string, u plants.PlantUpdate) error {
	s.writes++
	return s.MemoryStore.UpdatePlant(ctx, id, u)
}

func (s *countingStore) CreateTask(ctx context.Context, t plants.Task) (plants.Task, error) {
	s.writes++
	return s.MemoryStore.CreateTask(ctx, t)
}

type fakeUploader struct{ err error }

func (f fakeUploader) Upload(_ context.Context, plantID, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://photos.local/plantpal/plants/" + plantID + "/p.jpg", nil
}

func newService(t *testing.T, agent *fakeAI) (*Service, *countingStore, *analytics.MemorySink) {
	t.Helper()
	store := &countingStore{MemoryStore: plants.NewMemoryStore()}
	sink := analytics.NewMemorySink()
	return &Service{
		Store:  store,
		AI:     agent,
		Events: sink,
		Now:    func() time.Time { return fixedNow },
	}, store, sink
}

func seedPlant(t *testing.T, s plants.Store, p plants.Plant) plants.Plant {
	t.Helper()
	if p.UserID == "" {
		p.UserID = "user-1"
	}
	if p.Name == "" {
		p.Name = "Fern"
	}
	created, err := s.CreatePlant(t.Context(), p)
	require.NoError(t, err)
	return created
}

func intp(v int) *int { return &v }

func boolp(v bool) *bool { return &v }

func TestUpdateStatusWateringAtNinety(t *testing.T) {
	svc, store, _ := newService(t, &fakeAI{})
	p := seedPlant(t, store, plants.Plant{Happiness: 90, WateringIntervalDays: 5})

	resp, err := svc.Handle(t.Context(), "user-1", Request{
		PlantID: p.ID,
		Action:  ai.UpdateStatus,
		Data:    RequestData{TaskType: "watering", Completed: boolp(true)},
	})
	require.NoError(t, err)
	assert.Equal(t, 91, *resp.Happiness)
	assert.Equal(t, care.Healthy, resp.HealthStatus)

	got, err := store.GetPlant(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 91, got.Happiness)
	require.NotNil(t, got.LastWatered)
	assert.True(t, got.LastWatered.Equal(fixedNow))
	assert.True(t, got.NextWatering.Equal(fixedNow.AddDate(0, 0, 5)))
	assert.Nil(t, got.LastFertilized)
}

func TestUpdateStatusMissedFertilizingClampsToZero(t *testing.T) {
	svc, store, _ := newService(t, &fakeAI{})
	p := seedPlant(t, store, plants.Plant{Happiness: 2})

	resp, err := svc.Handle(t.Context(), "user-1", Request{
		PlantID: p.ID,
		Action:  ai.UpdateStatus,
		Data:    RequestData{TaskType: "fertilizing", Completed: boolp(false)},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, *resp.Happiness)
	assert.Equal(t, care.Emergency, resp.HealthStatus)

	got, _ := store.GetPlant(t.Context(), p.ID)
	assert.Nil(t, got.LastFertilized)
	assert.Nil(t, got.NextFertilizing)
}

func TestUpdateStatusAIOverrideWins(t *testing.T) {
	agent := &fakeAI{results: map[ai.Action]ai.Result{
		ai.UpdateStatus: {Happiness: intp(40), HealthStatus: care.Healthy, Recommendations: "more light"},
	}}
	svc, store, _ := newService(t, agent)
	p := seedPlant(t, store, plants.Plant{Happiness: 90})

	resp, err := svc.Handle(t.Context(), "user-1", Request{
		PlantID: p.ID,
		Action:  ai.UpdateStatus,
		Data:    RequestData{TaskType: "watering"},
	})
	require.NoError(t, err)
	assert.Equal(t, 40, *resp.Happiness)
	// status is always derived from the stored value
	assert.Equal(t, care.Neglected, resp.HealthStatus)
	assert.Equal(t, "more light", resp.Recommendations)
}

func TestUpdateStatusRejectsBadTaskType(t *testing.T) {
	svc, store, _ := newService(t, &fakeAI{})
	p := seedPlant(t, store, plants.Plant{Happiness: 50})

	_, err := svc.Handle(t.Context(), "user-1", Request{PlantID: p.ID, Action: ai.UpdateStatus})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, store.writes)
}

func TestGenerateScheduleWithoutAIOpinion(t *testing.T) {
	agent := &fakeAI{}
	svc, store, sink := newService(t, agent)
	p := seedPlant(t, store, plants.Plant{WateringIntervalDays: 4, FertilizingIntervalDays: 21})

	resp, err := svc.Handle(t.Context(), "user-1", Request{PlantID: p.ID, Action: ai.GenerateSchedule})
	require.NoError(t, err)
	assert.Equal(t, 4, *resp.WateringIntervalDays)
	assert.Equal(t, 21, *resp.FertilizingIntervalDays)

	tasks, err := store.ListTasks(t.Context(), "user-1", p.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, care.Watering, tasks[0].Type)
	assert.True(t, tasks[0].ScheduledDate.Equal(fixedNow.AddDate(0, 0, 4)))
	assert.Equal(t, care.Fertilizing, tasks[1].Type)
	assert.True(t, tasks[1].ScheduledDate.Equal(fixedNow.AddDate(0, 0, 21)))
	assert.Equal(t, "Fern", tasks[0].PlantName)

	got, _ := store.GetPlant(t.Context(), p.ID)
	assert.Equal(t, 4, got.WateringIntervalDays)
	assert.True(t, got.NextFertilizing.Equal(fixedNow.AddDate(0, 0, 21)))

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "schedule_generated", events[0].Name)
}

func TestGenerateScheduleUsesAIIntervals(t *testing.T) {
	agent := &fakeAI{results: map[ai.Action]ai.Result{
		ai.GenerateSchedule: {WateringIntervalDays: intp(12), Recommendations: "let soil dry"},
	}}
	svc, store, _ := newService(t, agent)
	p := seedPlant(t, store, plants.Plant{Species: "Aloe vera"})

	resp, err := svc.Handle(t.Context(), "user-1", Request{PlantID: p.ID, Action: ai.GenerateSchedule})
	require.NoError(t, err)
	assert.Equal(t, 12, *resp.WateringIntervalDays)
	assert.Equal(t, care.DefaultFertilizingIntervalDays, *resp.FertilizingIntervalDays)
	assert.Equal(t, "let soil dry", resp.Recommendations)
}

func TestAnalyzeFirstPhotoSurvivesScheduleFailure(t *testing.T) {
	agent := &fakeAI{
		results: map[ai.Action]ai.Result{ai.AnalyzePhoto: {Happiness: intp(80)}},
		errs:    map[ai.Action]error{ai.GenerateSchedule: errors.New("vertex unavailable")},
	}
	svc, store, _ := newService(t, agent)
	p := seedPlant(t, store, plants.Plant{Happiness: 50})

	resp, err := svc.Handle(t.Context(), "user-1", Request{
		PlantID: p.ID,
		Action:  ai.AnalyzePhoto,
		Data:    RequestData{ImageURL: "https://cdn.example/fern.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "updated", resp.Status)
	assert.Equal(t, 80, *resp.Happiness)
	assert.Equal(t, care.Healthy, resp.HealthStatus)
	assert.Equal(t, []ai.Action{ai.AnalyzePhoto, ai.GenerateSchedule}, agent.calls)

	got, _ := store.GetPlant(t.Context(), p.ID)
	assert.Equal(t, []string{"https://cdn.example/fern.jpg"}, got.PhotoURLs)
	assert.Equal(t, 80, got.Happiness)

	tasks, _ := store.ListTasks(t.Context(), "user-1", p.ID)
	assert.Empty(t, tasks)
}

func TestAnalyzeLaterPhotoDoesNotSchedule(t *testing.T) {
	agent := &fakeAI{}
	svc, store, _ := newService(t, agent)
	p := seedPlant(t, store, plants.Plant{Happiness: 66, PhotoURLs: []string{"https://cdn.example/a.jpg"}})

	resp, err := svc.Handle(t.Context(), "user-1", Request{
		PlantID: p.ID,
		Action:  ai.AnalyzePhoto,
		Data:    RequestData{ImageURL: "https://cdn.example/b.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, 66, *resp.Happiness)
	assert.Equal(t, []ai.Action{ai.AnalyzePhoto}, agent.calls)

	got, _ := store.GetPlant(t.Context(), p.ID)
	assert.Len(t, got.PhotoURLs, 2)
}

func TestAnalyzePhotoUploadsDataURL(t *testing.T) {
	svc, store, _ := newService(t, &fakeAI{})
	svc.Photos = fakeUploader{}
	p := seedPlant(t, store, plants.Plant{PhotoURLs: []string{"x"}})

	_, err := svc.Handle(t.Context(), "user-1", Request{
		PlantID: p.ID,
		Action:  ai.AnalyzePhoto,
		Data:    RequestData{ImageURL: "data:image/jpeg;base64,/9j/4AAQ"},
	})
	require.NoError(t, err)

	got, _ := store.GetPlant(t.Context(), p.ID)
	assert.Equal(t, "https://photos.local/plantpal/plants/"+p.ID+"/p.jpg", got.PhotoURLs[1])
}

func TestAnalyzePhotoUploadFailureWritesNothing(t *testing.T) {
	svc, store, _ := newService(t, &fakeAI{})
	svc.Photos = fakeUploader{err: errors.New("bucket missing")}
	p := seedPlant(t, store, plants.Plant{})

	_, err := svc.Handle(t.Context(), "user-1", Request{
		PlantID: p.ID,
		Action:  ai.AnalyzePhoto,
		Data:    RequestData{ImageURL: "data:image/png;base64,iVBORw0"},
	})
	require.Error(t, err)
	assert.Zero(t, store.writes)
}

func TestWrongOwnerIsForbiddenWithoutWrites(t *testing.T) {
	for _, action := range []ai.Action{ai.GenerateSchedule, ai.UpdateStatus, ai.AnalyzePhoto} {
		t.Run(string(action), func(t *testing.T) {
			agent := &fakeAI{}
			svc, store, _ := newService(t, agent)
			p := seedPlant(t, store, plants.Plant{UserID: "owner", Happiness: 50})

			_, err := svc.Handle(t.Context(), "intruder", Request{
				PlantID: p.ID,
				Action:  action,
				Data:    RequestData{TaskType: "watering", ImageURL: "https://x/y.jpg"},
			})
			assert.ErrorIs(t, err, ErrForbidden)
			assert.Zero(t, store.writes)
			assert.Empty(t, agent.calls)
		})
	}
}

func TestHandleValidation(t *testing.T) {
	svc, _, _ := newService(t, &fakeAI{})

	_, err := svc.Handle(t.Context(), "user-1", Request{Action: ai.GenerateSchedule})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Handle(t.Context(), "user-1", Request{PlantID: "p"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Handle(t.Context(), "user-1", Request{PlantID: "p", Action: "water_now"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Handle(t.Context(), "user-1", Request{PlantID: "missing", Action: ai.GenerateSchedule})
	assert.ErrorIs(t, err, plants.ErrNotFound)
}

func TestCompleteTask(t *testing.T) {
	svc, store, sink := newService(t, &fakeAI{})
	p := seedPlant(t, store, plants.Plant{Happiness: 70})
	task, err := store.CreateTask(t.Context(), plants.Task{
		PlantID: p.ID, PlantName: p.Name, Type: care.Fertilizing,
		ScheduledDate: fixedNow.AddDate(0, 0, -1), UserID: "user-1",
	})
	require.NoError(t, err)

	done, resp, err := svc.CompleteTask(t.Context(), "user-1", task.ID)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.Equal(t, 73, *resp.Happiness)

	_, _, err = svc.CompleteTask(t.Context(), "user-1", task.ID)
	assert.ErrorIs(t, err, plants.ErrAlreadyCompleted)

	got, _ := store.GetPlant(t.Context(), p.ID)
	assert.Equal(t, 73, got.Happiness)

	var names []string
	for _, e := range sink.Events() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"status_updated", "task_completed"}, names)
}

func TestCompleteTaskStaysOpenWhenStatusUpdateFails(t *testing.T) {
	agent := &fakeAI{errs: map[ai.Action]error{ai.UpdateStatus: errors.New("500 upstream")}}
	svc, store, _ := newService(t, agent)
	p := seedPlant(t, store, plants.Plant{Happiness: 60})
	task, err := store.CreateTask(t.Context(), plants.Task{PlantID: p.ID, Type: care.Watering, UserID: "user-1"})
	require.NoError(t, err)

	_, _, err = svc.CompleteTask(t.Context(), "user-1", task.ID)
	require.Error(t, err)

	got, _ := store.GetTask(t.Context(), task.ID)
	assert.False(t, got.Completed)
	plant, _ := store.GetPlant(t.Context(), p.ID)
	assert.Equal(t, 60, plant.Happiness)

	agent.errs = nil
	done, resp, err := svc.CompleteTask(t.Context(), "user-1", task.ID)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.Equal(t, 61, *resp.Happiness)
}

func TestCompleteTaskOfOtherUser(t *testing.T) {
	svc, store, _ := newService(t, &fakeAI{})
	p := seedPlant(t, store, plants.Plant{UserID: "owner"})
	task, _ := store.CreateTask(t.Context(), plants.Task{PlantID: p.ID, Type: care.Watering, UserID: "owner"})

	_, _, err := svc.CompleteTask(t.Context(), "intruder", task.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, _ := store.GetTask(t.Context(), task.ID)
	assert.False(t, got.Completed)
}

func serveAgent(svc *Service, userID string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/vertex/plant-agent", bytes.NewReader(b))
	req.Header.Set("Idempotency-Key", "req-1")
	req = req.WithContext(auth.WithUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	PlantAgentHandler(svc).ServeHTTP(rec, req)
	return rec
}

func TestPlantAgentHandler(t *testing.T) {
	agent := &fakeAI{}
	svc, store, sink := newService(t, agent)
	p := seedPlant(t, store, plants.Plant{Happiness: 90})

	rec := serveAgent(svc, "user-1", map[string]any{
		"plantId": p.ID,
		"action":  "update_status",
		"data":    map[string]any{"taskType": "watering", "completed": true},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, p.ID, body["plantId"])
	assert.Equal(t, "updated", body["status"])
	assert.EqualValues(t, 91, body["happiness"])
	assert.Equal(t, "healthy", body["healthStatus"])
	assert.NotContains(t, body, "watering_interval_days")

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "req-1:status_updated", events[0].SourceEventKey)
}

func TestPlantAgentHandlerErrors(t *testing.T) {
	agent := &fakeAI{errs: map[ai.Action]error{ai.GenerateSchedule: ai.ErrNotConfigured}}
	svc, store, _ := newService(t, agent)
	p := seedPlant(t, store, plants.Plant{UserID: "owner"})

	cases := []struct {
		name string
		user string
		body any
		code int
	}{
		{"missing plant id", "owner", map[string]any{"action": "generate_schedule"}, http.StatusBadRequest},
		{"unknown action", "owner", map[string]any{"plantId": p.ID, "action": "prune"}, http.StatusBadRequest},
		{"missing image", "owner", map[string]any{"plantId": p.ID, "action": "analyze_photo"}, http.StatusBadRequest},
		{"not found", "owner", map[string]any{"plantId": "nope", "action": "generate_schedule"}, http.StatusNotFound},
		{"wrong owner", "other", map[string]any{"plantId": p.ID, "action": "generate_schedule"}, http.StatusForbidden},
		{"ai not configured", "owner", map[string]any{"plantId": p.ID, "action": "generate_schedule"}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveAgent(svc, tc.user, tc.body)
			assert.Equal(t, tc.code, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/vertex/plant-agent", bytes.NewReader([]byte("{")))
		req = req.WithContext(auth.WithUserID(req.Context(), "owner"))
		rec := httptest.NewRecorder()
		PlantAgentHandler(svc).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("500 carries message", func(t *testing.T) {
		rec := serveAgent(svc, "owner", map[string]any{"plantId": p.ID, "action": "generate_schedule"})
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Internal server error", body["error"])
		assert.Contains(t, body["message"], "no backend configured")
	})
}
