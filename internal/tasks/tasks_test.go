package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/geonotify/internal/background"
	"github.com/edgard/geonotify/internal/config"
	"github.com/edgard/geonotify/internal/database"
	"github.com/edgard/geonotify/internal/geo"
	"github.com/edgard/geonotify/internal/reporter"
)

type maintenanceStore struct {
	database.Store
	runs int
	err  error
}

func (m *maintenanceStore) RunSQLMaintenance(context.Context) error {
	m.runs++
	return m.err
}

type staticStatus reporter.Status

func (s staticStatus) Status() reporter.Status { return reporter.Status(s) }

type recordingCron struct {
	scheduled map[string]string
	failFor   string
}

func (r *recordingCron) ScheduleCron(name, spec string, _ background.TaskFunc) error {
	if name == r.failFor {
		return errors.New("bad schedule")
	}
	if r.scheduled == nil {
		r.scheduled = map[string]string{}
	}
	r.scheduled[name] = spec
	return nil
}

func testDeps(store database.Store) TaskDeps {
	return TaskDeps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:  store,
		Reporter: staticStatus{
			State:             reporter.Running,
			LastKnownLocation: &geo.Location{Latitude: 1, Longitude: 2},
		},
	}
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()

	store := &maintenanceStore{}
	tasks := RegisterAllTasks(testDeps(store))
	require.Contains(t, tasks, "sql_maintenance")

	require.NoError(t, tasks["sql_maintenance"](context.Background()))
	assert.Equal(t, 1, store.runs)

	store.err = errors.New("database is locked")
	assert.Error(t, tasks["sql_maintenance"](context.Background()))
}

func TestStatusReportTask(t *testing.T) {
	t.Parallel()

	tasks := RegisterAllTasks(testDeps(&maintenanceStore{}))
	require.Contains(t, tasks, "status_report")
	assert.NoError(t, tasks["status_report"](context.Background()))
}

func TestScheduleConfigured(t *testing.T) {
	t.Parallel()

	deps := testDeps(&maintenanceStore{})
	registry := RegisterAllTasks(deps)
	cron := &recordingCron{failFor: "status_report"}

	n := ScheduleConfigured(cron, config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"sql_maintenance": {Enabled: true, Schedule: "0 0 3 * * *"},
		"status_report":   {Enabled: true, Schedule: "*/30 * * * * *"},
		"disabled":        {Enabled: false, Schedule: "* * * * * *"},
		"unknown":         {Enabled: true, Schedule: "* * * * * *"},
	}}, registry, deps)

	assert.Equal(t, 1, n)
	assert.Equal(t, map[string]string{"sql_maintenance": "0 0 3 * * *"}, cron.scheduled)
}
