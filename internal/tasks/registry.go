package tasks

import (
	"sort"

	"github.com/edgard/geonotify/internal/background"
	"github.com/edgard/geonotify/internal/config"
)

// ScheduledTaskFunc is the signature of every scheduled task.
type ScheduledTaskFunc = background.TaskFunc

// CronScheduler registers cron jobs.
type CronScheduler interface {
	ScheduleCron(name, spec string, fn background.TaskFunc) error
}

// RegisterAllTasks returns every known task keyed by the name used in the
// scheduler.tasks configuration section.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		"sql_maintenance": newSQLMaintenanceTask(deps),
		"status_report":   newStatusReportTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}

// ScheduleConfigured schedules the enabled tasks of cfg. Unknown, disabled or
// unschedulable tasks are logged and skipped. It returns the number of
// scheduled tasks.
func ScheduleConfigured(s CronScheduler, cfg config.SchedulerConfig, registry map[string]ScheduledTaskFunc, deps TaskDeps) int {
	names := make([]string, 0, len(cfg.Tasks))
	for name := range cfg.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	scheduled := 0
	for _, name := range names {
		taskCfg := cfg.Tasks[name]
		if !taskCfg.Enabled {
			deps.Logger.Info("Skipping disabled task", "task_name", name)
			continue
		}
		fn, ok := registry[name]
		if !ok {
			deps.Logger.Warn("Scheduled task configured but not found in registry, skipping", "task_name", name)
			continue
		}
		if err := s.ScheduleCron(name, taskCfg.Schedule, fn); err != nil {
			deps.Logger.Error("Failed to schedule task", "task_name", name, "schedule", taskCfg.Schedule, "error", err)
			continue
		}
		scheduled++
	}
	return scheduled
}
