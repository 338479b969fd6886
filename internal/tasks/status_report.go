package tasks

import "context"

// newStatusReportTask logs a one-line summary of the reporting scheduler.
func newStatusReportTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "status_report")

	return func(ctx context.Context) error {
		st := deps.Reporter.Status()
		attrs := []any{
			"state", st.State,
			"app_state", st.AppState,
			"task_registered", st.TaskRegistered,
			"pending_registration", st.PendingRegistration,
			"requests_in_window", st.RequestsInWindow,
		}
		if st.LastKnownLocation != nil {
			attrs = append(attrs, "last_known_location", st.LastKnownLocation.String())
		}
		if st.LastRequestAt != nil {
			attrs = append(attrs, "last_request_at", *st.LastRequestAt)
		}
		log.InfoContext(ctx, "Location reporting status", attrs...)
		return nil
	}
}
