// Package schedule turns an allocation plan into timed dispatches.
//
// ScheduleDaily asks the allocation planner for today's assignments, spreads
// them over the business-hours window of the configured location with a
// bounded random offset, and submits them to a Dispatcher in sequential
// batches whose members are submitted concurrently. Submission failures are
// counted, not retried; retries after submission belong to the dispatcher.
package schedule
