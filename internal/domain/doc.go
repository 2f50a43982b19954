// Package domain defines the core business types for the outreach engine.
//
// Types in this package are pure value objects with no behavior beyond
// small validation helpers, no database dependencies, and no HTTP concerns.
// They are the shared language between the allocation engine, the schedule
// planner, the delivery worker and the repositories.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Constants and enums belong here
package domain
