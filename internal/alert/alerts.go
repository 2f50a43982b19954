package alert

import (
	"fmt"
	"strconv"
	"time"
)

// DeliveryFailure describes a dead-lettered delivery message.
type DeliveryFailure struct {
	MessageID  string
	DLQID      string
	Status     int
	Retried    int
	MaxRetries int
	URL        string
	Response   string
	Request    string
}

// DeliveryFailed builds the alert for a message that exhausted its retries.
func DeliveryFailed(f DeliveryFailure, at time.Time) Alert {
	return Alert{
		Subject: fmt.Sprintf("[outreach] delivery failed after %d retries (%d)", f.Retried, f.Status),
		Summary: "Scheduled e-mail delivery failed",
		Fields: map[string]string{
			"message_id":  f.MessageID,
			"dlq_id":      f.DLQID,
			"status":      strconv.Itoa(f.Status),
			"retries":     fmt.Sprintf("%d/%d", f.Retried, f.MaxRetries),
			"destination": f.URL,
			"response":    f.Response,
			"request":     f.Request,
		},
		Time: at,
	}
}

// SchedulingFailed builds the alert for a daily run that aborted.
func SchedulingFailed(runID string, err error, at time.Time) Alert {
	return Alert{
		Subject: "[outreach] daily scheduling failed",
		Summary: "Daily scheduling run aborted",
		Fields: map[string]string{
			"run_id": runID,
			"error":  err.Error(),
		},
		Time: at,
	}
}

// SubmissionsFailed builds the alert for a run where some submissions to
// the dispatch queue failed.
func SubmissionsFailed(runID string, failed, total int, at time.Time) Alert {
	return Alert{
		Subject: fmt.Sprintf("[outreach] %d of %d submissions failed", failed, total),
		Summary: "Daily scheduling run finished with failed submissions",
		Fields: map[string]string{
			"run_id": runID,
			"failed": strconv.Itoa(failed),
			"total":  strconv.Itoa(total),
		},
		Time: at,
	}
}

// JobFailed builds the alert for an auxiliary scheduled job that failed.
func JobFailed(job string, err error, at time.Time) Alert {
	return Alert{
		Subject: fmt.Sprintf("[outreach] %s failed", job),
		Summary: "Scheduled job failed",
		Fields: map[string]string{
			"job":   job,
			"error": err.Error(),
		},
		Time: at,
	}
}
