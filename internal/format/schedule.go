package format

import (
	"math"
	"strconv"
	"time"

	"dartdash/internal/row"
)

// AnnotationKind says which branch of the schedule column a row took.
type AnnotationKind int

const (
	AnnotationPlaceholder AnnotationKind = iota
	AnnotationDaemonOnline
	AnnotationDaemonOffline
	AnnotationInvalidSchedule
	AnnotationCountdown
)

func (k AnnotationKind) String() string {
	switch k {
	case AnnotationDaemonOnline:
		return "daemon-online"
	case AnnotationDaemonOffline:
		return "daemon-offline"
	case AnnotationInvalidSchedule:
		return "invalid-schedule"
	case AnnotationCountdown:
		return "countdown"
	default:
		return "placeholder"
	}
}

// Annotation is the rendered schedule column.
type Annotation struct {
	Kind     AnnotationKind
	Schedule string
	Text     string
	Tier     Tier
}

// Line is the single line form of the annotation.
func (a Annotation) Line() string {
	switch a.Kind {
	case AnnotationInvalidSchedule:
		return a.Schedule + " " + a.Text
	case AnnotationCountdown:
		return a.Schedule + " (" + a.Text + ")"
	default:
		return a.Text
	}
}

// Bucket thresholds in seconds. Comparisons are strict.
const (
	secondsPerDay    = 86400
	secondsPerHour   = 3600
	secondsPerMinute = 60
)

// Schedule annotates the schedule column of an active or assigned row.
// Only active rows report the daemon state when no schedule is set.
func Schedule(r row.Row, now time.Time) Annotation {
	if r.Schedule == "" {
		if r.Daemon && r.Context == row.Active {
			if r.Status == statusRunning {
				return Annotation{Kind: AnnotationDaemonOnline, Text: "daemon online", Tier: TierNominal}
			}
			return Annotation{Kind: AnnotationDaemonOffline, Text: "daemon is not online", Tier: TierCritical}
		}
		return Annotation{Kind: AnnotationPlaceholder, Text: Placeholder, Tier: TierEmpty}
	}
	if r.StartsAt.IsZero() {
		return Annotation{
			Kind:     AnnotationInvalidSchedule,
			Schedule: r.Schedule,
			Text:     "invalid schedule " + DangerMarker,
			Tier:     TierCritical,
		}
	}
	delay := r.StartsAt.Unix() - now.Unix()
	return Annotation{
		Kind:     AnnotationCountdown,
		Schedule: r.Schedule,
		Text:     "starts in " + Countdown(delay),
		Tier:     TierEmpty,
	}
}

// Countdown renders a delay in seconds using the coarsest bucket it
// exceeds. Negative delays fall through to the seconds branch.
func Countdown(delay int64) string {
	switch {
	case delay > secondsPerDay:
		return fixed(float64(delay)/secondsPerDay, 1) + " days"
	case delay > secondsPerHour:
		return fixed(float64(delay)/secondsPerHour, 1) + " hours"
	case delay > secondsPerMinute:
		return fixed(float64(delay)/secondsPerMinute, 0) + " minutes"
	default:
		return strconv.FormatInt(delay, 10) + " seconds"
	}
}

// fixed rounds half away from zero before formatting, so 2.5 minutes
// reads "3" rather than the banker's "2".
func fixed(value float64, decimals int) string {
	scale := math.Pow(10, float64(decimals))
	return strconv.FormatFloat(math.Round(value*scale)/scale, 'f', decimals, 64)
}
