package event

import "ulogscraper-go/core/state"

// StepReached is published each time the navigator reaches a page.
type StepReached struct {
	baseSessionEvent
	Target string
	Step   state.NavStep
	URL    string
}

func NewStepReached(sessionID, target string, step state.NavStep, url string) *StepReached {
	return &StepReached{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Target:           target,
		Step:             step,
		URL:              url,
	}
}

func (e *StepReached) EventName() string {
	return "StepReached"
}

// NavigationStopped is published when a traversal ends before the final step.
type NavigationStopped struct {
	baseSessionEvent
	Target string
	Step   state.NavStep
	Reason string
}

func NewNavigationStopped(sessionID, target string, step state.NavStep, reason string) *NavigationStopped {
	return &NavigationStopped{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Target:           target,
		Step:             step,
		Reason:           reason,
	}
}

func (e *NavigationStopped) EventName() string {
	return "NavigationStopped"
}

// VehicleStarted is published before a vehicle's navigation cycle begins.
type VehicleStarted struct {
	baseSessionEvent
	Index     int
	Total     int
	Name      string
	StartDate string
	EndDate   string
}

func NewVehicleStarted(sessionID string, index, total int, name, startDate, endDate string) *VehicleStarted {
	return &VehicleStarted{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Index:            index,
		Total:            total,
		Name:             name,
		StartDate:        startDate,
		EndDate:          endDate,
	}
}

func (e *VehicleStarted) EventName() string {
	return "VehicleStarted"
}

// VehicleFinished is published after a vehicle's navigation cycle, whatever its outcome.
type VehicleFinished struct {
	baseSessionEvent
	Name      string
	Completed bool
	StoppedAt state.NavStep
	Error     error
}

func NewVehicleFinished(sessionID, name string, completed bool, stoppedAt state.NavStep, err error) *VehicleFinished {
	return &VehicleFinished{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Name:             name,
		Completed:        completed,
		StoppedAt:        stoppedAt,
		Error:            err,
	}
}

func (e *VehicleFinished) EventName() string {
	return "VehicleFinished"
}

// LogSaved is published for every log file written to disk.
type LogSaved struct {
	baseSessionEvent
	Filename  string
	Path      string
	URL       string
	SizeBytes int64
}

func NewLogSaved(sessionID, filename, path, url string, size int64) *LogSaved {
	return &LogSaved{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Filename:         filename,
		Path:             path,
		URL:              url,
		SizeBytes:        size,
	}
}

func (e *LogSaved) EventName() string {
	return "LogSaved"
}
