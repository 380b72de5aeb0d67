package state

import "fmt"

// NavStep is a page reached while walking from the vehicles list to the log download.
type NavStep int

const (
	StepNone NavStep = iota
	StepVehiclesList
	StepSearch
	StepVehicleDetails
	StepFlightList
	StepFlightDetails
	StepLogsTab
	StepAnalytics
	StepDownload
)

// StepFinal is the last step of a traversal.
const StepFinal = StepDownload

var stepNames = [...]string{
	StepNone:           "none",
	StepVehiclesList:   "vehicles_list",
	StepSearch:         "search",
	StepVehicleDetails: "vehicle_details",
	StepFlightList:     "flight_list",
	StepFlightDetails:  "flight_details",
	StepLogsTab:        "logs_tab",
	StepAnalytics:      "analytics",
	StepDownload:       "download",
}

func (s NavStep) String() string {
	if s >= 0 && int(s) < len(stepNames) {
		return stepNames[s]
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Next returns the step after s. The search step is optional, so callers
// may also advance from StepVehiclesList straight to StepVehicleDetails.
func (s NavStep) Next() NavStep {
	if s >= StepFinal {
		return StepFinal
	}
	return s + 1
}

// NavigationState tracks how far a traversal for one target got.
type NavigationState struct {
	// Target is the vehicle the traversal is for
	Target string

	// Step is the last step reached
	Step NavStep

	// URL is the page URL observed when Step was reached
	URL string

	// Trail lists every step reached, in order
	Trail []Visit

	// StopReason explains why the traversal ended before StepFinal
	StopReason string
}

// Visit records one reached step.
type Visit struct {
	Step NavStep
	URL  string
}

// NewNavigationState creates the state of a traversal that has not started.
func NewNavigationState(target string) *NavigationState {
	return &NavigationState{Target: target}
}

// CanAdvance reports whether step may follow the current step.
func (n *NavigationState) CanAdvance(step NavStep) bool {
	if n.Stopped() {
		return false
	}
	if step == n.Step.Next() && step <= StepFinal {
		return true
	}
	return n.Step == StepVehiclesList && step == StepVehicleDetails
}

// Advance records that step was reached at url.
func (n *NavigationState) Advance(step NavStep, url string) error {
	if !n.CanAdvance(step) {
		return fmt.Errorf("cannot advance navigation from %s to %s", n.Step, step)
	}
	n.Step = step
	n.URL = url
	n.Trail = append(n.Trail, Visit{Step: step, URL: url})
	return nil
}

// Stop ends the traversal early.
func (n *NavigationState) Stop(reason string) {
	if reason == "" {
		reason = "stopped"
	}
	n.StopReason = reason
}

// Stopped reports whether Stop was called.
func (n *NavigationState) Stopped() bool {
	return n.StopReason != ""
}

// Completed reports whether the final step was reached.
func (n *NavigationState) Completed() bool {
	return n.Step == StepFinal
}

// Path renders the trail as "vehicles_list -> search -> ...".
func (n *NavigationState) Path() string {
	s := ""
	for i, v := range n.Trail {
		if i > 0 {
			s += " -> "
		}
		s += v.Step.String()
	}
	return s
}
