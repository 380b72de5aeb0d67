package state

import "testing"

func TestNavStep_String(t *testing.T) {
	if StepFlightList.String() != "flight_list" {
		t.Errorf("String() = %q", StepFlightList.String())
	}
	if NavStep(42).String() != "step(42)" {
		t.Errorf("String() = %q", NavStep(42).String())
	}
	if StepFinal.Next() != StepFinal {
		t.Error("Next() past the final step should stay final")
	}
}

func TestNavigationState_FullTraversal(t *testing.T) {
	nav := NewNavigationState("DV21")

	for step := StepVehiclesList; step <= StepFinal; step++ {
		if err := nav.Advance(step, "https://suite.auterion.com/"+step.String()); err != nil {
			t.Fatalf("Advance(%s) error = %v", step, err)
		}
	}

	if !nav.Completed() {
		t.Error("Completed() = false after final step")
	}
	if len(nav.Trail) != 8 {
		t.Errorf("Trail length = %d, want 8", len(nav.Trail))
	}
	if nav.URL != "https://suite.auterion.com/download" {
		t.Errorf("URL = %q", nav.URL)
	}
}

func TestNavigationState_SkipSearch(t *testing.T) {
	nav := NewNavigationState("DV21")
	_ = nav.Advance(StepVehiclesList, "u1")

	if err := nav.Advance(StepVehicleDetails, "u2"); err != nil {
		t.Fatalf("skipping search should be allowed: %v", err)
	}
	if got := nav.Path(); got != "vehicles_list -> vehicle_details" {
		t.Errorf("Path() = %q", got)
	}
}

func TestNavigationState_RejectsReordering(t *testing.T) {
	tests := []struct {
		name  string
		setup []NavStep
		next  NavStep
	}{
		{"start mid-way", nil, StepFlightList},
		{"repeat", []NavStep{StepVehiclesList}, StepVehiclesList},
		{"go back", []NavStep{StepVehiclesList, StepSearch, StepVehicleDetails}, StepSearch},
		{"skip non-optional", []NavStep{StepVehiclesList, StepSearch}, StepFlightList},
		{"past final", []NavStep{StepVehiclesList, StepVehicleDetails, StepFlightList, StepFlightDetails, StepLogsTab, StepAnalytics, StepDownload}, StepDownload + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := NewNavigationState("x")
			for _, s := range tt.setup {
				if err := nav.Advance(s, ""); err != nil {
					t.Fatalf("setup Advance(%s) error = %v", s, err)
				}
			}
			if err := nav.Advance(tt.next, ""); err == nil {
				t.Errorf("Advance(%s) from %s should fail", tt.next, nav.Step)
			}
		})
	}
}

func TestNavigationState_Stop(t *testing.T) {
	nav := NewNavigationState("DV21")
	_ = nav.Advance(StepVehiclesList, "")

	nav.Stop("vehicle link not found")
	if !nav.Stopped() || nav.Completed() {
		t.Errorf("state = %+v", nav)
	}
	if err := nav.Advance(StepSearch, ""); err == nil {
		t.Error("Advance after Stop should fail")
	}

	other := NewNavigationState("x")
	other.Stop("")
	if other.StopReason != "stopped" {
		t.Errorf("StopReason = %q", other.StopReason)
	}
}
