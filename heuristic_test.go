package tandem

import "testing"

func TestStopBiasedPolicy(t *testing.T) {
	cases := []struct {
		analyst  string
		executor string
		want     bool
	}{
		{"Task completed successfully.", "Nothing left.", false},
		{"We should continue with the next step.", "Working on it.", true},
		{"The sky is blue.", "Indeed.", false},
		// A completion phrase wins even when continue phrases are present.
		{"Next step: verify output.", "All files created, task completed.", false},
		{"", "I will create the remaining files.", true},
		{"Quota limit reached; backed off.", "", false},
	}
	for _, tc := range cases {
		if got := StopBiased.ShouldContinue(tc.analyst, tc.executor); got != tc.want {
			t.Fatalf("StopBiased(%q, %q) = %v, want %v", tc.analyst, tc.executor, got, tc.want)
		}
	}
}

func TestStopBiasedIsPure(t *testing.T) {
	a, e := "next step is unclear", "maybe done"
	first := StopBiased.ShouldContinue(a, e)
	for i := 0; i < 5; i++ {
		if StopBiased.ShouldContinue(a, e) != first {
			t.Fatalf("policy decision changed across identical inputs")
		}
	}
}

func TestContinueBiasedPolicy(t *testing.T) {
	cases := []struct {
		analyst  string
		executor string
		want     bool
	}{
		{"Ambiguous progress.", "Hard to say.", true},
		{"The task is completely finished.", "", false},
		{"", "I am waiting for user input before going on.", false},
		{"Better to ask the user which format they want.", "", false},
	}
	for _, tc := range cases {
		if got := ContinueBiased.ShouldContinue(tc.analyst, tc.executor); got != tc.want {
			t.Fatalf("ContinueBiased(%q, %q) = %v, want %v", tc.analyst, tc.executor, got, tc.want)
		}
	}
}

func TestPolicyByName(t *testing.T) {
	if PolicyByName("continue").ShouldContinue("anything", "at all") != true {
		t.Fatalf("continue bias not selected")
	}
	if PolicyByName("stop").ShouldContinue("nothing actionable", "here") != false {
		t.Fatalf("stop bias not selected")
	}
	if PolicyByName("bogus").ShouldContinue("nothing actionable", "here") != false {
		t.Fatalf("unknown names should fall back to stop bias")
	}
}
