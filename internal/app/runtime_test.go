package app

import "testing"

func TestInTestMode(t *testing.T) {
	for value, want := range map[string]bool{"": false, "0": false, "1": true, "true": true, "yes": false} {
		t.Setenv(TestModeEnv, value)
		if got := InTestMode(); got != want {
			t.Fatalf("%s=%q: got %v want %v", TestModeEnv, value, got, want)
		}
	}
	t.Setenv(TestModeEnv, "1")
	if !SkipStartup("storehq") {
		t.Fatal("SkipStartup must honour test mode")
	}
}
