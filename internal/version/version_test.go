package version

import "testing"

func TestString(t *testing.T) {
	origVersion, origSHA, origTime := Version, GitSHA, BuildTime
	defer func() { Version, GitSHA, BuildTime = origVersion, origSHA, origTime }()

	Version, GitSHA, BuildTime = "1.2.0", "abc1234", "2024-05-17T09:30:00Z"
	want := "mosaic 1.2.0 (git abc1234, built 2024-05-17T09:30:00Z)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
