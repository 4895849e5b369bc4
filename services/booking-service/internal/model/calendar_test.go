package model

import (
	"testing"
	"time"
)

func TestDefaultTimezoneIsValidIANAName(t *testing.T) {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		t.Fatalf("LoadLocation(%q): %v", DefaultTimezone, err)
	}
	if loc.String() != "America/New_York" {
		t.Fatalf("unexpected default zone %q", loc)
	}
}
