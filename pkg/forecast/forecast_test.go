package forecast

import "testing"

func TestIsServiceHourSimpleWindow(t *testing.T) {
	s := OpenHoursSpec{OpenHour: 12, CloseHour: 23}
	if s.IsServiceHour(11) {
		t.Fatal("11 should be before opening")
	}
	if !s.IsServiceHour(12) {
		t.Fatal("12 should be open")
	}
	if !s.IsServiceHour(22) {
		t.Fatal("22 should be open")
	}
	if s.IsServiceHour(23) {
		t.Fatal("23 should be closed")
	}
}

func TestIsServiceHourCrossesMidnight(t *testing.T) {
	s := OpenHoursSpec{OpenHour: 18, CloseHour: 2}
	if !s.IsServiceHour(23) {
		t.Fatal("23 should be open in an 18:00-02:00 window")
	}
	if !s.IsServiceHour(1) {
		t.Fatal("1am should be open in an 18:00-02:00 window")
	}
	if s.IsServiceHour(10) {
		t.Fatal("10am should be closed")
	}
}

func TestParseOpenHoursSpec(t *testing.T) {
	s, err := ParseOpenHoursSpec("12:00", "23:00", "10:00", "12:00", "Europe/Madrid")
	if err != nil {
		t.Fatal(err)
	}
	if s.OpenHour != 12 || s.CloseHour != 23 {
		t.Fatalf("unexpected parsed hours: %+v", s)
	}
}

func TestParseOpenHoursSpecInvalidTimezone(t *testing.T) {
	if _, err := ParseOpenHoursSpec("12:00", "23:00", "10:00", "12:00", "Not/A/Zone"); err == nil {
		t.Fatal("expected an error for an invalid timezone")
	}
}

func TestParseOpenHoursSpecInvalidTime(t *testing.T) {
	if _, err := ParseOpenHoursSpec("25:99", "23:00", "10:00", "12:00", "UTC"); err == nil {
		t.Fatal("expected an error for a malformed time string")
	}
}
