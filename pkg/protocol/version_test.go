package protocol

import "testing"

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("1.2.3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v.Major != 1 || v.Minor != 2 || v.Patch != 3 {
		t.Errorf("parsed = %+v", v)
	}
	if v.String() != "1.2.3" {
		t.Errorf("String() = %q", v.String())
	}
}

func TestParseVersionRejects(t *testing.T) {
	for _, s := range []string{"", "1.2", "1.2.3.4", "a.b.c", "1.-2.3", "v1.2.3"} {
		if _, err := ParseVersion(s); err == nil {
			t.Errorf("ParseVersion(%q) should fail", s)
		}
	}
}

func TestCheckCompatibility(t *testing.T) {
	ours := Version{0, 1, 0}
	cases := []struct {
		theirs string
		want   Compatibility
	}{
		{"0.1.0", CompatExact},
		{"0.1.9", CompatPatchDiffers},
		{"0.2.0", CompatMinorDiffers},
		{"1.1.0", CompatIncompatible},
		{"2.0.0", CompatIncompatible},
	}
	for _, tc := range cases {
		theirs, err := ParseVersion(tc.theirs)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.theirs, err)
		}
		if got := CheckCompatibility(ours, theirs); got != tc.want {
			t.Errorf("CheckCompatibility(%v, %s) = %v, want %v", ours, tc.theirs, got, tc.want)
		}
	}
}

func TestOwnVersionEnvOverride(t *testing.T) {
	t.Setenv("HEDDLE_PROTOCOL_VERSION", "9.9.9")
	if v := OwnVersion(); v != "9.9.9" {
		t.Errorf("OwnVersion() = %q, want 9.9.9", v)
	}
}
