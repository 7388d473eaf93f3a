package intake

import (
	"strings"
	"testing"
)

func TestIsValidArea(t *testing.T) {
	t.Parallel()

	for _, area := range LegalAreas {
		if !IsValidArea(area) {
			t.Errorf("IsValidArea(%q) = false, want true", area)
		}
	}
	for _, v := range []string{"", "maritime_law", "Employment Dispute"} {
		if IsValidArea(v) {
			t.Errorf("IsValidArea(%q) = true, want false", v)
		}
	}
}

func TestClassify_MappedArea(t *testing.T) {
	t.Parallel()

	c, err := Classify(AreaEmploymentDispute)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if c.Status != "classified" {
		t.Errorf("Status = %q, want classified", c.Status)
	}
	if c.AreaDisplayName != "Employment Dispute" {
		t.Errorf("AreaDisplayName = %q, want %q", c.AreaDisplayName, "Employment Dispute")
	}
	if len(c.KeyQuestions) != 5 {
		t.Errorf("expected 5 key questions, got %d", len(c.KeyQuestions))
	}
	if !strings.Contains(c.Guidance, "Focus on gathering information about: Employment contracts") {
		t.Errorf("guidance missing focus areas: %q", c.Guidance)
	}
	if !strings.Contains(c.Guidance, "urgency indicators like: Tribunal deadlines") {
		t.Errorf("guidance missing urgency indicators: %q", c.Guidance)
	}
}

func TestClassify_UnmappedAreaUsesDefaultGuidance(t *testing.T) {
	t.Parallel()

	c, err := Classify(AreaFamilyLaw)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if c.AreaDisplayName != "Family Law" {
		t.Errorf("AreaDisplayName = %q, want %q", c.AreaDisplayName, "Family Law")
	}
	if c.FocusAreas[0] != defaultGuidance.FocusAreas[0] {
		t.Errorf("FocusAreas[0] = %q, want default %q", c.FocusAreas[0], defaultGuidance.FocusAreas[0])
	}
}

func TestClassify_UnknownArea(t *testing.T) {
	t.Parallel()

	if _, err := Classify("space_law"); err == nil {
		t.Fatal("expected error for unknown area")
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{AreaMergersAndAcquisitions, "Mergers And Acquisitions"},
		{AreaPrivateEquityAndVentureCapital, "Private Equity And Venture Capital"},
		{AreaImmigration, "Immigration"},
	}
	for _, tc := range cases {
		if got := displayName(tc.in); got != tc.want {
			t.Errorf("displayName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
