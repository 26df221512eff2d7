package bp

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		systolic  int
		diastolic int
		want      Category
	}{
		{"crisis by systolic", 190, 70, Crisis},
		{"crisis by diastolic", 110, 121, Crisis},
		{"stage 2 by systolic", 145, 70, Stage2},
		{"stage 2 by diastolic", 120, 90, Stage2},
		{"stage 1 by systolic", 135, 75, Stage1},
		{"stage 1 by diastolic", 110, 80, Stage1},
		{"elevated", 122, 75, Elevated},
		{"normal", 110, 70, Normal},
		{"boundary 180/120 is stage 2", 180, 120, Stage2},
		{"boundary 140/89 is stage 2", 140, 89, Stage2},
		{"boundary 130/79 is stage 1", 130, 79, Stage1},
		{"boundary 120/79 is elevated", 120, 79, Elevated},
		{"boundary 119/79 is normal", 119, 79, Normal},
		{"negative passes through", -5, -5, Normal},
		{"absurd diastolic matches crisis", 50, 500, Crisis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.systolic, tt.diastolic); got != tt.want {
				t.Errorf("Classify(%d, %d) = %v, want %v", tt.systolic, tt.diastolic, got, tt.want)
			}
		})
	}
}

func TestClassifyIsMonotonicInSeverity(t *testing.T) {
	// Raising systolic never lowers the band.
	for s := 60; s <= 220; s += 5 {
		for d := 40; d <= 140; d += 5 {
			c := Classify(s, d)
			if up := Classify(s+5, d); up < c {
				t.Fatalf("Classify(%d,%d)=%v but Classify(%d,%d)=%v", s, d, c, s+5, d, up)
			}
		}
	}
}

func TestCategoryMetadata(t *testing.T) {
	want := map[Category][3]string{
		Normal:   {"Normal", "#4caf50", "<120/80"},
		Elevated: {"Elevated", "#fdd835", "120-129/<80"},
		Stage1:   {"Stage 1", "#ff9800", "130-139/80-89"},
		Stage2:   {"Stage 2", "#f44336", "140+/90+"},
		Crisis:   {"Crisis", "#b71c1c", ">180/>120"},
	}
	for c, w := range want {
		if c.Label() != w[0] || c.Color() != w[1] || c.Range() != w[2] {
			t.Errorf("%d: got (%s, %s, %s), want %v", c, c.Label(), c.Color(), c.Range(), w)
		}
	}
	if Stage1.QueryValue() != "stage 1" {
		t.Errorf("QueryValue = %q", Stage1.QueryValue())
	}
}

func TestParse(t *testing.T) {
	for _, in := range []string{"stage2", "Stage 2", " stage 2 "} {
		c, err := Parse(in)
		if err != nil || c != Stage2 {
			t.Errorf("Parse(%q) = %v, %v", in, c, err)
		}
	}
	if _, err := Parse("severe"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestPlausible(t *testing.T) {
	if !Plausible(120, 80) {
		t.Error("120/80 should be plausible")
	}
	for _, p := range [][2]int{{0, 80}, {-1, 70}, {80, 120}, {400, 90}} {
		if Plausible(p[0], p[1]) {
			t.Errorf("%v should not be plausible", p)
		}
	}
}
