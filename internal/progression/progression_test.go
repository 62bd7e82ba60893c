package progression

import "testing"

func TestApply(t *testing.T) {
	tests := []struct {
		name               string
		level, exp, delta  int
		wantLevel, wantExp int
	}{
		{"single level", 1, 0, 250, 2, 150},
		{"exact threshold", 1, 0, 100, 2, 0},
		{"just below threshold", 1, 80, 19, 1, 99},
		{"multi level", 1, 0, 600, 4, 0},
		{"cap overshoot", 9, 50, 1000, 10, 0},
		{"already capped", 10, 0, 5, 10, 0},
		{"negative floors", 3, 20, -50, 3, 0},
		{"negative within level", 3, 120, -5, 3, 115},
		{"small feedback bump", 1, 80, 5, 1, 85},
		{"level below range normalised", 0, 0, 0, 1, 0},
		{"level above range normalised", 12, 40, 0, 10, 0},
		{"inconsistent exp repaired", 1, 500, 0, 3, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLevel, gotExp := Apply(tt.level, tt.exp, tt.delta)
			if gotLevel != tt.wantLevel || gotExp != tt.wantExp {
				t.Errorf("Apply(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.level, tt.exp, tt.delta, gotLevel, gotExp, tt.wantLevel, tt.wantExp)
			}
		})
	}
}

func TestApplyLevelDown(t *testing.T) {
	tests := []struct {
		name               string
		level, exp, delta  int
		wantLevel, wantExp int
	}{
		{"drops one level", 2, 10, -50, 1, 60},
		{"drops two levels", 3, 0, -250, 1, 50},
		{"floors at level one", 1, 3, -5, 1, 0},
		{"from the cap", 10, 0, -5, 9, 895},
		{"positive delta unchanged", 1, 0, 250, 2, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLevel, gotExp := LevelDown.Apply(tt.level, tt.exp, tt.delta)
			if gotLevel != tt.wantLevel || gotExp != tt.wantExp {
				t.Errorf("LevelDown.Apply(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.level, tt.exp, tt.delta, gotLevel, gotExp, tt.wantLevel, tt.wantExp)
			}
		})
	}
}

func TestApplyZeroDeltaIsNoOp(t *testing.T) {
	for _, p := range []Policy{FloorAtZero, LevelDown} {
		for level := 1; level <= 9; level++ {
			for exp := 0; exp < Threshold(level); exp++ {
				gotLevel, gotExp := p.Apply(level, exp, 0)
				if gotLevel != level || gotExp != exp {
					t.Fatalf("%v.Apply(%d, %d, 0) = (%d, %d)", p, level, exp, gotLevel, gotExp)
				}
			}
		}
	}
}

func TestApplyResultInRange(t *testing.T) {
	for _, p := range []Policy{FloorAtZero, LevelDown} {
		for level := 1; level <= 10; level++ {
			for _, exp := range []int{0, 1, 50, 99, 450, 899} {
				for delta := -1200; delta <= 1200; delta += 37 {
					l, e := p.Apply(level, exp, delta)
					if l < 1 || l > 10 {
						t.Fatalf("%v.Apply(%d, %d, %d) level %d out of range", p, level, exp, delta, l)
					}
					if l == 10 && e != 0 {
						t.Fatalf("%v.Apply(%d, %d, %d) = (10, %d), want exp 0 at cap", p, level, exp, delta, e)
					}
					if l < 10 && (e < 0 || e >= Threshold(l)) {
						t.Fatalf("%v.Apply(%d, %d, %d) exp %d out of [0, %d)", p, level, exp, delta, e, Threshold(l))
					}
				}
			}
		}
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", FloorAtZero, false},
		{"floor", FloorAtZero, false},
		{"symmetric", LevelDown, false},
		{"other", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicy(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
