package priority

import "testing"

func intp(v int) *int { return &v }

func TestColor(t *testing.T) {
	cases := []struct {
		name    string
		numeric *int
		partial bool
		ready   bool
		want    string
	}{
		{"ready overrides numeric", intp(1), false, true, "green"},
		{"ready overrides partial", nil, true, true, "green"},
		{"numeric 1 is red", intp(1), false, false, "red"},
		{"numeric 2 is orange", intp(2), false, false, "orange"},
		{"numeric 3 is yellow", intp(3), false, false, "yellow"},
		{"partial is blue", nil, true, false, "blue"},
		{"no signal is green", nil, false, false, "green"},
		{"out-of-range numeric falls through to green", intp(7), false, false, "green"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Color(tc.numeric, tc.partial, tc.ready)
			if got != tc.want {
				t.Fatalf("Color(%v,%v,%v)=%s want %s", tc.numeric, tc.partial, tc.ready, got, tc.want)
			}
		})
	}
}

func TestMergeNonDowngrade(t *testing.T) {
	cases := []struct {
		name                             string
		existingNumeric, incomingNumeric *int
		existingPartial, incomingPartial bool
		wantNumeric                      *int
		wantPartial                      bool
	}{
		{"adopt numeric when none exists", nil, intp(2), false, false, intp(2), false},
		{"keep larger existing numeric", intp(3), intp(2), false, false, intp(3), false},
		{"larger incoming wins", intp(1), intp(3), false, false, intp(3), false},
		{"equal incoming does not replace", intp(2), intp(2), false, false, intp(2), false},
		{"partial sets when no numeric", nil, nil, false, true, nil, true},
		{"partial ignored when numeric exists", intp(2), nil, false, true, intp(2), false},
		{"incoming numeric clears existing partial", nil, intp(1), true, false, intp(1), false},
		{"no signal passes through", intp(3), nil, false, false, intp(3), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotNumeric, gotPartial := MergeNonDowngrade(tc.existingNumeric, tc.existingPartial, tc.incomingNumeric, tc.incomingPartial)
			if !intpEqual(gotNumeric, tc.wantNumeric) || gotPartial != tc.wantPartial {
				t.Fatalf("got (%v,%v) want (%v,%v)", fmtp(gotNumeric), gotPartial, fmtp(tc.wantNumeric), tc.wantPartial)
			}
		})
	}
}

func TestMergeNonDowngradeMonotonic(t *testing.T) {
	// The merged numeric never drops below the existing one.
	for existing := 1; existing <= 3; existing++ {
		for incoming := 1; incoming <= 3; incoming++ {
			got, _ := MergeNonDowngrade(intp(existing), false, intp(incoming), false)
			if got == nil || *got < existing {
				t.Fatalf("merge(%d,%d) downgraded to %v", existing, incoming, fmtp(got))
			}
		}
	}
}

func TestSuggestEscalation(t *testing.T) {
	cases := []struct {
		name            string
		within72h       bool
		weekly, avg     float64
		criticalMissing bool
		want            *int
	}{
		{"no signals", false, 1, 2, false, nil},
		{"above-average week only", false, 3, 2, false, intp(1)},
		{"case soon only", true, 1, 2, false, intp(1)},
		{"critical missing only", false, 1, 2, true, intp(1)},
		{"two signals", true, 3, 2, false, intp(2)},
		{"all three", true, 3, 2, true, intp(3)},
		{"weekly equal to average scores nothing", false, 2, 2, false, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SuggestEscalation(tc.within72h, tc.weekly, tc.avg, tc.criticalMissing)
			if !intpEqual(got, tc.want) {
				t.Fatalf("got %v want %v", fmtp(got), fmtp(tc.want))
			}
		})
	}
}

func intpEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func fmtp(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
