package attr

import "testing"

func TestMergePerKey(t *testing.T) {
	got := Merge(
		Attrs{"size": 25, "shape": "dot"},
		nil,
		Attrs{"size": 40},
		Attrs{"color": "red"},
	)

	want := Attrs{"size": 40, "shape": "dot", "color": "red"}
	if len(got) != len(want) {
		t.Fatalf("Merge() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Merge()[%q] = %v, want %v", k, got[k], v)
		}
	}
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	base := Attrs{"size": 25}
	out := Merge(base)
	out["size"] = 99

	if base["size"] != 25 {
		t.Errorf("base mutated: size = %v", base["size"])
	}
}

func TestClone(t *testing.T) {
	var nilAttrs Attrs
	c := nilAttrs.Clone()
	if c == nil {
		t.Fatal("Clone() of nil = nil, want empty map")
	}
	c["a"] = 1
	if len(nilAttrs) != 0 {
		t.Error("Clone() aliases receiver")
	}
}

func TestFloat(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{1, 1, true},
		{int64(10), 10, true},
		{uint8(3), 3, true},
		{float32(0.5), 0.5, true},
		{2.25, 2.25, true},
		{"2", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}

	for _, tt := range tests {
		got, ok := Float(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Float(%#v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestColorName(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
		ok   bool
	}{
		{"string", "red", "red", true},
		{"empty string", "", "", false},
		{"vis object", map[string]any{"color": "blue", "highlight": "cyan"}, "blue", true},
		{"attrs object", Attrs{"color": "green"}, "green", true},
		{"object without color", map[string]any{"highlight": "cyan"}, "", false},
		{"number", 3, "", false},
		{"nil", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ColorName(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ColorName() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseClosed(t *testing.T) {
	tests := []struct {
		in      any
		want    Closed
		wantErr bool
	}{
		{nil, ClosedNone, false},
		{false, ClosedNone, false},
		{true, ClosedRing, false},
		{"complete", ClosedComplete, false},
		{"yes", ClosedNone, true},
		{1, ClosedNone, true},
	}

	for _, tt := range tests {
		got, err := ParseClosed(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClosed(%#v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClosed(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
