package booking

import "testing"

func TestDetailsGetSet(t *testing.T) {
	var d Details
	for _, f := range Fields {
		d.Set(f, "v-"+string(f))
	}
	for _, f := range Fields {
		if got := d.Get(f); got != "v-"+string(f) {
			t.Errorf("Get(%q) = %q, want %q", f, got, "v-"+string(f))
		}
	}

	d.Set(Field("seat"), "12A")
	if got := d.Get(Field("seat")); got != "" {
		t.Errorf("unknown field = %q, want empty", got)
	}
}

func TestDetailsMissing(t *testing.T) {
	d := Details{Origin: "Paris", EndDate: "2024-05-08"}

	missing := d.Missing()
	want := []Field{FieldDestination, FieldStartDate, FieldBudget}
	if len(missing) != len(want) {
		t.Fatalf("missing = %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Errorf("missing[%d] = %q, want %q", i, missing[i], want[i])
		}
	}

	d.Destination, d.StartDate, d.Budget = "Madrid", "2024-05-01", "500"
	if got := d.Missing(); len(got) != 0 {
		t.Errorf("missing = %v, want none", got)
	}
}

func TestDetailsDimensions(t *testing.T) {
	d := Details{Origin: "Paris", Budget: "300"}
	dims := d.Dimensions()

	if len(dims) != len(Fields) {
		t.Fatalf("dimensions has %d keys, want %d", len(dims), len(Fields))
	}
	if dims["origin"] != "Paris" || dims["budget"] != "300" {
		t.Errorf("dimensions = %v", dims)
	}
	if v, ok := dims["destination"]; !ok || v != "" {
		t.Errorf("destination = %q (present %v), want empty and present", v, ok)
	}
}

func TestDetailsClone(t *testing.T) {
	d := Details{Origin: "Paris"}
	c := d.Clone()
	c.Origin = "Lyon"
	if d.Origin != "Paris" {
		t.Errorf("clone mutated original: %q", d.Origin)
	}
}
