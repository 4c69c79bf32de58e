package booking

// Field names a slot of the booking record. The value doubles as the JSON key.
type Field string

const (
	FieldOrigin      Field = "origin"
	FieldDestination Field = "destination"
	FieldStartDate   Field = "start_date"
	FieldEndDate     Field = "end_date"
	FieldBudget      Field = "budget"
)

// Fields lists every field in the order the flow collects them.
var Fields = []Field{FieldOrigin, FieldDestination, FieldStartDate, FieldEndDate, FieldBudget}

// Details is the record a booking flow fills in. An empty string means the
// field has not been collected yet. StartDate and EndDate hold timex expressions.
type Details struct {
	Origin      string `json:"origin,omitempty"      yaml:"origin"`
	Destination string `json:"destination,omitempty" yaml:"destination"`
	StartDate   string `json:"start_date,omitempty"  yaml:"start_date"`
	EndDate     string `json:"end_date,omitempty"    yaml:"end_date"`
	Budget      string `json:"budget,omitempty"      yaml:"budget"`
}

// Get returns the value stored for f, or "" for an unknown field.
func (d *Details) Get(f Field) string {
	switch f {
	case FieldOrigin:
		return d.Origin
	case FieldDestination:
		return d.Destination
	case FieldStartDate:
		return d.StartDate
	case FieldEndDate:
		return d.EndDate
	case FieldBudget:
		return d.Budget
	}
	return ""
}

// Set stores v into f. Unknown fields are ignored.
func (d *Details) Set(f Field, v string) {
	switch f {
	case FieldOrigin:
		d.Origin = v
	case FieldDestination:
		d.Destination = v
	case FieldStartDate:
		d.StartDate = v
	case FieldEndDate:
		d.EndDate = v
	case FieldBudget:
		d.Budget = v
	}
}

// Missing returns the unset fields in collection order.
func (d *Details) Missing() []Field {
	var missing []Field
	for _, f := range Fields {
		if d.Get(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Dimensions returns every field keyed by its JSON name, unset ones included.
func (d *Details) Dimensions() map[string]string {
	dims := make(map[string]string, len(Fields))
	for _, f := range Fields {
		dims[string(f)] = d.Get(f)
	}
	return dims
}

// Clone returns a copy of the record.
func (d Details) Clone() Details {
	return d
}
