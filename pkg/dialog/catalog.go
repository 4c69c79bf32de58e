package dialog

import (
	"fmt"
	"text/template"
)

// DefaultMaxConfirmAttempts bounds how often an unrecognised confirmation
// reply is asked again before it counts as a no.
const DefaultMaxConfirmAttempts = 3

const defaultSummary = "Please confirm :\n\n" +
	"Departure city : {{ .Origin }}\n\n" +
	"Destination : {{ .Destination }}\n\n" +
	"Starting on: {{ .StartDate }}, ending on: {{ .EndDate }}\n\n" +
	"Budget: {{ .Budget }}."

// DefaultCatalog returns the built-in English prompts.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Name:    "default",
		Version: "1",
		Origin: TextPrompt{
			Text:    "What is your departure city?",
			Example: "Paris",
		},
		Destination: TextPrompt{
			Text:    "What is your destination city?",
			Example: "Madrid",
		},
		Budget: TextPrompt{
			Text:    "Let's talk about money... What is your budget for travelling?",
			Example: "3.14€",
		},
		StartDate: DatePrompt{
			Prompt:   "When would you like to leave?",
			Reprompt: "I'm sorry, for best results, please enter your departure date including the month, day and year.",
		},
		EndDate: DatePrompt{
			Prompt:   "When would you like to come back?",
			Reprompt: "I'm sorry, for best results, please enter your return date including the month, day and year.",
		},
		Confirm: ConfirmPrompt{
			Style:       ConfirmYesNo,
			Summary:     defaultSummary,
			Retry:       "Please answer yes or no.",
			Yes:         "Yes",
			No:          "No",
			MaxAttempts: DefaultMaxConfirmAttempts,
		},
		Help:      "I can book a flight for you. Answer each question, type \"cancel\" to stop.",
		Cancelled: "Cancelling",
		Completed: "I have you booked to {{ .Destination }} from {{ .Origin }}, leaving {{ .StartDate }} and returning {{ .EndDate }}.",
		Rejected:  "OK, I won't book this trip.",
	}
}

// WithDefaults returns a copy of c where every empty entry is taken from the
// default catalog.
func (c *Catalog) WithDefaults() *Catalog {
	d := DefaultCatalog()
	out := *c

	fillText(&out.Origin, d.Origin)
	fillText(&out.Destination, d.Destination)
	fillText(&out.Budget, d.Budget)
	fillDate(&out.StartDate, d.StartDate)
	fillDate(&out.EndDate, d.EndDate)

	fill(&out.Confirm.Summary, d.Confirm.Summary)
	fill(&out.Confirm.Retry, d.Confirm.Retry)
	fill(&out.Confirm.Yes, d.Confirm.Yes)
	fill(&out.Confirm.No, d.Confirm.No)
	if out.Confirm.Style == "" {
		out.Confirm.Style = d.Confirm.Style
	}
	if out.Confirm.MaxAttempts == 0 {
		out.Confirm.MaxAttempts = d.Confirm.MaxAttempts
	}

	fill(&out.Help, d.Help)
	fill(&out.Cancelled, d.Cancelled)
	fill(&out.Completed, d.Completed)
	fill(&out.Rejected, d.Rejected)
	fill(&out.Name, d.Name)
	return &out
}

// Validate checks the catalog for consistency.
func (c *Catalog) Validate() error {
	switch c.Confirm.Style {
	case ConfirmYesNo, ConfirmChoice:
	default:
		return fmt.Errorf("catalog %q: unknown confirm style %q", c.Name, c.Confirm.Style)
	}
	if c.Confirm.MaxAttempts < 1 {
		return fmt.Errorf("catalog %q: confirm max_attempts must be positive", c.Name)
	}
	if c.Confirm.Yes == "" || c.Confirm.No == "" || c.Confirm.Yes == c.Confirm.No {
		return fmt.Errorf("catalog %q: confirm needs two distinct choice labels", c.Name)
	}

	texts := map[string]string{
		"origin.text":         c.Origin.Text,
		"destination.text":    c.Destination.Text,
		"budget.text":         c.Budget.Text,
		"start_date.prompt":   c.StartDate.Prompt,
		"start_date.reprompt": c.StartDate.Reprompt,
		"end_date.prompt":     c.EndDate.Prompt,
		"end_date.reprompt":   c.EndDate.Reprompt,
		"confirm.summary":     c.Confirm.Summary,
		"completed":           c.Completed,
	}
	for key, text := range texts {
		if text == "" {
			return fmt.Errorf("catalog %q: %s is required", c.Name, key)
		}
		if _, err := template.New(key).Parse(text); err != nil {
			return fmt.Errorf("catalog %q: %s: %w", c.Name, key, err)
		}
	}
	return nil
}

// StaticCatalog adapts a fixed catalog to the source func the waterfall reads from.
func StaticCatalog(c *Catalog) func() *Catalog {
	return func() *Catalog { return c }
}

func fill(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func fillText(dst *TextPrompt, def TextPrompt) {
	if dst.Text == "" {
		*dst = def
	}
}

func fillDate(dst *DatePrompt, def DatePrompt) {
	fill(&dst.Prompt, def.Prompt)
	fill(&dst.Reprompt, def.Reprompt)
}
