package dialog

import "github.com/voicetyped/flightbot/pkg/booking"

// StepName identifies a state of the booking waterfall.
type StepName string

const (
	StepOrigin      StepName = "origin"
	StepDestination StepName = "destination"
	StepStartDate   StepName = "start_date"
	StepEndDate     StepName = "end_date"
	StepBudget      StepName = "budget"
	StepConfirm     StepName = "confirm"
	StepFinal       StepName = "final"
)

// PromptKind tells the host how to render a prompt and what reply to expect.
type PromptKind string

const (
	PromptText    PromptKind = "text"
	PromptDate    PromptKind = "date"
	PromptConfirm PromptKind = "confirm"
)

// Outcome is how a finished flow ended.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeCancelled Outcome = "cancelled"
)

// Prompt is a request for user input.
type Prompt struct {
	Kind    PromptKind `json:"kind"`
	Text    string     `json:"text"`
	Choices []string   `json:"choices,omitempty"`
}

// Turn is what the controller hands back to its host after each step: either
// a prompt to show (the flow is suspended) or a terminal outcome.
type Turn struct {
	Step     StepName        `json:"step"`
	Messages []string        `json:"messages,omitempty"`
	Prompt   *Prompt         `json:"prompt,omitempty"`
	Done     bool            `json:"done"`
	Outcome  Outcome         `json:"outcome,omitempty"`
	Details  booking.Details `json:"details"`

	// Result is set only for confirmed bookings.
	Result *booking.Details `json:"result,omitempty"`
}

// ResolverState tracks an active date-resolution sub-flow.
type ResolverState struct {
	Field    booking.Field `json:"field"`
	Seed     string        `json:"seed,omitempty"`
	Attempts int           `json:"attempts,omitempty"`
}

// FlowState is the resumable state of one booking flow. It is a plain value
// so hosts can persist it between turns.
type FlowState struct {
	Index          int             `json:"index"`
	Details        booking.Details `json:"details"`
	Resolver       *ResolverState  `json:"resolver,omitempty"`
	ConfirmRetries int             `json:"confirm_retries,omitempty"`
	Turns          int             `json:"turns"`
	Done           bool            `json:"done"`
	Outcome        Outcome         `json:"outcome,omitempty"`
}

// Step returns the name of the step the flow is waiting in.
func (s *FlowState) Step() StepName {
	if s.Index < 0 || s.Index >= len(bookingSteps) {
		return StepFinal
	}
	return bookingSteps[s.Index].name
}

// ConfirmStyle selects how the confirmation question is asked.
type ConfirmStyle string

const (
	ConfirmYesNo  ConfirmStyle = "yes_no"
	ConfirmChoice ConfirmStyle = "choice"
)

// Catalog is a YAML-mappable set of prompt texts. Every text is a Go template
// evaluated over the booking details.
type Catalog struct {
	Name        string        `yaml:"name"        json:"name"`
	Version     string        `yaml:"version"     json:"version"`
	Origin      TextPrompt    `yaml:"origin"      json:"origin"`
	Destination TextPrompt    `yaml:"destination" json:"destination"`
	Budget      TextPrompt    `yaml:"budget"      json:"budget"`
	StartDate   DatePrompt    `yaml:"start_date"  json:"start_date"`
	EndDate     DatePrompt    `yaml:"end_date"    json:"end_date"`
	Confirm     ConfirmPrompt `yaml:"confirm"     json:"confirm"`
	Help        string        `yaml:"help"        json:"help"`
	Cancelled   string        `yaml:"cancelled"   json:"cancelled"`
	Completed   string        `yaml:"completed"   json:"completed"`
	Rejected    string        `yaml:"rejected"    json:"rejected"`
}

// TextPrompt asks for a free-text field.
type TextPrompt struct {
	Text    string `yaml:"text"    json:"text"`
	Example string `yaml:"example" json:"example,omitempty"`
}

// DatePrompt drives the date-resolution sub-flow.
type DatePrompt struct {
	Prompt   string `yaml:"prompt"   json:"prompt"`
	Reprompt string `yaml:"reprompt" json:"reprompt"`
}

// ConfirmPrompt configures the final yes/no question.
type ConfirmPrompt struct {
	Style       ConfirmStyle `yaml:"style"        json:"style"`
	Summary     string       `yaml:"summary"      json:"summary"`
	Retry       string       `yaml:"retry"        json:"retry"`
	Yes         string       `yaml:"yes"          json:"yes"`
	No          string       `yaml:"no"           json:"no"`
	MaxAttempts int          `yaml:"max_attempts" json:"max_attempts"`
}
