package dialog

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voicetyped/flightbot/pkg/booking"
	"github.com/voicetyped/flightbot/pkg/timex"
)

// ErrFlowFinished is returned when a reply arrives for a flow that has ended.
var ErrFlowFinished = errors.New("dialog: flow already finished")

type stepKind int

const (
	kindText stepKind = iota
	kindDate
	kindConfirm
	kindFinal
)

// step is one row of the waterfall table. capture names the field that
// receives the previous step's result on entry; field is what this step
// collects.
type step struct {
	name    StepName
	capture booking.Field
	field   booking.Field
	kind    stepKind
}

var bookingSteps = []step{
	{name: StepOrigin, field: booking.FieldOrigin, kind: kindText},
	{name: StepDestination, capture: booking.FieldOrigin, field: booking.FieldDestination, kind: kindText},
	{name: StepStartDate, capture: booking.FieldDestination, field: booking.FieldStartDate, kind: kindDate},
	{name: StepEndDate, capture: booking.FieldStartDate, field: booking.FieldEndDate, kind: kindDate},
	{name: StepBudget, capture: booking.FieldEndDate, field: booking.FieldBudget, kind: kindText},
	{name: StepConfirm, capture: booking.FieldBudget, kind: kindConfirm},
	{name: StepFinal, kind: kindFinal},
}

// Results passed from the confirm step into the final step.
const (
	choiceYes = "yes"
	choiceNo  = "no"
)

// Steps returns the waterfall's step names in order.
func Steps() []StepName {
	names := make([]StepName, len(bookingSteps))
	for i, s := range bookingSteps {
		names[i] = s.name
	}
	return names
}

// Waterfall is the booking flow controller. It holds no per-conversation
// state and is safe for concurrent use; every call works on the FlowState it
// is handed.
type Waterfall struct {
	catalog    func() *Catalog
	recognizer *timex.Recognizer
}

// NewWaterfall creates a controller reading prompts from catalog on every
// turn, so a reloaded catalog takes effect immediately.
func NewWaterfall(catalog func() *Catalog, recognizer *timex.Recognizer) *Waterfall {
	if catalog == nil {
		catalog = StaticCatalog(DefaultCatalog())
	}
	if recognizer == nil {
		recognizer = timex.NewRecognizer()
	}
	return &Waterfall{catalog: catalog, recognizer: recognizer}
}

// Begin starts a flow for a partially filled record. Known fields are passed
// through without prompting.
func (w *Waterfall) Begin(details booking.Details) (*FlowState, Turn) {
	st := &FlowState{Details: details}
	return st, w.advance(st, 0, "", nil)
}

// Resume feeds one user reply into a suspended flow.
func (w *Waterfall) Resume(st *FlowState, reply string) (Turn, error) {
	if st.Done {
		return Turn{}, ErrFlowFinished
	}
	if st.Index < 0 || st.Index >= len(bookingSteps) {
		return Turn{}, fmt.Errorf("dialog: step index %d out of range", st.Index)
	}

	st.Turns++
	text := strings.TrimSpace(reply)
	cat := w.catalog()

	switch interruptionFor(text) {
	case interruptHelp:
		return w.suspend(st, []string{w.render(cat.Help, st)}), nil
	case interruptCancel:
		return w.Abort(st)
	}

	current := bookingSteps[st.Index]
	switch current.kind {
	case kindText:
		if text == "" {
			return w.suspend(st, nil), nil
		}
		return w.advance(st, st.Index+1, text, nil), nil

	case kindDate:
		resolved, ok := w.recognizer.Resolve(text)
		if !ok {
			if st.Resolver == nil {
				st.Resolver = &ResolverState{Field: current.field}
			}
			st.Resolver.Attempts++
			return w.suspend(st, nil), nil
		}
		st.Resolver = nil
		return w.advance(st, st.Index+1, resolved, nil), nil

	case kindConfirm:
		affirmative, recognized := recognizeConfirm(cat.Confirm, text)
		if !recognized {
			st.ConfirmRetries++
			if st.ConfirmRetries < cat.Confirm.MaxAttempts {
				return w.suspend(st, []string{w.render(cat.Confirm.Retry, st)}), nil
			}
			slog.Debug("confirmation not recognised, treating as no",
				slog.Int("attempts", st.ConfirmRetries))
		}
		result := choiceNo
		if affirmative {
			result = choiceYes
		}
		return w.advance(st, st.Index+1, result, nil), nil
	}

	return Turn{}, fmt.Errorf("dialog: step %q does not accept replies", current.name)
}

// Abort ends the flow as cancelled. No result is produced and nothing beyond
// the fields already captured has happened.
func (w *Waterfall) Abort(st *FlowState) (Turn, error) {
	if st.Done {
		return Turn{}, ErrFlowFinished
	}
	st.Done = true
	st.Outcome = OutcomeCancelled
	return Turn{
		Step:     st.Step(),
		Messages: []string{w.render(w.catalog().Cancelled, st)},
		Done:     true,
		Outcome:  OutcomeCancelled,
		Details:  st.Details,
	}, nil
}

// Prompt returns the prompt the flow is currently waiting on, or nil once it
// has finished.
func (w *Waterfall) Prompt(st *FlowState) *Prompt {
	if st.Done {
		return nil
	}
	return w.promptFor(st)
}

// advance runs the table from index from, feeding result into each step's
// capture field, until a step suspends or the flow finishes.
func (w *Waterfall) advance(st *FlowState, from int, result string, msgs []string) Turn {
	for i := from; i < len(bookingSteps); i++ {
		s := bookingSteps[i]
		st.Index = i
		if s.capture != "" {
			st.Details.Set(s.capture, result)
		}

		switch s.kind {
		case kindText:
			if v := st.Details.Get(s.field); v != "" {
				result = v
				continue
			}
			return w.suspend(st, msgs)

		case kindDate:
			v := st.Details.Get(s.field)
			if v != "" && !timex.IsAmbiguous(v) {
				result = v
				continue
			}
			st.Resolver = &ResolverState{Field: s.field, Seed: v}
			return w.suspend(st, msgs)

		case kindConfirm:
			st.ConfirmRetries = 0
			return w.suspend(st, msgs)

		case kindFinal:
			return w.finish(st, result == choiceYes, msgs)
		}
	}
	return w.finish(st, false, msgs)
}

func (w *Waterfall) suspend(st *FlowState, msgs []string) Turn {
	return Turn{
		Step:     st.Step(),
		Messages: msgs,
		Prompt:   w.promptFor(st),
		Details:  st.Details,
	}
}

func (w *Waterfall) finish(st *FlowState, affirmative bool, msgs []string) Turn {
	cat := w.catalog()
	st.Index = len(bookingSteps) - 1
	st.Done = true

	turn := Turn{Step: StepFinal, Done: true, Details: st.Details}
	if affirmative {
		st.Outcome = OutcomeConfirmed
		result := st.Details.Clone()
		turn.Result = &result
		turn.Messages = append(msgs, w.render(cat.Completed, st))
	} else {
		st.Outcome = OutcomeRejected
		turn.Messages = append(msgs, w.render(cat.Rejected, st))
	}
	turn.Outcome = st.Outcome
	return turn
}

func (w *Waterfall) promptFor(st *FlowState) *Prompt {
	cat := w.catalog()
	s := bookingSteps[st.Index]

	switch s.kind {
	case kindText:
		tp := textPromptFor(cat, s.name)
		text := w.render(tp.Text, st)
		if tp.Example != "" {
			text += "\n\n(example: " + tp.Example + ")"
		}
		return &Prompt{Kind: PromptText, Text: text}

	case kindDate:
		dp := cat.StartDate
		if s.name == StepEndDate {
			dp = cat.EndDate
		}
		text := dp.Prompt
		if st.Resolver != nil && (st.Resolver.Seed != "" || st.Resolver.Attempts > 0) {
			text = dp.Reprompt
		}
		return &Prompt{Kind: PromptDate, Text: w.render(text, st)}

	case kindConfirm:
		return &Prompt{
			Kind:    PromptConfirm,
			Text:    w.render(cat.Confirm.Summary, st),
			Choices: []string{cat.Confirm.Yes, cat.Confirm.No},
		}
	}
	return nil
}

func (w *Waterfall) render(tmpl string, st *FlowState) string {
	out, err := RenderText(tmpl, st.Step(), st.Details)
	if err != nil {
		slog.Warn("prompt template failed, using raw text",
			slog.String("step", string(st.Step())), slog.String("error", err.Error()))
		return tmpl
	}
	return out
}

func textPromptFor(cat *Catalog, name StepName) TextPrompt {
	switch name {
	case StepOrigin:
		return cat.Origin
	case StepDestination:
		return cat.Destination
	default:
		return cat.Budget
	}
}
