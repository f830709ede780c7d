// Package intake implements the scripted bot intake flow as a pure state
// machine. It owns step progression and validation only; rendering,
// persistence and the lead/hand-off calls that gate two of its transitions
// belong to the caller.
package intake

import (
	"errors"
	"strings"
	"unicode"
)

// Step is the current position in the intake flow. Progression is strictly
// forward: one answer per step, no back, no skip.
type Step string

const (
	StepGreeting  Step = "greeting"
	StepEventType Step = "event_type"
	StepDate      Step = "date"
	StepLocation  Step = "location"
	StepName      Step = "name"
	StepPhone     Step = "phone"
	StepAskAgent  Step = "ask_agent"
	StepLiveChat  Step = "live_chat"
	StepComplete  Step = "complete"
)

// Choice values offered at the ask_agent step.
const (
	ChoiceConnectAgent = "connect_agent"
	ChoiceNoThanks     = "no_thanks"
)

var (
	ErrEmptyInput    = errors.New("intake: empty answer")
	ErrNameTooShort  = errors.New("intake: name must be at least 2 characters")
	ErrInvalidPhone  = errors.New("intake: phone must contain at least 10 digits and only + - ( ) extras")
	ErrUnknownChoice = errors.New("intake: answer is not one of the offered choices")
	ErrFlowFinished  = errors.New("intake: flow already complete")
	ErrNotGated      = errors.New("intake: no gated transition pending at this step")
)

// Action tells the caller what a submission means.
type Action int

const (
	// ActionFieldCollected: a field was accepted and the flow advanced. The
	// caller should PATCH Field=Value onto the conversation.
	ActionFieldCollected Action = iota
	// ActionLeadReady: the phone number validated. The flow stays at the
	// phone step until the caller's lead-creation call succeeds and it
	// calls LeadCreated.
	ActionLeadReady
	// ActionAgentRequested: the visitor picked the live-agent choice. The
	// flow stays at ask_agent until the caller's hand-off call succeeds and
	// it calls AgentConnected.
	ActionAgentRequested
	// ActionDeclined: the visitor declined an agent; the flow is complete.
	ActionDeclined
	// ActionLiveMessage: free text submitted during live chat; intake logic
	// is bypassed entirely.
	ActionLiveMessage
)

// Outcome describes the result of a successful submission.
type Outcome struct {
	Action Action
	Field  string // conversation PATCH key, when a field was collected
	Value  string
	Step   Step // step after the submission
}

// Fields holds the answers collected so far.
type Fields struct {
	EventType     string
	EventDate     string
	EventLocation string
	VisitorName   string
	VisitorPhone  string
}

// Flow is a single visitor's intake state. Not safe for concurrent use;
// the controller owns it from one goroutine.
type Flow struct {
	step   Step
	fields Fields
}

// New returns a flow positioned at the greeting.
func New() *Flow {
	return &Flow{step: StepGreeting}
}

// Step returns the current step.
func (f *Flow) Step() Step { return f.step }

// Fields returns a copy of the collected answers.
func (f *Flow) Fields() Fields { return f.fields }

// Start moves past the greeting to the first question. Calling it more
// than once is a no-op.
func (f *Flow) Start() {
	if f.step == StepGreeting {
		f.step = StepEventType
	}
}

// Submit feeds one visitor answer into the flow. Validation failures leave
// the step unchanged so the caller can re-prompt in place.
func (f *Flow) Submit(input string) (Outcome, error) {
	trimmed := strings.TrimSpace(input)

	switch f.step {
	case StepGreeting:
		// Any input past the greeting starts the questions.
		f.step = StepEventType
		return f.Submit(input)

	case StepEventType:
		if trimmed == "" {
			return Outcome{}, ErrEmptyInput
		}
		f.fields.EventType = strings.ToLower(trimmed)
		f.step = StepDate
		return Outcome{Action: ActionFieldCollected, Field: "eventType", Value: f.fields.EventType, Step: f.step}, nil

	case StepDate:
		if trimmed == "" {
			return Outcome{}, ErrEmptyInput
		}
		f.fields.EventDate = trimmed
		f.step = StepLocation
		return Outcome{Action: ActionFieldCollected, Field: "eventDate", Value: trimmed, Step: f.step}, nil

	case StepLocation:
		if trimmed == "" {
			return Outcome{}, ErrEmptyInput
		}
		f.fields.EventLocation = trimmed
		f.step = StepName
		return Outcome{Action: ActionFieldCollected, Field: "eventLocation", Value: trimmed, Step: f.step}, nil

	case StepName:
		if len([]rune(trimmed)) < 2 {
			return Outcome{}, ErrNameTooShort
		}
		f.fields.VisitorName = trimmed
		f.step = StepPhone
		return Outcome{Action: ActionFieldCollected, Field: "visitorName", Value: trimmed, Step: f.step}, nil

	case StepPhone:
		if err := ValidatePhone(trimmed); err != nil {
			return Outcome{}, err
		}
		f.fields.VisitorPhone = trimmed
		// Stay here: advancement is gated on lead creation.
		return Outcome{Action: ActionLeadReady, Field: "visitorPhone", Value: trimmed, Step: f.step}, nil

	case StepAskAgent:
		switch trimmed {
		case ChoiceConnectAgent:
			// Stay here: advancement is gated on the hand-off call.
			return Outcome{Action: ActionAgentRequested, Step: f.step}, nil
		case ChoiceNoThanks:
			f.step = StepComplete
			return Outcome{Action: ActionDeclined, Step: f.step}, nil
		default:
			return Outcome{}, ErrUnknownChoice
		}

	case StepLiveChat:
		if trimmed == "" {
			return Outcome{}, ErrEmptyInput
		}
		return Outcome{Action: ActionLiveMessage, Value: trimmed, Step: f.step}, nil

	case StepComplete:
		return Outcome{}, ErrFlowFinished
	}

	return Outcome{}, ErrFlowFinished
}

// LeadCreated advances phone -> ask_agent after the caller's lead-creation
// call succeeded.
func (f *Flow) LeadCreated() error {
	if f.step != StepPhone || f.fields.VisitorPhone == "" {
		return ErrNotGated
	}
	f.step = StepAskAgent
	return nil
}

// AgentConnected advances ask_agent -> live_chat after the caller's
// hand-off call succeeded.
func (f *Flow) AgentConnected() error {
	if f.step != StepAskAgent {
		return ErrNotGated
	}
	f.step = StepLiveChat
	return nil
}

// Reset discards all local state and returns to the greeting. The caller
// keeps its visitor identity.
func (f *Flow) Reset() {
	*f = Flow{step: StepGreeting}
}

// ValidatePhone checks the intake phone rule: after stripping whitespace,
// only digits and + - ( ) may remain, with at least 10 digits.
func ValidatePhone(phone string) error {
	digits := 0
	for _, r := range phone {
		switch {
		case unicode.IsSpace(r):
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == '-' || r == '(' || r == ')':
		default:
			return ErrInvalidPhone
		}
	}
	if digits < 10 {
		return ErrInvalidPhone
	}
	return nil
}

// Digits returns only the digit runes of a phone number. Used to derive
// the synthetic lead email for chatbot-sourced leads.
func Digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
