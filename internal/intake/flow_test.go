package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowHappyPath(t *testing.T) {
	f := New()
	require.Equal(t, StepGreeting, f.Step())

	f.Start()
	require.Equal(t, StepEventType, f.Step())
	f.Start() // repeat is a no-op
	require.Equal(t, StepEventType, f.Step())

	out, err := f.Submit("Wedding")
	require.NoError(t, err)
	assert.Equal(t, ActionFieldCollected, out.Action)
	assert.Equal(t, "eventType", out.Field)
	assert.Equal(t, "wedding", out.Value, "event type is lowercased")
	assert.Equal(t, StepDate, out.Step)

	out, err = f.Submit("June 14, 2027")
	require.NoError(t, err)
	assert.Equal(t, "eventDate", out.Field)
	assert.Equal(t, StepLocation, out.Step)

	out, err = f.Submit("Napa Valley")
	require.NoError(t, err)
	assert.Equal(t, "eventLocation", out.Field)
	assert.Equal(t, StepName, out.Step)

	out, err = f.Submit("Jordan Lee")
	require.NoError(t, err)
	assert.Equal(t, "visitorName", out.Field)
	assert.Equal(t, StepPhone, out.Step)

	out, err = f.Submit("+1 (555) 010-2345")
	require.NoError(t, err)
	assert.Equal(t, ActionLeadReady, out.Action)
	assert.Equal(t, StepPhone, out.Step, "phone step is gated on lead creation")

	require.NoError(t, f.LeadCreated())
	require.Equal(t, StepAskAgent, f.Step())

	out, err = f.Submit(ChoiceConnectAgent)
	require.NoError(t, err)
	assert.Equal(t, ActionAgentRequested, out.Action)
	assert.Equal(t, StepAskAgent, out.Step, "ask_agent is gated on the hand-off call")

	require.NoError(t, f.AgentConnected())
	require.Equal(t, StepLiveChat, f.Step())

	out, err = f.Submit("Is anyone there?")
	require.NoError(t, err)
	assert.Equal(t, ActionLiveMessage, out.Action)

	fields := f.Fields()
	assert.Equal(t, "wedding", fields.EventType)
	assert.Equal(t, "June 14, 2027", fields.EventDate)
	assert.Equal(t, "Napa Valley", fields.EventLocation)
	assert.Equal(t, "Jordan Lee", fields.VisitorName)
	assert.Equal(t, "+1 (555) 010-2345", fields.VisitorPhone)
}

func TestFlowDecline(t *testing.T) {
	f := flowAtAskAgent(t)

	out, err := f.Submit(ChoiceNoThanks)
	require.NoError(t, err)
	assert.Equal(t, ActionDeclined, out.Action)
	assert.Equal(t, StepComplete, f.Step())

	_, err = f.Submit("anything")
	assert.ErrorIs(t, err, ErrFlowFinished)
}

func TestFlowValidationKeepsStep(t *testing.T) {
	f := New()
	f.Start()

	_, err := f.Submit("   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Equal(t, StepEventType, f.Step())

	mustSubmit(t, f, "corporate")
	mustSubmit(t, f, "next spring")
	mustSubmit(t, f, "Chicago")

	_, err = f.Submit("J")
	assert.ErrorIs(t, err, ErrNameTooShort)
	assert.Equal(t, StepName, f.Step(), "rejected name leaves the flow in place")

	mustSubmit(t, f, "Jo")
	require.Equal(t, StepPhone, f.Step())

	_, err = f.Submit("555-0102")
	assert.ErrorIs(t, err, ErrInvalidPhone, "fewer than 10 digits")
	_, err = f.Submit("555-0102-extension-9")
	assert.ErrorIs(t, err, ErrInvalidPhone, "letters are rejected")
	assert.Equal(t, StepPhone, f.Step())

	out, err := f.Submit("(555) 010-23456")
	require.NoError(t, err)
	assert.Equal(t, ActionLeadReady, out.Action)
}

func TestFlowUnknownChoice(t *testing.T) {
	f := flowAtAskAgent(t)

	_, err := f.Submit("maybe later")
	assert.ErrorIs(t, err, ErrUnknownChoice)
	assert.Equal(t, StepAskAgent, f.Step())
}

func TestFlowGatesRejectOutOfOrderCalls(t *testing.T) {
	f := New()
	f.Start()

	assert.ErrorIs(t, f.LeadCreated(), ErrNotGated)
	assert.ErrorIs(t, f.AgentConnected(), ErrNotGated)

	mustSubmit(t, f, "birthday")
	mustSubmit(t, f, "tomorrow")
	mustSubmit(t, f, "our office")
	mustSubmit(t, f, "Sam")
	assert.ErrorIs(t, f.LeadCreated(), ErrNotGated, "no validated phone yet")
}

func TestFlowSubmitPastGreetingStartsQuestions(t *testing.T) {
	f := New()

	out, err := f.Submit("wedding")
	require.NoError(t, err)
	assert.Equal(t, "eventType", out.Field)
	assert.Equal(t, StepDate, f.Step())
}

func TestFlowReset(t *testing.T) {
	f := New()
	f.Start()
	mustSubmit(t, f, "gala")

	f.Reset()
	assert.Equal(t, StepGreeting, f.Step())
	assert.Equal(t, Fields{}, f.Fields())
}

func TestValidatePhone(t *testing.T) {
	cases := []struct {
		phone string
		ok    bool
	}{
		{"5550102345", true},
		{"+1 (555) 010-2345", true},
		{"  555 010 2345  ", true},
		{"555010234", false},       // 9 digits
		{"555-010-BEST", false},    // letters
		{"555.010.2345", false},    // dots are not allowed
		{"+15550102345x12", false}, // extension marker
		{"", false},
	}
	for _, tc := range cases {
		err := ValidatePhone(tc.phone)
		if tc.ok {
			assert.NoError(t, err, tc.phone)
		} else {
			assert.ErrorIs(t, err, ErrInvalidPhone, tc.phone)
		}
	}
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "15550102345", Digits("+1 (555) 010-2345"))
	assert.Equal(t, "", Digits("no digits"))
}

func flowAtAskAgent(t *testing.T) *Flow {
	t.Helper()
	f := New()
	f.Start()
	mustSubmit(t, f, "wedding")
	mustSubmit(t, f, "June")
	mustSubmit(t, f, "Napa")
	mustSubmit(t, f, "Jordan")
	mustSubmit(t, f, "5550102345")
	require.NoError(t, f.LeadCreated())
	return f
}

func mustSubmit(t *testing.T, f *Flow, input string) {
	t.Helper()
	_, err := f.Submit(input)
	require.NoError(t, err)
}
