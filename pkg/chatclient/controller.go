package chatclient

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"eventchat-backend/internal/intake"
	"eventchat-backend/internal/models"
	"eventchat-backend/internal/services"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Defaults for widget pacing. The bot delay makes scripted replies feel
// typed rather than instant; typing indicators expire locally because the
// server never sends a "stopped typing" event.
const (
	defaultBotDelay     = 800 * time.Millisecond
	defaultTypingExpiry = 3 * time.Second
)

// Transport is the REST surface the controller needs. *APIClient satisfies
// it; tests substitute stubs.
type Transport interface {
	CreateConversation(ctx context.Context, req models.CreateConversationRequest) (*models.ConversationResponse, error)
	UpdateConversationFields(ctx context.Context, id uuid.UUID, req models.UpdateConversationRequest) (*models.ConversationResponse, error)
	PostMessage(ctx context.Context, conversationID uuid.UUID, req models.CreateMessageRequest) (*models.MessageResponse, error)
	RequestLiveAgent(ctx context.Context, conversationID uuid.UUID) (*models.ConversationResponse, error)
	CreateLead(ctx context.Context, req models.CreateLeadRequest) (*models.LeadResponse, error)
}

// RealtimeSender is the outbound half of the realtime channel. *Socket
// satisfies it; a nil sender disables subscriptions and typing pings.
type RealtimeSender interface {
	Subscribe(conversationID uuid.UUID)
	SendTyping(conversationID uuid.UUID)
}

// Entry is one transcript line as the widget renders it.
type Entry struct {
	ID        uuid.UUID
	Role      models.SenderType
	Sender    string
	Content   string
	CreatedAt time.Time
}

// Controller drives one visitor's chat session: the scripted intake flow,
// the optimistic transcript, and the hand-off to a live agent. Message
// persistence is fire-and-forget so the UI never blocks on the network;
// the lead and hand-off calls are synchronous because the flow's gated
// transitions depend on their success.
type Controller struct {
	transport Transport
	sender    RealtimeSender

	visitorID    string
	botDelay     time.Duration
	typingExpiry time.Duration

	mu             sync.Mutex
	flow           *intake.Flow
	conversationID uuid.UUID
	transcript     []Entry
	seen           map[uuid.UUID]struct{}
	handoffPending bool
	typingActive   bool
	typingTimer    *time.Timer

	wg sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithBotDelay overrides the scripted reply delay. Zero means reply on the
// next scheduler tick, which tests rely on.
func WithBotDelay(d time.Duration) Option {
	return func(c *Controller) { c.botDelay = d }
}

// WithTypingExpiry overrides how long a typing indicator stays lit after
// the last ping.
func WithTypingExpiry(d time.Duration) Option {
	return func(c *Controller) { c.typingExpiry = d }
}

// WithVisitorID pins the visitor identity, e.g. one restored from widget
// local storage.
func WithVisitorID(id string) Option {
	return func(c *Controller) { c.visitorID = id }
}

// NewController creates a controller. sender may be nil.
func NewController(transport Transport, sender RealtimeSender, opts ...Option) *Controller {
	c := &Controller{
		transport:    transport,
		sender:       sender,
		visitorID:    NewVisitorID(),
		botDelay:     defaultBotDelay,
		typingExpiry: defaultTypingExpiry,
		flow:         intake.New(),
		seen:         map[uuid.UUID]struct{}{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewVisitorID generates a fresh anonymous visitor identity.
func NewVisitorID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("visitor_%s_%d", hex.EncodeToString(b), time.Now().UnixMilli())
}

// VisitorID returns the visitor identity the controller sends with its
// messages.
func (c *Controller) VisitorID() string { return c.visitorID }

// ConversationID returns the active conversation id, or uuid.Nil before
// Start.
func (c *Controller) ConversationID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// Step exposes the current intake step.
func (c *Controller) Step() intake.Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flow.Step()
}

// Transcript returns a copy of the rendered transcript.
func (c *Controller) Transcript() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// TypingActive reports whether the remote typing indicator is currently
// lit.
func (c *Controller) TypingActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typingActive
}

// Flush waits for in-flight fire-and-forget persistence and scheduled bot
// replies. Tests call it before asserting on the transcript.
func (c *Controller) Flush() { c.wg.Wait() }

// Start creates the conversation, subscribes to its events and greets the
// visitor. Calling Start on an already started controller is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.conversationID != uuid.Nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	conv, err := c.transport.CreateConversation(ctx, models.CreateConversationRequest{VisitorID: c.visitorID})
	if err != nil {
		return fmt.Errorf("start conversation: %w", err)
	}

	c.mu.Lock()
	c.conversationID = conv.ID
	c.flow.Start()
	greeting := promptFor(c.flow.Step())
	c.mu.Unlock()

	if c.sender != nil {
		c.sender.Subscribe(conv.ID)
	}
	c.appendBot(greeting, 0)
	return nil
}

// SubmitInput feeds one visitor answer into the session. The visitor line
// lands on the transcript immediately; persistence and field updates run in
// the background. Lead creation and the agent hand-off are the exception:
// they block because the flow may not advance unless they succeed.
func (c *Controller) SubmitInput(ctx context.Context, input string) error {
	c.mu.Lock()
	convID := c.conversationID
	c.mu.Unlock()
	if convID == uuid.Nil {
		return fmt.Errorf("controller not started")
	}

	c.appendVisitor(input)
	c.persistAsync(convID, models.SenderVisitor, c.visitorID, c.visitorID, input)

	c.mu.Lock()
	outcome, err := c.flow.Submit(input)
	c.mu.Unlock()
	if err != nil {
		c.appendBot(replyForError(err), c.botDelay)
		return nil
	}

	switch outcome.Action {
	case intake.ActionFieldCollected:
		c.patchFieldAsync(convID, outcome.Field, outcome.Value)
		c.appendBot(c.promptForStep(outcome.Step), c.botDelay)

	case intake.ActionLeadReady:
		c.patchFieldAsync(convID, outcome.Field, outcome.Value)
		if err := c.createLead(ctx, convID); err != nil {
			log.Warn().Err(err).Msg("chatclient: lead creation failed")
			c.appendBot("Sorry, something went wrong saving your details. Could you share your phone number again?", c.botDelay)
			return nil
		}
		c.mu.Lock()
		_ = c.flow.LeadCreated()
		next := c.flow.Step()
		c.mu.Unlock()
		c.appendBot(promptFor(next), c.botDelay)

	case intake.ActionAgentRequested:
		c.requestAgent(ctx, convID)

	case intake.ActionDeclined:
		c.appendBot(promptFor(intake.StepComplete), c.botDelay)

	case intake.ActionLiveMessage:
		// Already persisted; agents answer over the realtime channel.
	}
	return nil
}

// RequestLiveAgent triggers the hand-off outside the scripted ask, e.g.
// from a "talk to a human" button rendered at any step.
func (c *Controller) RequestLiveAgent(ctx context.Context) {
	c.mu.Lock()
	convID := c.conversationID
	c.mu.Unlock()
	if convID == uuid.Nil {
		return
	}
	c.requestAgent(ctx, convID)
}

// requestAgent is single-flight: while one hand-off call is in progress,
// repeated clicks and duplicate scripted submissions are dropped.
func (c *Controller) requestAgent(ctx context.Context, convID uuid.UUID) {
	c.mu.Lock()
	if c.handoffPending || c.flow.Step() == intake.StepLiveChat {
		c.mu.Unlock()
		return
	}
	c.handoffPending = true
	c.mu.Unlock()

	_, err := c.transport.RequestLiveAgent(ctx, convID)

	c.mu.Lock()
	c.handoffPending = false
	if err == nil {
		_ = c.flow.AgentConnected()
	}
	c.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Msg("chatclient: live agent request failed")
		c.appendBot("Sorry, we couldn't reach the team just now. Please try again.", c.botDelay)
		return
	}
	// The server persists the system hand-off line and broadcasts it, but
	// this controller filters non-admin events, so render the local copy.
	c.appendLocal(models.SenderSystem, "System", services.HandoffMessage)
}

// NotifyTyping sends a best-effort typing ping for the active conversation.
func (c *Controller) NotifyTyping() {
	c.mu.Lock()
	convID := c.conversationID
	c.mu.Unlock()
	if c.sender != nil && convID != uuid.Nil {
		c.sender.SendTyping(convID)
	}
}

// HandleMessageEvent is the socket's OnMessage callback. Events for other
// conversations are dropped, repeated message ids are dropped, and only
// admin-authored lines are rendered: the visitor's own messages are already
// on the transcript optimistically and system lines are appended locally.
func (c *Controller) HandleMessageEvent(ev models.MessageEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev.ConversationID != c.conversationID {
		return
	}
	if _, dup := c.seen[ev.MessageID]; dup {
		return
	}
	c.seen[ev.MessageID] = struct{}{}
	if ev.SenderType != models.SenderAdmin {
		return
	}
	c.transcript = append(c.transcript, Entry{
		ID:        ev.MessageID,
		Role:      ev.SenderType,
		Sender:    ev.SenderName,
		Content:   ev.Content,
		CreatedAt: ev.CreatedAt,
	})
}

// HandleTypingEvent is the socket's OnTyping callback. The indicator lights
// for pings from the other side of the conversation and expires on its own.
func (c *Controller) HandleTypingEvent(ev models.TypingEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev.ConversationID != c.conversationID || ev.SenderType == models.SenderVisitor {
		return
	}
	c.typingActive = true
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	c.typingTimer = time.AfterFunc(c.typingExpiry, func() {
		c.mu.Lock()
		c.typingActive = false
		c.mu.Unlock()
	})
}

// Reset discards the session but keeps the visitor identity, matching the
// widget's "start over" control.
func (c *Controller) Reset() {
	c.wg.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flow.Reset()
	c.conversationID = uuid.Nil
	c.transcript = nil
	c.seen = map[uuid.UUID]struct{}{}
	c.handoffPending = false
	c.typingActive = false
	if c.typingTimer != nil {
		c.typingTimer.Stop()
		c.typingTimer = nil
	}
}

// --- internals ---

func (c *Controller) appendVisitor(content string) {
	c.appendLocal(models.SenderVisitor, c.visitorID, content)
}

func (c *Controller) appendLocal(role models.SenderType, sender, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = append(c.transcript, Entry{
		ID:        uuid.New(),
		Role:      role,
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now(),
	})
}

// appendBot schedules a scripted reply after the configured delay and
// persists it as a system line so the admin console sees the full exchange.
func (c *Controller) appendBot(content string, delay time.Duration) {
	c.mu.Lock()
	convID := c.conversationID
	c.mu.Unlock()

	c.wg.Add(1)
	time.AfterFunc(delay, func() {
		defer c.wg.Done()
		c.appendLocal(models.SenderSystem, "EventBot", content)
		c.persistAsync(convID, models.SenderSystem, "bot", "EventBot", content)
	})
}

// persistAsync posts a message in the background with a fresh idempotency
// nonce. Failures only log; the optimistic transcript is the UI's truth and
// the server transcript is best-effort from the widget's point of view.
func (c *Controller) persistAsync(convID uuid.UUID, role models.SenderType, senderID, senderName, content string) {
	nonce := uuid.NewString()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, err := c.transport.PostMessage(ctx, convID, models.CreateMessageRequest{
			SenderID:    senderID,
			SenderType:  role,
			SenderName:  senderName,
			Content:     content,
			ClientNonce: &nonce,
		})
		if err != nil {
			log.Debug().Err(err).Msg("chatclient: message persistence failed")
		}
	}()
}

func (c *Controller) patchFieldAsync(convID uuid.UUID, field, value string) {
	req := models.UpdateConversationRequest{}
	v := value
	switch field {
	case "eventType":
		req.EventType = &v
	case "eventDate":
		req.EventDate = &v
	case "eventLocation":
		req.EventLocation = &v
	case "visitorName":
		req.VisitorName = &v
	case "visitorPhone":
		req.VisitorPhone = &v
	default:
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := c.transport.UpdateConversationFields(ctx, convID, req); err != nil {
			log.Debug().Err(err).Str("field", field).Msg("chatclient: field update failed")
		}
	}()
}

// createLead blocks because the flow may not advance past the phone step
// until the lead exists.
func (c *Controller) createLead(ctx context.Context, convID uuid.UUID) error {
	c.mu.Lock()
	fields := c.flow.Fields()
	c.mu.Unlock()

	_, err := c.transport.CreateLead(ctx, models.CreateLeadRequest{
		EventType:      fields.EventType,
		Location:       fields.EventLocation,
		Name:           fields.VisitorName,
		Phone:          fields.VisitorPhone,
		LeadSource:     services.LeadSourceChatbot,
		ContactMethod:  "call",
		Message:        fmt.Sprintf("Preferred date: %s", fields.EventDate),
		ConversationID: &convID,
	})
	return err
}

// promptForStep personalizes the phone prompt with the collected name.
func (c *Controller) promptForStep(step intake.Step) string {
	if step == intake.StepPhone {
		c.mu.Lock()
		name := c.flow.Fields().VisitorName
		c.mu.Unlock()
		return fmt.Sprintf("Thanks, %s! What's the best phone number to reach you on?", name)
	}
	return promptFor(step)
}

func promptFor(step intake.Step) string {
	switch step {
	case intake.StepEventType:
		return "Hi! I can help you plan your event. What type of event are you planning?"
	case intake.StepDate:
		return "Great choice! When is your event?"
	case intake.StepLocation:
		return "Where will the event be held?"
	case intake.StepName:
		return "Almost done! What's your name?"
	case intake.StepPhone:
		return "What's the best phone number to reach you on?"
	case intake.StepAskAgent:
		return "Perfect, we've got everything we need. Would you like to chat with a member of our events team right now?"
	case intake.StepComplete:
		return "Thanks for chatting with us! Our team will reach out shortly."
	default:
		return ""
	}
}

func replyForError(err error) string {
	switch {
	case errors.Is(err, intake.ErrNameTooShort):
		return "Could you share your full name? It needs at least a couple of characters."
	case errors.Is(err, intake.ErrInvalidPhone):
		return "That doesn't look like a phone number I can use. Please enter at least 10 digits."
	case errors.Is(err, intake.ErrUnknownChoice):
		return "Please pick one of the options above."
	case errors.Is(err, intake.ErrEmptyInput):
		return "Sorry, I didn't catch that. Could you try again?"
	default:
		return "Sorry, something went wrong. Could you try again?"
	}
}
