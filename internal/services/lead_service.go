package services

import (
	"context"
	"crypto/cipher"
	"fmt"
	"strings"

	appcrypto "eventchat-backend/internal/crypto"
	"eventchat-backend/internal/intake"
	"eventchat-backend/internal/models"
	"eventchat-backend/internal/store"

	"github.com/google/uuid"
)

// LeadSourceChatbot marks leads created by the chat widget's intake flow.
const LeadSourceChatbot = "chatbot"

// LeadService validates and creates sales leads. When an AEAD cipher is
// configured, phone numbers are encrypted before they reach the store.
type LeadService struct {
	store store.Store
	aead  cipher.AEAD // nil: store plaintext
}

// NewLeadService creates a new LeadService. aead may be nil.
func NewLeadService(st store.Store, aead cipher.AEAD) *LeadService {
	return &LeadService{store: st, aead: aead}
}

// CreateLead validates the request and persists a lead. For chatbot-sourced
// leads with no email, a synthetic address is derived from the phone digits
// so downstream CRM imports always have one.
func (s *LeadService) CreateLead(ctx context.Context, req models.CreateLeadRequest) (*models.LeadResponse, error) {
	if len(strings.TrimSpace(req.Name)) < 2 {
		return nil, fmt.Errorf("%w: name must be at least 2 characters", ErrValidation)
	}
	if err := intake.ValidatePhone(req.Phone); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		if req.LeadSource != LeadSourceChatbot {
			return nil, fmt.Errorf("%w: email is required", ErrValidation)
		}
		email = intake.Digits(req.Phone) + "@chat.lead"
	}

	contactMethod := req.ContactMethod
	if contactMethod == "" {
		contactMethod = "call"
	}

	phoneBytes := []byte(strings.TrimSpace(req.Phone))
	if s.aead != nil {
		encrypted, err := appcrypto.Encrypt(s.aead, phoneBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt lead phone: %w", err)
		}
		phoneBytes = encrypted
	}

	lead, err := s.store.CreateLead(ctx, store.CreateLeadParams{
		ID:             uuid.New(),
		ConversationID: req.ConversationID,
		EventType:      req.EventType,
		Location:       req.Location,
		Name:           strings.TrimSpace(req.Name),
		Phone:          phoneBytes,
		Email:          email,
		LeadSource:     req.LeadSource,
		ContactMethod:  contactMethod,
		Message:        req.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lead in store: %w", err)
	}

	resp := &models.LeadResponse{
		ID:             lead.ID,
		ConversationID: lead.ConversationID,
		EventType:      lead.EventType,
		Location:       lead.Location,
		Name:           lead.Name,
		Phone:          strings.TrimSpace(req.Phone), // echo the submitted value, never ciphertext
		Email:          lead.Email,
		LeadSource:     lead.LeadSource,
		ContactMethod:  lead.ContactMethod,
		Message:        lead.Message,
		CreatedAt:      lead.CreatedAt,
	}
	return resp, nil
}

// DecryptPhone recovers a stored phone number for admin readers.
func (s *LeadService) DecryptPhone(stored []byte) (string, error) {
	if s.aead == nil {
		return string(stored), nil
	}
	plain, err := appcrypto.Decrypt(s.aead, stored)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
