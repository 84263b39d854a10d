package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() *Document {
	return &Document{
		Id:          NewID(),
		TenantId:    "tenant-a",
		Filename:    "handbook.pdf",
		ContentType: "application/pdf",
		ContentHash: HashContent([]byte("bytes")),
		SizeBytes:   1024,
		Status:      DocumentStatusQueued,
	}
}

func TestValidateDocument(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, ValidateDocument(validDocument()))
	})

	tests := []struct {
		name   string
		mutate func(*Document)
	}{
		{"missing tenant", func(d *Document) { d.TenantId = "" }},
		{"missing filename", func(d *Document) { d.Filename = "" }},
		{"missing hash", func(d *Document) { d.ContentHash = "" }},
		{"zero size", func(d *Document) { d.SizeBytes = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			tt.mutate(doc)
			err := ValidateDocument(doc)
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}

	t.Run("nil document", func(t *testing.T) {
		assert.ErrorIs(t, ValidateDocument(nil), ErrInvalidDocument)
	})
}

func TestValidateChunk(t *testing.T) {
	valid := func() *Chunk {
		return &Chunk{
			Id:         NewID(),
			DocumentId: NewID(),
			TenantId:   "tenant-a",
			Index:      0,
			Page:       1,
			Content:    "some extracted text",
		}
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, ValidateChunk(valid()))
	})

	tests := []struct {
		name   string
		mutate func(*Chunk)
	}{
		{"missing tenant", func(c *Chunk) { c.TenantId = "" }},
		{"missing document", func(c *Chunk) { c.DocumentId = "" }},
		{"empty content", func(c *Chunk) { c.Content = "" }},
		{"negative index", func(c *Chunk) { c.Index = -1 }},
		{"page zero", func(c *Chunk) { c.Page = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := valid()
			tt.mutate(chunk)
			assert.ErrorIs(t, ValidateChunk(chunk), ErrInvalidChunk)
		})
	}
}

func TestValidateJob(t *testing.T) {
	valid := func() *Job {
		return &Job{
			Id:          NewID(),
			TenantId:    "tenant-a",
			Type:        JobTypeProcessDocument,
			Payload:     JobPayload{DocumentId: NewID()},
			Status:      JobStatusQueued,
			MaxAttempts: 3,
		}
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, ValidateJob(valid()))
	})

	t.Run("missing tenant", func(t *testing.T) {
		job := valid()
		job.TenantId = ""
		assert.ErrorIs(t, ValidateJob(job), ErrInvalidJob)
	})

	t.Run("attempts above max", func(t *testing.T) {
		job := valid()
		job.Attempts = 4
		assert.ErrorIs(t, ValidateJob(job), ErrInvalidJob)
	})

	t.Run("payload missing document id", func(t *testing.T) {
		job := valid()
		job.Payload = JobPayload{}
		assert.ErrorIs(t, ValidateJob(job), ErrInvalidPayload)
	})

	t.Run("unknown job type", func(t *testing.T) {
		job := valid()
		job.Type = "reticulate_splines"
		assert.ErrorIs(t, ValidateJob(job), ErrUnknownJobType)
	})
}

func TestValidateMessage(t *testing.T) {
	valid := func() *Message {
		return &Message{
			Id:             NewID(),
			TenantId:       "tenant-a",
			ConversationId: NewID(),
			Role:           MessageRoleAssistant,
			Content:        "grounded answer",
		}
	}

	require.NoError(t, ValidateMessage(valid()))

	t.Run("missing conversation", func(t *testing.T) {
		msg := valid()
		msg.ConversationId = ""
		assert.ErrorIs(t, ValidateMessage(msg), ErrInvalidMessage)
	})

	t.Run("bad role", func(t *testing.T) {
		msg := valid()
		msg.Role = "system"
		assert.ErrorIs(t, ValidateMessage(msg), ErrInvalidMessage)
	})

	t.Run("empty content", func(t *testing.T) {
		msg := valid()
		msg.Content = ""
		assert.ErrorIs(t, ValidateMessage(msg), ErrEmptyContent)
	})
}
