package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/searchktools/minihttp/core/codec"
	"github.com/searchktools/minihttp/core/http"
	"github.com/searchktools/minihttp/core/store"
)

// Messages serves CRUD over the message store
type Messages struct {
	store  *store.Store
	logger *zap.Logger
}

// NewMessages creates the message controller
func NewMessages(s *store.Store, logger *zap.Logger) *Messages {
	return &Messages{store: s, logger: logger}
}

// List returns every message, one "<id>: <content> (by <user>)" line each.
// GET /msg?id=N is answered like GET /msg/N.
func (m *Messages) List(req *http.Request) *http.Response {
	if _, ok := req.Query["id"]; ok {
		return m.Get(req)
	}

	msgs := m.store.List()
	if c, ok := codec.Negotiate(req.Header(http.HeaderAccept)); ok {
		return encode(c, 200, msgs)
	}

	lines := make([]string, len(msgs))
	for i, msg := range msgs {
		lines[i] = formatMessage(msg)
	}
	return http.Text(200, strings.Join(lines, "\n"))
}

// Get returns one message
func (m *Messages) Get(req *http.Request) *http.Response {
	msg, ok := m.store.Get(messageID(req))
	if !ok {
		return http.Text(404, "Message not found")
	}
	if c, ok := codec.Negotiate(req.Header(http.HeaderAccept)); ok {
		return encode(c, 200, msg)
	}
	return http.Text(200, formatMessage(msg))
}

// Create stores a message owned by the username cookie
func (m *Messages) Create(req *http.Request) *http.Response {
	content, errResp := bodyValue(req, "message")
	if errResp != nil {
		return errResp
	}
	username, ok := req.Cookie(CookieUsername)
	if !ok {
		return http.Text(400, "Missing username in cookies")
	}

	id := m.store.Insert(content, username)
	m.logger.Info("message created", zap.Uint64("id", id), zap.String("username", username))
	return http.Text(201, fmt.Sprintf("Message created with ID: %d by user: %s", id, username))
}

// Update replaces the content of an existing message
func (m *Messages) Update(req *http.Request) *http.Response {
	id := messageID(req)
	content, errResp := bodyValue(req, "message")
	if errResp != nil {
		return errResp
	}

	if err := m.store.Update(id, content); err != nil {
		return http.Text(404, fmt.Sprintf("Message with ID %d not found", id))
	}
	return http.Text(200, fmt.Sprintf("Message with ID %d updated", id))
}

// Upsert updates the message when it exists and otherwise creates a new one
// under a fresh id, which requires the username cookie.
func (m *Messages) Upsert(req *http.Request) *http.Response {
	id := messageID(req)
	if id == 0 {
		return http.Text(404, "Message not found")
	}
	content, errResp := bodyValue(req, "message")
	if errResp != nil {
		return errResp
	}

	username, ok := req.Cookie(CookieUsername)
	if !ok {
		if err := m.store.Update(id, content); err != nil {
			return http.Text(400, "Missing username in cookies")
		}
		return http.Text(200, fmt.Sprintf("Message with ID %d updated", id))
	}

	msg, created := m.store.Upsert(id, content, username)
	if created {
		m.logger.Info("message created", zap.Uint64("id", msg.ID), zap.String("username", username))
		return http.Text(201, fmt.Sprintf("Message created with ID: %d by user: %s", msg.ID, username))
	}
	return http.Text(200, fmt.Sprintf("Message with ID %d updated", id))
}

// Delete removes a message
func (m *Messages) Delete(req *http.Request) *http.Response {
	id := messageID(req)
	if err := m.store.Delete(id); err != nil {
		return http.Text(404, "Message not found")
	}
	m.logger.Info("message deleted", zap.Uint64("id", id))
	return http.Text(200, fmt.Sprintf("Message with ID %d deleted", id))
}

func formatMessage(msg store.Message) string {
	return fmt.Sprintf("%d: %s (by %s)", msg.ID, msg.Content, msg.Username)
}

// messageID reads the id path segment, falling back to the id query
// parameter. Missing or invalid ids are 0, which never names a message.
func messageID(req *http.Request) uint64 {
	raw := req.Param("id")
	if raw == "" {
		raw = req.QueryValue("id")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// encode renders v with c. Protobuf payloads carry the value as a
// google.protobuf.ListValue or Struct.
func encode(c codec.Codec, status int, v any) *http.Response {
	payload := v
	if c.Name() == "protobuf" {
		pv, err := codec.ToValue(v)
		if err != nil {
			return http.Text(500, "Internal Server Error")
		}
		switch k := pv.GetKind().(type) {
		case *structpb.Value_ListValue:
			payload = k.ListValue
		case *structpb.Value_StructValue:
			payload = k.StructValue
		default:
			payload = pv
		}
	}

	data, err := c.Encode(payload)
	if err != nil {
		return http.Text(500, "Internal Server Error")
	}
	return http.Data(status, c.ContentType(), data)
}
