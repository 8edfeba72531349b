package site

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/blumotif/folio/internal/kvstore"
)

// Message is one visitor contact-form submission.
type Message struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Body      string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// AppendMessage validates and stores a visitor message, stamping the
// current time when none is set. Returns the generated message key.
func AppendMessage(ctx context.Context, kv *kvstore.Store, m Message) (string, error) {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Body = strings.TrimSpace(m.Body)

	if m.Name == "" || m.Email == "" || m.Body == "" {
		return "", fmt.Errorf("message requires name, email, and body")
	}
	if m.Timestamp == 0 {
		m.Timestamp = time.Now().UTC().UnixMilli()
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}
	key, err := kv.Push(ctx, MessagesPath, raw)
	if err != nil {
		return "", fmt.Errorf("store message: %w", err)
	}
	return key, nil
}

// Messages returns all stored messages, newest first.
func Messages(ctx context.Context, kv *kvstore.Store) ([]Message, error) {
	raw, err := kv.Get(ctx, MessagesPath)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	var byKey map[string]Message
	if err := json.Unmarshal(raw, &byKey); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	out := make([]Message, 0, len(byKey))
	for _, m := range byKey {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}
