package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

var ErrNotAnObject = errors.New("transaction must be a JSON object")

// Transaction is an opaque JSON object submitted by the caller. Its fields are
// not interpreted by the bridge. A decoded Transaction re-encodes to the bytes
// it was decoded from, so key order and number literals are kept.
type Transaction struct {
	Fields map[string]any
	raw    json.RawMessage
}

// NewTransaction builds a Transaction from fields. It encodes with sorted keys.
func NewTransaction(fields map[string]any) Transaction {
	return Transaction{Fields: fields}
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	if t.raw != nil {
		return t.raw, nil
	}
	return json.Marshal(t.Fields)
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	parsed, err := parseTransaction(data)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func parseTransaction(data []byte) (Transaction, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return Transaction{}, fmt.Errorf("failed to decode transaction: %w", err)
	}
	if fields == nil {
		return Transaction{}, ErrNotAnObject
	}
	return Transaction{Fields: fields, raw: append(json.RawMessage(nil), data...)}, nil
}

// RecentTransaction is an accepted transaction as kept in the recent log.
type RecentTransaction struct {
	Transaction Transaction `json:"transaction"`
	ReceivedAt  time.Time   `json:"receivedAt"`
}

type Status struct {
	Status            string             `json:"status"`
	TotalTransactions int64              `json:"totalTransactions"`
	LastTransaction   *RecentTransaction `json:"lastTransaction"`
}

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// DecodeTransaction reads a single JSON object from r, keeping the caller's
// bytes for re-encoding.
func DecodeTransaction(r io.Reader) (Transaction, error) {
	dec := json.NewDecoder(r)

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return Transaction{}, fmt.Errorf("failed to decode transaction: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Transaction{}, errors.New("unexpected data after transaction object")
	}
	return parseTransaction(raw)
}
