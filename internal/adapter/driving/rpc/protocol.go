// Package rpc serves the clipboard history as JSON-RPC 2.0 over WebSocket and
// provides a client for it.
package rpc

import (
	"encoding/json"
	"fmt"
)

// Method names.
const (
	MethodPing        = "ping"
	MethodGetEntries  = "get_entries"
	MethodGetEntry    = "get_entry"
	MethodAddEntry    = "add_entry"
	MethodRemoveEntry = "remove_entry"
	MethodSubscribe   = "subscribe_entry"
	MethodUnsubscribe = "unsubscribe_entry"

	// NotificationEntry carries the content delivered to a subscription.
	NotificationEntry = "s_entry"
)

// JSON-RPC error codes. CodeEmptyHistory is application specific.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeServerError    = -32000
	CodeEmptyHistory   = -32001
)

const version = "2.0"

// Request is a JSON-RPC request. A missing ID marks a notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC response. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Notification is a server-initiated message with no ID.
type Notification struct {
	JSONRPC string             `json:"jsonrpc"`
	Method  string             `json:"method"`
	Params  SubscriptionResult `json:"params"`
}

// SubscriptionResult is the params object of an s_entry notification. Result
// holds the raw clipboard content, base64 encoded on the wire.
type SubscriptionResult struct {
	Subscription string `json:"subscription"`
	Result       []byte `json:"result"`
}

// AddEntryParams is the single positional parameter of add_entry.
type AddEntryParams struct {
	Content []byte `json:"content"`
	Kind    string `json:"kind"`
}

// envelope decodes any incoming message far enough to tell responses from
// notifications.
type envelope struct {
	JSONRPC string             `json:"jsonrpc"`
	ID      json.RawMessage    `json:"id"`
	Method  string             `json:"method"`
	Result  json.RawMessage    `json:"result"`
	Error   *Error             `json:"error"`
	Params  SubscriptionResult `json:"params"`
}
