// Package fixture implements the transcript record/replay harness used
// for provider conformance tests. Transcripts are sanitized at record
// time: credential-bearing header and query values never reach disk.
package fixture

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Event types of a transcript.
const (
	EventStatus  = "status"
	EventHeaders = "headers"
	EventData    = "data"
	EventDone    = "done"
)

// Transcript is a recorded, sanitized capture of a single
// request/response exchange. Streaming transcripts contain multiple data
// events; non-streaming transcripts a single one.
type Transcript struct {
	Provider   string       `json:"provider"`
	ModelSpec  string       `json:"model_spec"`
	CapturedAt time.Time    `json:"captured_at"`
	Request    RequestInfo  `json:"request"`
	Response   ResponseMeta `json:"response_meta"`
	Events     []Event      `json:"events"`
}

// RequestInfo is the sanitized request portion of a transcript.
type RequestInfo struct {
	Method        string            `json:"method"`
	URL           string            `json:"url"`
	Headers       map[string]string `json:"headers"`
	CanonicalJSON json.RawMessage   `json:"canonical_json"`
}

// ResponseMeta is the response status and headers.
type ResponseMeta struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
}

// Event is one element of the transcript event log, serialized as a
// two-element [type, payload] array.
type Event struct {
	Type    string
	Payload interface{}
}

// MarshalJSON implements json.Marshaler
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{e.Type, e.Payload})
}

// UnmarshalJSON implements json.Unmarshaler
func (e *Event) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &e.Type); err != nil {
		return fmt.Errorf("event type: %w", err)
	}
	if len(pair[1]) > 0 {
		if err := json.Unmarshal(pair[1], &e.Payload); err != nil {
			return fmt.Errorf("event payload: %w", err)
		}
	}
	return nil
}

// sensitiveNames are header and query parameter names whose values are
// replaced at record time.
var sensitiveNames = map[string]bool{
	"authorization": true,
	"x-api-key":     true,
	"api_key":       true,
	"key":           true,
	"token":         true,
}

func redactedValue(name string) string {
	return "[REDACTED:" + strings.ToLower(name) + "]"
}

// RedactHeaders copies headers with sensitive values replaced. Multiple
// values collapse to the first.
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		if sensitiveNames[strings.ToLower(name)] {
			out[name] = redactedValue(name)
		} else {
			out[name] = values[0]
		}
	}
	return out
}

// RedactURL replaces sensitive query parameter values in the URL.
func RedactURL(u *url.URL) string {
	clean := *u
	q := clean.Query()
	for name := range q {
		if sensitiveNames[strings.ToLower(name)] {
			q.Set(name, redactedValue(name))
		}
	}
	clean.RawQuery = q.Encode()
	return clean.String()
}

// Load reads a transcript from disk.
func Load(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transcript %s: %w", path, err)
	}
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing transcript %s: %w", path, err)
	}
	return &t, nil
}

// Save writes a transcript to disk, creating parent directories.
func (t *Transcript) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating transcript dir: %w", err)
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding transcript: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Body concatenates the data events into the full response body.
func (t *Transcript) Body() string {
	var sb strings.Builder
	for _, e := range t.Events {
		if e.Type == EventData {
			if s, ok := e.Payload.(string); ok {
				sb.WriteString(s)
			}
		}
	}
	return sb.String()
}
