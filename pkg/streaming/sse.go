// Package streaming implements the streaming runtime: Server-Sent Events
// framing, the per-stream reader task, chunk accumulation, and terminal
// semantics.
package streaming

import (
	"bufio"
	"encoding/json"
	"io"
	"strconv"
	"strings"
)

// DoneSentinel is the literal data payload some vendors send to mark the
// end of a stream.
const DoneSentinel = "[DONE]"

// Event represents a single Server-Sent Event.
type Event struct {
	// Name is the event type (the "event:" field), e.g.
	// "content_block_delta"
	Name string

	// Data is the raw event data; repeated data lines are joined with
	// newlines
	Data string

	// ID is the optional event id
	ID string

	// Retry is the optional retry interval in milliseconds
	Retry int
}

// Object parses the event data as a JSON object. The second return is
// false when the data is not JSON or decodes to a non-object value
// (arrays, numbers, bare strings pass through as raw data).
func (e Event) Object() (map[string]interface{}, bool) {
	trimmed := strings.TrimSpace(e.Data)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// Done reports whether the event is the [DONE] sentinel.
func (e Event) Done() bool {
	return strings.TrimSpace(e.Data) == DoneSentinel
}

// Parser reassembles a byte stream into SSE events. Events are delimited
// by blank lines; incomplete trailing bytes are buffered across reads.
type Parser struct {
	scanner *bufio.Scanner
	err     error
}

// NewParser creates a parser reading from r.
func NewParser(r io.Reader) *Parser {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Parser{scanner: scanner}
}

// Next returns the next complete event, or io.EOF at end of stream.
// Whitespace-only trailers yield no event.
func (p *Parser) Next() (*Event, error) {
	if p.err != nil {
		return nil, p.err
	}

	event := &Event{}
	var dataLines []string
	sawField := false

	flush := func() *Event {
		event.Data = strings.Join(dataLines, "\n")
		return event
	}

	for p.scanner.Scan() {
		line := strings.TrimSuffix(p.scanner.Text(), "\r")

		// Blank line ends the event
		if line == "" {
			if sawField {
				return flush(), nil
			}
			continue
		}

		// Comment line
		if strings.HasPrefix(line, ":") {
			continue
		}

		field := line
		value := ""
		if idx := strings.Index(line, ":"); idx >= 0 {
			field = line[:idx]
			value = strings.TrimPrefix(line[idx+1:], " ")
		}

		switch field {
		case "event":
			event.Name = value
			sawField = true
		case "data":
			dataLines = append(dataLines, value)
			sawField = true
		case "id":
			event.ID = value
			sawField = true
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil {
				event.Retry = ms
			}
			sawField = true
		}
	}

	if err := p.scanner.Err(); err != nil {
		p.err = err
		return nil, err
	}

	// Trailing event without a final blank line
	if sawField {
		p.err = io.EOF
		return flush(), nil
	}

	p.err = io.EOF
	return nil, io.EOF
}
