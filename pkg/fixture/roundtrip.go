package fixture

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"
)

// Recorder is an http.RoundTripper that captures sanitized transcripts
// of every exchange passing through it.
type Recorder struct {
	// Transport performs the real exchange; http.DefaultTransport when
	// nil
	Transport http.RoundTripper

	// Provider and ModelSpec annotate recorded transcripts
	Provider  string
	ModelSpec string

	// Recorded collects one transcript per exchange, in order
	Recorded []*Transcript
}

// RoundTrip implements http.RoundTripper
func (r *Recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	transport := r.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	var reqBody []byte
	if req.Body != nil {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		reqBody = raw
		req.Body = io.NopCloser(bytes.NewReader(raw))
	}

	resp, err := transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(respBody))

	events := []Event{
		{Type: EventStatus, Payload: resp.StatusCode},
		{Type: EventHeaders, Payload: RedactHeaders(resp.Header)},
	}
	for _, frame := range dataEvents(resp.Header, respBody) {
		events = append(events, Event{Type: EventData, Payload: frame})
	}
	events = append(events, Event{Type: EventDone})

	t := &Transcript{
		Provider:   r.Provider,
		ModelSpec:  r.ModelSpec,
		CapturedAt: time.Now().UTC(),
		Request: RequestInfo{
			Method:        req.Method,
			URL:           RedactURL(req.URL),
			Headers:       RedactHeaders(req.Header),
			CanonicalJSON: reqBody,
		},
		Response: ResponseMeta{
			Status:  resp.StatusCode,
			Headers: RedactHeaders(resp.Header),
		},
		Events: events,
	}
	r.Recorded = append(r.Recorded, t)

	return resp, nil
}

// dataEvents chops a captured body into data-event payloads. Streaming
// responses (text/event-stream) record one data event per SSE frame so
// the transcript mirrors the wire; everything else records a single
// data event.
func dataEvents(header http.Header, body []byte) []string {
	contentType := header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "text/event-stream") {
		return []string{string(body)}
	}
	return splitSSEFrames(string(body))
}

// splitSSEFrames splits on the blank lines that delimit SSE events,
// keeping each frame's terminator so replay concatenates back to the
// original body. A trailing partial frame is kept as-is.
func splitSSEFrames(body string) []string {
	var frames []string
	rest := body
	for rest != "" {
		lf := strings.Index(rest, "\n\n")
		crlf := strings.Index(rest, "\r\n\r\n")
		var cut int
		switch {
		case lf < 0 && crlf < 0:
			frames = append(frames, rest)
			return frames
		case crlf >= 0 && (lf < 0 || crlf < lf):
			cut = crlf + 4
		default:
			cut = lf + 2
		}
		frames = append(frames, rest[:cut])
		rest = rest[cut:]
	}
	return frames
}

// Replayer is an http.RoundTripper that serves recorded transcripts
// deterministically, one per request in order. Replay is restartable:
// Reset rewinds to the first transcript.
type Replayer struct {
	Transcripts []*Transcript
	next        int
}

// NewReplayer creates a replayer over the given transcripts.
func NewReplayer(transcripts ...*Transcript) *Replayer {
	return &Replayer{Transcripts: transcripts}
}

// Reset rewinds replay to the first transcript.
func (r *Replayer) Reset() {
	r.next = 0
}

// RoundTrip implements http.RoundTripper
func (r *Replayer) RoundTrip(req *http.Request) (*http.Response, error) {
	if r.next >= len(r.Transcripts) {
		return &http.Response{
			StatusCode: http.StatusGone,
			Status:     "410 transcript exhausted",
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Header:     http.Header{},
			Request:    req,
		}, nil
	}
	t := r.Transcripts[r.next]
	r.next++

	header := http.Header{}
	for k, v := range t.Response.Headers {
		header.Set(k, v)
	}
	return &http.Response{
		StatusCode: t.Response.Status,
		Body:       io.NopCloser(bytes.NewReader([]byte(t.Body()))),
		Header:     header,
		Request:    req,
	}, nil
}

// Client returns an *http.Client replaying the transcripts.
func (r *Replayer) Client() *http.Client {
	return &http.Client{Transport: r}
}
