package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Framing is the message delimiting convention on the byte stream.
type Framing int

const (
	// FramingContentLength frames messages with a Content-Length header
	// block. This is the default for writes until a read detects otherwise.
	FramingContentLength Framing = iota
	// FramingLine frames messages as one JSON document per line (NDJSON).
	FramingLine
)

func (f Framing) String() string {
	if f == FramingLine {
		return "line"
	}
	return "content-length"
}

// Recoverable framing errors. The read loop drops the message and continues;
// only io.EOF (and errors wrapping io.ErrUnexpectedEOF, which imply the
// stream is gone) end a session.
var (
	ErrMissingLength = errors.New("missing or invalid content-length header")
	ErrBodyTooLarge  = errors.New("declared content-length exceeds limit")
	ErrInvalidJSON   = errors.New("message body is not valid JSON")
)

const maxBodyBytes = 16 << 20

// recoverable reports whether a read error spoiled a single message rather
// than the stream. Anything else (a closed descriptor, a broken pipe) means
// further reads cannot succeed and the session should end.
func recoverable(err error) bool {
	return errors.Is(err, ErrMissingLength) ||
		errors.Is(err, ErrBodyTooLarge) ||
		errors.Is(err, ErrInvalidJSON) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// Transport reads and writes discrete JSON messages over a duplex byte
// stream. The first successful read detects which framing the peer uses and
// every subsequent write replies in kind. One Transport per session; the
// mode field has a single writer (the read path) and a single reader (the
// write path), safe without locking under the one-request-at-a-time model.
type Transport struct {
	r       *bufio.Reader
	w       io.Writer
	mode    Framing
	modeSet bool
	maxBody int
}

// NewTransport wraps a read/write stream pair, typically stdin/stdout.
func NewTransport(r io.Reader, w io.Writer) *Transport {
	return &Transport{r: bufio.NewReader(r), w: w, maxBody: maxBodyBytes}
}

// NewClientTransport is NewTransport with the write framing pinned up front,
// for harness clients that choose the convention instead of detecting it.
func NewClientTransport(r io.Reader, w io.Writer, f Framing) *Transport {
	t := NewTransport(r, w)
	t.mode = f
	t.modeSet = true
	return t
}

// Mode returns the framing used for writes.
func (t *Transport) Mode() Framing { return t.mode }

// ReadMessage reads exactly one message body from the stream, auto-detecting
// the peer's framing. Stray blank lines between messages are skipped rather
// than failing the session. Returns io.EOF at end of stream; any other error
// means one message was dropped and the caller should keep reading.
func (t *Transport) ReadMessage() ([]byte, error) {
	for {
		raw, err := t.r.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				// A final unterminated JSON line still counts as a message;
				// a header fragment can never complete once the stream ends.
				line := strings.TrimSpace(string(raw))
				if line == "" {
					return nil, io.EOF
				}
				if line[0] == '{' || line[0] == '[' {
					return t.finishLine(line)
				}
				return nil, fmt.Errorf("stream ended inside header block: %w", io.ErrUnexpectedEOF)
			}
			return nil, err
		}

		line := strings.TrimSpace(string(raw))
		if line == "" {
			continue
		}

		if line[0] == '{' || line[0] == '[' {
			return t.finishLine(line)
		}
		return t.readFramedBody(line)
	}
}

// finishLine completes a line-delimited read: the whole line is the body.
func (t *Transport) finishLine(line string) ([]byte, error) {
	t.setMode(FramingLine)
	body := []byte(line)
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %.60s", ErrInvalidJSON, line)
	}
	return body, nil
}

// readFramedBody completes a Content-Length framed read. firstLine is the
// first header of the block; remaining headers are consumed until the blank
// separator, then exactly content-length bytes of body are read.
func (t *Transport) readFramedBody(firstLine string) ([]byte, error) {
	t.setMode(FramingContentLength)

	headers := map[string]string{}
	line := firstLine
	for {
		if key, val, ok := strings.Cut(line, ":"); ok {
			headers[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(val)
		}

		raw, err := t.r.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("stream ended inside header block: %w", io.ErrUnexpectedEOF)
			}
			return nil, err
		}
		line = strings.TrimSpace(string(raw))
		if line == "" {
			break
		}
	}

	length, err := strconv.Atoi(headers["content-length"])
	if err != nil || length <= 0 {
		return nil, ErrMissingLength
	}
	if length > t.maxBody {
		// Drain the declared body so the next read starts at a message
		// boundary instead of somewhere inside this one.
		_, _ = io.CopyN(io.Discard, t.r, int64(length))
		return nil, fmt.Errorf("%w: %d", ErrBodyTooLarge, length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(t.r, body); err != nil {
		// ReadFull reports io.ErrUnexpectedEOF on a short body; either way
		// the stream is unusable past this point.
		return nil, fmt.Errorf("truncated message body: %w", io.ErrUnexpectedEOF)
	}

	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %.60s", ErrInvalidJSON, body)
	}
	return body, nil
}

func (t *Transport) setMode(m Framing) {
	if !t.modeSet {
		t.mode = m
		t.modeSet = true
	}
}

// WriteMessage serializes v as compact JSON (HTML escaping off, so endpoint
// URLs stay readable) and emits it using whichever framing the last read
// detected. Output is flushed before returning; the peer must see each
// reply before the next read blocks.
func (t *Transport) WriteMessage(v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	body := bytes.TrimRight(buf.Bytes(), "\n")

	if t.mode == FramingContentLength {
		if _, err := fmt.Fprintf(t.w, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
			return err
		}
		if _, err := t.w.Write(body); err != nil {
			return err
		}
	} else {
		if _, err := t.w.Write(append(body, '\n')); err != nil {
			return err
		}
	}

	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
