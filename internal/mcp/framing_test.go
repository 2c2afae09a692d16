package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func framedMessage(body string) string {
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

func TestReadLineDelimited(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	tr := NewTransport(in, &bytes.Buffer{})

	body, err := tr.ReadMessage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(body), `"method":"ping"`) {
		t.Errorf("unexpected body: %s", body)
	}
	if tr.Mode() != FramingLine {
		t.Errorf("expected line framing, got %v", tr.Mode())
	}
}

func TestReadContentLength(t *testing.T) {
	msg := `{"jsonrpc":"2.0","id":2,"method":"ping"}`
	in := strings.NewReader(framedMessage(msg))
	tr := NewTransport(in, &bytes.Buffer{})

	body, err := tr.ReadMessage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != msg {
		t.Errorf("expected %q, got %q", msg, body)
	}
	if tr.Mode() != FramingContentLength {
		t.Errorf("expected content-length framing, got %v", tr.Mode())
	}
}

func TestHeaderNameCaseInsensitive(t *testing.T) {
	msg := `{"id":3}`
	in := strings.NewReader(fmt.Sprintf("CONTENT-LENGTH: %d\r\n\r\n%s", len(msg), msg))
	tr := NewTransport(in, &bytes.Buffer{})

	body, err := tr.ReadMessage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != msg {
		t.Errorf("expected %q, got %q", msg, body)
	}
}

func TestSkipsStrayBlankLines(t *testing.T) {
	in := strings.NewReader("\n\r\n" + `{"id":4}` + "\n")
	tr := NewTransport(in, &bytes.Buffer{})

	body, err := tr.ReadMessage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"id":4}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestEndOfStream(t *testing.T) {
	tr := NewTransport(strings.NewReader(""), &bytes.Buffer{})
	if _, err := tr.ReadMessage(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestFinalUnterminatedLine(t *testing.T) {
	tr := NewTransport(strings.NewReader(`{"id":5}`), &bytes.Buffer{})
	body, err := tr.ReadMessage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"id":5}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestMissingContentLength(t *testing.T) {
	in := strings.NewReader("Content-Type: application/json\r\n\r\n{}")
	tr := NewTransport(in, &bytes.Buffer{})
	if _, err := tr.ReadMessage(); !errors.Is(err, ErrMissingLength) {
		t.Errorf("expected ErrMissingLength, got %v", err)
	}
}

func TestNonPositiveContentLength(t *testing.T) {
	in := strings.NewReader("Content-Length: 0\r\n\r\n")
	tr := NewTransport(in, &bytes.Buffer{})
	if _, err := tr.ReadMessage(); !errors.Is(err, ErrMissingLength) {
		t.Errorf("expected ErrMissingLength, got %v", err)
	}
}

func TestTruncatedBody(t *testing.T) {
	in := strings.NewReader("Content-Length: 500\r\n\r\n{\"id\":6}")
	tr := NewTransport(in, &bytes.Buffer{})
	_, err := tr.ReadMessage()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected unexpected-EOF error, got %v", err)
	}
}

func TestStreamEndsInsideHeaders(t *testing.T) {
	in := strings.NewReader("Content-Length: 10\r\n")
	tr := NewTransport(in, &bytes.Buffer{})
	if _, err := tr.ReadMessage(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected unexpected-EOF error, got %v", err)
	}
}

func TestInvalidJSONLine(t *testing.T) {
	in := strings.NewReader("{not json}\n" + `{"id":7}` + "\n")
	tr := NewTransport(in, &bytes.Buffer{})

	if _, err := tr.ReadMessage(); !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("expected ErrInvalidJSON, got %v", err)
	}

	// The session survives a dropped message.
	body, err := tr.ReadMessage()
	if err != nil {
		t.Fatalf("unexpected error after dropped message: %v", err)
	}
	if string(body) != `{"id":7}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestWriteDefaultsToContentLength(t *testing.T) {
	var out bytes.Buffer
	tr := NewTransport(strings.NewReader(""), &out)

	if err := tr.WriteMessage(&Response{JSONRPC: "2.0", Result: "x"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "Content-Length: ") {
		t.Errorf("expected content-length framing by default, got %q", out.String())
	}
}

func TestWriteModeStickiness(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		prefix string
		suffix string
	}{
		{"content-length", framedMessage(`{"id":1}`), "Content-Length: ", ""},
		{"line", `{"id":1}` + "\n", "{", "\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			tr := NewTransport(strings.NewReader(tc.input), &out)

			if _, err := tr.ReadMessage(); err != nil {
				t.Fatalf("read failed: %v", err)
			}
			if err := tr.WriteMessage(&Response{JSONRPC: "2.0", Result: "x"}); err != nil {
				t.Fatalf("write failed: %v", err)
			}

			got := out.String()
			if !strings.HasPrefix(got, tc.prefix) {
				t.Errorf("expected prefix %q, got %q", tc.prefix, got)
			}
			if tc.suffix != "" && !strings.HasSuffix(got, tc.suffix) {
				t.Errorf("expected suffix %q, got %q", tc.suffix, got)
			}
		})
	}
}

func TestWriteContentLengthCountsBytes(t *testing.T) {
	var out bytes.Buffer
	tr := NewTransport(strings.NewReader(""), &out)

	if err := tr.WriteMessage(map[string]string{"k": "v"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	header, body, ok := strings.Cut(out.String(), "\r\n\r\n")
	if !ok {
		t.Fatalf("no header separator in %q", out.String())
	}
	var declared int
	if _, err := fmt.Sscanf(header, "Content-Length: %d", &declared); err != nil {
		t.Fatalf("bad header %q: %v", header, err)
	}
	if declared != len(body) {
		t.Errorf("declared %d bytes, body has %d", declared, len(body))
	}
}

func TestWriteKeepsURLsReadable(t *testing.T) {
	var out bytes.Buffer
	tr := NewClientTransport(strings.NewReader(""), &out, FramingLine)

	if err := tr.WriteMessage(map[string]string{"url": "https://example.org/sparql?a=1&b=2"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got := out.String()
	if strings.Contains(got, `\u0026`) || strings.Contains(got, `\/`) {
		t.Errorf("output escapes URL characters: %q", got)
	}
	if !strings.Contains(got, "https://example.org/sparql?a=1&b=2") {
		t.Errorf("expected the URL verbatim in output, got %q", got)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	cases := []Response{
		{JSONRPC: "2.0", ID: json.RawMessage(`1`), Result: map[string]any{"ok": true}},
		{JSONRPC: "2.0", ID: json.RawMessage(`"abc"`), Error: &Error{Code: MethodNotFound, Message: "method not found: x"}},
	}

	for _, resp := range cases {
		var out bytes.Buffer
		wr := NewClientTransport(strings.NewReader(""), &out, FramingLine)
		if err := wr.WriteMessage(&resp); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		rd := NewTransport(&out, &bytes.Buffer{})
		body, err := rd.ReadMessage()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}

		var decoded Response
		if err := json.Unmarshal(body, &decoded); err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		if string(decoded.ID) != string(resp.ID) {
			t.Errorf("id changed: %s != %s", decoded.ID, resp.ID)
		}
		if (decoded.Result != nil) == (decoded.Error != nil) {
			t.Error("decoded response must carry exactly one of result or error")
		}
		if resp.Error != nil {
			if decoded.Error == nil || decoded.Error.Code != resp.Error.Code || decoded.Error.Message != resp.Error.Message {
				t.Errorf("error not preserved: %+v", decoded.Error)
			}
		}
	}
}

func TestOversizedBodyResynchronizes(t *testing.T) {
	body := strings.Repeat("x", 64)
	in := framedMessage(body) + `{"jsonrpc":"2.0","id":8,"method":"ping"}` + "\n"
	tr := NewTransport(strings.NewReader(in), &bytes.Buffer{})
	tr.maxBody = 16

	if _, err := tr.ReadMessage(); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}

	next, err := tr.ReadMessage()
	if err != nil {
		t.Fatalf("stream should recover at the next message boundary: %v", err)
	}
	if !strings.Contains(string(next), `"id":8`) {
		t.Errorf("unexpected body after oversized message: %s", next)
	}
}
