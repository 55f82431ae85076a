package proxy

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const (
	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"

	// maxChunkLine bounds a chunk size line; longer lines end decoding.
	maxChunkLine = 4096
)

// ErrBodyTooLarge is returned by ReadBody when the body exceeds the limit.
var ErrBodyTooLarge = errors.New("request body too large")

// ReadBody reads the request body, enforcing limit bytes when limit is
// positive. A body that still carries chunked framing, which happens when
// an intermediary forwards the Transfer-Encoding header but not the
// decoded stream, is decoded with DecodeChunked.
//
// The body is closed.
func ReadBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	defer r.Body.Close()

	reader := io.Reader(r.Body)
	if limit > 0 {
		reader = io.LimitReader(r.Body, limit+1)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if limit > 0 && int64(len(body)) > limit {
		return nil, ErrBodyTooLarge
	}

	if hasChunkedFraming(r.Header) {
		body = DecodeChunked(body)
	}
	return body, nil
}

// hasChunkedFraming reports whether a Transfer-Encoding header naming
// chunked survived into the handler. net/http strips the header when it
// decodes the body itself.
func hasChunkedFraming(h http.Header) bool {
	for _, v := range h.Values("Transfer-Encoding") {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), "chunked") {
				return true
			}
		}
	}
	return false
}

// DecodeChunked decodes an HTTP/1.1 chunked body:
//
//	<hex size>[;ext]\r\n<data>\r\n ... 0\r\n[trailers]\r\n
//
// Decoding is lenient. A malformed size line or a truncated chunk ends
// decoding and whatever was decoded so far is returned. Trailers after
// the zero-size chunk are drained and discarded.
func DecodeChunked(raw []byte) []byte {
	br := bufio.NewReader(bytes.NewReader(raw))
	var out bytes.Buffer

	for {
		line, ok := readChunkLine(br)
		if !ok {
			return out.Bytes()
		}
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		size, err := strconv.ParseInt(strings.TrimSpace(line), 16, 64)
		if err != nil || size < 0 {
			return out.Bytes()
		}
		if size == 0 {
			drainTrailers(br)
			return out.Bytes()
		}

		n, err := io.CopyN(&out, br, size)
		if err != nil || n < size {
			return out.Bytes()
		}
		// Chunk data is followed by CRLF
		if _, ok := readChunkLine(br); !ok {
			return out.Bytes()
		}
	}
}

// readChunkLine reads one line without its CRLF or LF terminator.
func readChunkLine(br *bufio.Reader) (string, bool) {
	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			return sb.String(), sb.Len() > 0
		}
		if b == '\n' {
			return strings.TrimSuffix(sb.String(), "\r"), true
		}
		if sb.Len() >= maxChunkLine {
			return "", false
		}
		sb.WriteByte(b)
	}
}

func drainTrailers(br *bufio.Reader) {
	for {
		line, ok := readChunkLine(br)
		if !ok || line == "" {
			return
		}
	}
}
