// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the API client and the
// file materializer.
package httputil

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// ChunkSize is the buffer size used when streaming response bodies to disk.
const ChunkSize = 8 * 1024

// maxErrorBody bounds how much of a failed response body is kept for the
// error message.
const maxErrorBody = 512

// StatusError reports a response with a non-2xx status code.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// DecodeError reports a response body that was expected to be JSON but is not.
type DecodeError struct {
	URL    string
	Prefix string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response from %s: body is not valid JSON (starts with %q)", e.URL, e.Prefix)
}

// Do sends req and returns the response when the status is 2xx. Any other
// status is drained, closed, and returned as a *StatusError. There are no
// retries.
func Do(client *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return resp, nil
}

// ReadJSON reads and closes resp.Body and checks it holds a JSON document.
// An empty body (e.g. 204 No Content) is returned as nil without error.
func ReadJSON(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", resp.Request.URL, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(data) {
		prefix := string(data)
		if len(prefix) > 32 {
			prefix = prefix[:32]
		}
		return nil, &DecodeError{URL: resp.Request.URL.String(), Prefix: prefix}
	}
	return data, nil
}

// CopyChunked streams src to dst in ChunkSize pieces and returns the number
// of bytes written.
func CopyChunked(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	return io.CopyBuffer(onlyWriter{dst}, onlyReader{src}, buf)
}

// onlyReader and onlyWriter hide WriterTo and ReaderFrom so io.CopyBuffer
// always goes through the fixed-size buffer.
type onlyReader struct{ io.Reader }

type onlyWriter struct{ io.Writer }
