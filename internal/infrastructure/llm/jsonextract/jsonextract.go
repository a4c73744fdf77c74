// Package jsonextract pulls a JSON payload out of free-form model output.
//
// Matching is greedy and purely positional: an object spans from the first '{'
// to the last '}' of the text, an array from the first '[' to the last ']'.
// Known failure modes, all reported as errors rather than guessed around:
//   - truncated output without the closing delimiter yields ErrNotFound;
//   - two separate JSON values in one reply are merged into one span and fail
//     to decode with ErrTrailingData or a syntax error;
//   - stray delimiters in surrounding prose widen the span and usually make it
//     undecodable.
package jsonextract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrNotFound     = errors.New("no json payload found")
	ErrTrailingData = errors.New("unexpected data after json payload")
)

// Object returns the greedy '{'...'}' span of text.
func Object(text string) (string, error) {
	return span(text, "{", "}")
}

// Array returns the greedy '['...']' span of text.
func Array(text string) (string, error) {
	return span(strings.TrimSpace(text), "[", "]")
}

// DecodeObject decodes the object span of text into out. Numbers are kept as
// json.Number when out holds interface values.
func DecodeObject(text string, out any) error {
	raw, err := Object(text)
	if err != nil {
		return err
	}
	return decode(raw, out)
}

// DecodeArray decodes the array span of text into out.
func DecodeArray(text string, out any) error {
	raw, err := Array(text)
	if err != nil {
		return err
	}
	return decode(raw, out)
}

func span(text, open, closing string) (string, error) {
	start := strings.Index(text, open)
	if start < 0 {
		return "", ErrNotFound
	}
	end := strings.LastIndex(text, closing)
	if end <= start {
		return "", ErrNotFound
	}
	return text[start : end+1], nil
}

func decode(raw string, out any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode json payload: %w", err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}
