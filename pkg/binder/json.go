package binder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// DefaultMaxJSONSize caps request bodies. Auth payloads are small.
const DefaultMaxJSONSize = 64 << 10

// JSON decodes the request body into v. The body must be a single JSON
// object with Content-Type application/json; unknown fields are rejected.
// String values are left untouched: credentials must reach the hasher as sent.
func JSON(r *http.Request, v any) error {
	return JSONLimit(r, v, DefaultMaxJSONSize)
}

// JSONLimit works like JSON with a custom size limit in bytes.
func JSONLimit(r *http.Request, v any, limit int64) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ErrMissingContentType
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("%w: %q", ErrUnsupportedMediaType, ct)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return errors.Join(ErrFailedToParseJSON, err)
	}
	if int64(len(body)) > limit {
		return ErrBodyTooLarge
	}
	if len(body) == 0 {
		return fmt.Errorf("%w: empty body", ErrFailedToParseJSON)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrFailedToParseJSON, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON object", ErrFailedToParseJSON)
	}
	return nil
}
