// Package payload serializes an order draft into the outbound multipart
// request. Dynamic values are looked up by their sanitized identifiers but
// written under the original backend labels; the two namespaces never mix.
package payload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/goliatone/go-orderflow/pkg/schema"
)

// Payload is an encoded outbound order request body.
type Payload struct {
	ContentType string
	Body        []byte
}

// Input collects everything the encoder needs for one order.
type Input struct {
	ProductID string
	Amount    string
	Fields    []schema.FieldDefinition
	Values    map[string]any
}

// Option customises an Encoder.
type Option func(*Encoder)

// WithResolver overrides the attachment resolver (default OSResolver).
func WithResolver(resolver Resolver) Option {
	return func(e *Encoder) {
		if resolver != nil {
			e.resolver = resolver
		}
	}
}

// WithBoundary pins the multipart boundary. Payload bytes are already
// deterministic apart from the boundary; pinning it makes them byte-stable
// for golden comparisons.
func WithBoundary(boundary string) Option {
	return func(e *Encoder) {
		e.boundary = strings.TrimSpace(boundary)
	}
}

// Encoder builds deterministic multipart payloads: fields are written in
// definition order, date and time values are normalized to RFC 3339 UTC, and
// file handles are resolved to content, filename, and content type.
type Encoder struct {
	resolver Resolver
	boundary string
}

// NewEncoder constructs an Encoder with the given options.
func NewEncoder(options ...Option) *Encoder {
	e := &Encoder{resolver: OSResolver{}}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Encode serializes the input into one multipart body. The product identifier
// and amount are always present as top-level entries; every field definition
// contributes a data[<label>] entry keyed by the original label.
func (e *Encoder) Encode(ctx context.Context, in Input) (*Payload, error) {
	if strings.TrimSpace(in.ProductID) == "" {
		return nil, errors.New("payload: product id is required")
	}
	if strings.TrimSpace(in.Amount) == "" {
		return nil, errors.New("payload: amount is required")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if e.boundary != "" {
		if err := writer.SetBoundary(e.boundary); err != nil {
			return nil, fmt.Errorf("payload: set boundary: %w", err)
		}
	}

	if err := writer.WriteField("product_id", in.ProductID); err != nil {
		return nil, fmt.Errorf("payload: write product id: %w", err)
	}
	if err := writer.WriteField("amount", in.Amount); err != nil {
		return nil, fmt.Errorf("payload: write amount: %w", err)
	}

	for _, fd := range in.Fields {
		value, present := in.Values[fd.ID()]
		wireKey := "data[" + fd.Label + "]"

		if fd.Type == schema.FieldTypeFile {
			if !present || value == nil {
				continue
			}
			if err := e.writeAttachment(ctx, writer, wireKey, value); err != nil {
				return nil, err
			}
			continue
		}

		scalar, err := normalizeScalar(fd, value, present)
		if err != nil {
			return nil, err
		}
		if err := writer.WriteField(wireKey, scalar); err != nil {
			return nil, fmt.Errorf("payload: write %s: %w", wireKey, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("payload: close writer: %w", err)
	}

	return &Payload{
		ContentType: writer.FormDataContentType(),
		Body:        buf.Bytes(),
	}, nil
}

func (e *Encoder) writeAttachment(ctx context.Context, writer *multipart.Writer, wireKey string, value any) error {
	file, err := e.resolveFile(ctx, value)
	if err != nil {
		return err
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`,
		escapeQuotes(wireKey), escapeQuotes(file.Name)))
	header.Set("Content-Type", file.ContentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("payload: create attachment part: %w", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return fmt.Errorf("payload: write attachment: %w", err)
	}
	return nil
}

func (e *Encoder) resolveFile(ctx context.Context, value any) (File, error) {
	switch typed := value.(type) {
	case File:
		return typed, nil
	case *File:
		if typed == nil {
			return File{}, errors.New("payload: nil file value")
		}
		return *typed, nil
	case string:
		return e.resolver.Resolve(ctx, typed)
	default:
		return File{}, fmt.Errorf("payload: unsupported file value %T", value)
	}
}

func normalizeScalar(fd schema.FieldDefinition, value any, present bool) (string, error) {
	if !present || value == nil {
		return "", nil
	}

	switch typed := value.(type) {
	case string:
		if fd.Type == schema.FieldTypeDate || fd.Type == schema.FieldTypeTime {
			return normalizeInstant(fd, typed)
		}
		return typed, nil
	case time.Time:
		return typed.UTC().Format(time.RFC3339), nil
	default:
		return "", fmt.Errorf("payload: field %q holds unsupported value %T", fd.Label, value)
	}
}

// normalizeInstant pins date and time values to one wire serialization
// (RFC 3339 UTC) regardless of the locale-specific formatting the UI used.
func normalizeInstant(fd schema.FieldDefinition, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"15:04:05",
		"15:04",
	} {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC().Format(time.RFC3339), nil
		}
	}
	return "", fmt.Errorf("payload: field %q is not a recognized %s value: %q", fd.Label, fd.Type, raw)
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}
