package payload

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-orderflow/pkg/schema"
)

const testBoundary = "orderflowtestboundary"

func testFields() []schema.FieldDefinition {
	return []schema.FieldDefinition{
		{Label: "Sender's Name", Type: schema.FieldTypeText, Required: true},
		{Label: "Date/Time of Transfer", Type: schema.FieldTypeDate, Required: true},
		{Label: "Transaction Screenshot", Type: schema.FieldTypeFile, Required: true},
	}
}

func decodeParts(t *testing.T, p *Payload) map[string]string {
	t.Helper()
	_, params, err := mime.ParseMediaType(p.ContentType)
	if err != nil {
		t.Fatalf("parse content type: %v", err)
	}
	reader := multipart.NewReader(bytes.NewReader(p.Body), params["boundary"])
	parts := make(map[string]string)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		content, err := io.ReadAll(part)
		if err != nil {
			t.Fatalf("read part: %v", err)
		}
		parts[part.FormName()] = string(content)
	}
	return parts
}

func TestEncode_LabelsAreWireKeys(t *testing.T) {
	// Values live under sanitized identifiers; the wire sees original labels.
	enc := NewEncoder(WithBoundary(testBoundary))
	p, err := enc.Encode(context.Background(), Input{
		ProductID: "usd",
		Amount:    "50",
		Fields:    testFields()[:2],
		Values: map[string]any{
			"Sender_s_Name":         "Ada Obi",
			"Date_Time_of_Transfer": "2026-03-01T10:00:00Z",
		},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	parts := decodeParts(t, p)
	if parts["product_id"] != "usd" || parts["amount"] != "50" {
		t.Errorf("top-level entries missing: %v", parts)
	}
	if parts["data[Sender's Name]"] != "Ada Obi" {
		t.Errorf("label key missing: %v", parts)
	}
	if _, ok := parts["data[Sender_s_Name]"]; ok {
		t.Error("sanitized identifier leaked onto the wire")
	}
}

func TestEncode_Deterministic(t *testing.T) {
	enc := NewEncoder(WithBoundary(testBoundary))
	in := Input{
		ProductID: "usd",
		Amount:    "50",
		Fields:    testFields()[:2],
		Values: map[string]any{
			"Sender_s_Name":         "Ada Obi",
			"Date_Time_of_Transfer": "2026-03-01T10:00:00Z",
		},
	}
	first, err := enc.Encode(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	second, err := enc.Encode(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Body, second.Body) {
		t.Error("same input produced different bodies")
	}
}

func TestEncode_NormalizesInstants(t *testing.T) {
	enc := NewEncoder(WithBoundary(testBoundary))
	cases := []struct {
		raw  string
		want string
	}{
		{"2026-03-01T10:00:00+01:00", "2026-03-01T09:00:00Z"},
		{"2026-03-01", "2026-03-01T00:00:00Z"},
		{"2026-03-01T10:00:00Z", "2026-03-01T10:00:00Z"},
	}
	for _, tc := range cases {
		p, err := enc.Encode(context.Background(), Input{
			ProductID: "usd",
			Amount:    "1",
			Fields:    []schema.FieldDefinition{{Label: "Transfer Date", Type: schema.FieldTypeDate, Required: true}},
			Values:    map[string]any{"Transfer_Date": tc.raw},
		})
		if err != nil {
			t.Fatalf("encode %q: %v", tc.raw, err)
		}
		parts := decodeParts(t, p)
		if parts["data[Transfer Date]"] != tc.want {
			t.Errorf("normalized %q = %q, want %q", tc.raw, parts["data[Transfer Date]"], tc.want)
		}
	}

	_, err := enc.Encode(context.Background(), Input{
		ProductID: "usd",
		Amount:    "1",
		Fields:    []schema.FieldDefinition{{Label: "Transfer Date", Type: schema.FieldTypeDate, Required: true}},
		Values:    map[string]any{"Transfer_Date": "next tuesday"},
	})
	if err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestEncode_ResolvesAttachment(t *testing.T) {
	dir := t.TempDir()
	shot := filepath.Join(dir, "shot.png")
	if err := os.WriteFile(shot, []byte("fake-png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	enc := NewEncoder(WithBoundary(testBoundary))
	p, err := enc.Encode(context.Background(), Input{
		ProductID: "usd",
		Amount:    "50",
		Fields:    testFields(),
		Values: map[string]any{
			"Sender_s_Name":          "Ada Obi",
			"Date_Time_of_Transfer":  "2026-03-01T10:00:00Z",
			"Transaction_Screenshot": shot,
		},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	_, params, err := mime.ParseMediaType(p.ContentType)
	if err != nil {
		t.Fatal(err)
	}
	reader := multipart.NewReader(bytes.NewReader(p.Body), params["boundary"])
	found := false
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if part.FormName() != "data[Transaction Screenshot]" {
			continue
		}
		found = true
		if part.FileName() != "shot.png" {
			t.Errorf("filename = %q, want shot.png", part.FileName())
		}
		if ct := part.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/png") {
			t.Errorf("content type = %q, want image/png", ct)
		}
		content, _ := io.ReadAll(part)
		if string(content) != "fake-png-bytes" {
			t.Errorf("content = %q", content)
		}
	}
	if !found {
		t.Fatal("attachment part missing")
	}
}

func TestEncode_RequiresProductAndAmount(t *testing.T) {
	enc := NewEncoder()
	if _, err := enc.Encode(context.Background(), Input{Amount: "5"}); err == nil {
		t.Error("expected error for missing product id")
	}
	if _, err := enc.Encode(context.Background(), Input{ProductID: "usd"}); err == nil {
		t.Error("expected error for missing amount")
	}
}

func TestOSResolver_FileURI(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "receipt.pdf")
	if err := os.WriteFile(doc, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}

	file, err := OSResolver{}.Resolve(context.Background(), "file://"+doc)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if file.Name != "receipt.pdf" {
		t.Errorf("name = %q", file.Name)
	}
	if file.ContentType != "application/pdf" {
		t.Errorf("content type = %q", file.ContentType)
	}
}
