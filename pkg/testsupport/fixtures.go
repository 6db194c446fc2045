// Package testsupport provides canned product pages, a scripted prompt
// driver, and an in-process backend for exercising the pipeline end to end.
package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/goliatone/go-orderflow/pkg/backend"
	"github.com/goliatone/go-orderflow/pkg/renderers/tui"
	"github.com/goliatone/go-orderflow/pkg/schema"
)

// ProductPage returns the fixture used across pipeline tests: a US Dollar
// buy page with a 2% + 0 fee, a rate of 1500, and two dynamic fields.
func ProductPage() backend.ProductPage {
	return backend.ProductPage{
		Product: backend.Product{
			ID:     "usd",
			Name:   "US Dollar",
			Code:   "USD",
			Symbol: "$",
		},
		Rate: decimal.NewFromInt(1500),
		Fee: backend.FeeInfo{
			Percent: decimal.NewFromInt(2),
			Fixed:   decimal.Zero,
		},
		Limits: backend.Limits{
			Min: decimal.NewFromInt(10),
			Max: decimal.NewFromInt(10000),
		},
		FormFields: []schema.FieldDefinition{
			{Label: "Sender's Name", Type: schema.FieldTypeText, Required: true},
			{Label: "Bank Name", Type: schema.FieldTypeText, Required: false},
		},
	}
}

// Server is an in-process stand-in for the orders API. Handlers can be
// swapped per test; the defaults accept PIN "1234" and succeed submissions.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	page    backend.ProductPage
	pin     string
	submits int

	failCount  int
	failStatus int
	failBody   string
}

// NewServer starts a fake backend serving the given product page.
func NewServer(t *testing.T, page backend.ProductPage) *Server {
	t.Helper()

	s := &Server{page: page, pin: "1234"}
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/product-page", s.handleProductPage)
	mux.HandleFunc("/verify-pin", s.handleVerifyPIN)
	mux.HandleFunc("/orders/submit", s.handleSubmit)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// SetPIN changes the PIN the fake accepts.
func (s *Server) SetPIN(pin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pin = pin
}

// FailSubmits makes the next n submissions answer with the given status and
// body before the fake goes back to succeeding.
func (s *Server) FailSubmits(n, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCount = n
	s.failStatus = status
	s.failBody = body
}

// Submits reports how many submission requests reached the fake.
func (s *Server) Submits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submits
}

func (s *Server) handleProductPage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	page := s.page
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"data": page})
}

func (s *Server) handleVerifyPIN(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	pin := s.pin
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"valid": r.URL.Query().Get("pin") == pin,
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.submits++
	n := s.submits
	var status int
	var body string
	if s.failCount > 0 {
		s.failCount--
		status = s.failStatus
		body = s.failBody
	}
	s.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Your order has been completed!",
		"data":    map[string]any{"reference": fmt.Sprintf("ref-%d", n)},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ScriptedDriver replays canned answers in order and records everything the
// walkthrough shows. It fails the test when the script runs dry.
type ScriptedDriver struct {
	t *testing.T

	mu        sync.Mutex
	inputs    []string
	passwords []string
	confirms  []bool

	Prompts  []string
	Messages []string
}

// NewScriptedDriver builds a driver bound to the test for fatal reporting.
func NewScriptedDriver(t *testing.T) *ScriptedDriver {
	t.Helper()
	return &ScriptedDriver{t: t}
}

// QueueInput appends answers for Input prompts.
func (d *ScriptedDriver) QueueInput(answers ...string) *ScriptedDriver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inputs = append(d.inputs, answers...)
	return d
}

// QueuePassword appends answers for Password prompts.
func (d *ScriptedDriver) QueuePassword(answers ...string) *ScriptedDriver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.passwords = append(d.passwords, answers...)
	return d
}

// QueueConfirm appends answers for Confirm prompts.
func (d *ScriptedDriver) QueueConfirm(answers ...bool) *ScriptedDriver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.confirms = append(d.confirms, answers...)
	return d
}

func (d *ScriptedDriver) Input(ctx context.Context, cfg tui.InputConfig) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Prompts = append(d.Prompts, cfg.Message)
	if len(d.inputs) == 0 {
		d.t.Fatalf("scripted driver: no input queued for %q", cfg.Message)
	}
	answer := d.inputs[0]
	d.inputs = d.inputs[1:]
	if cfg.Validator != nil {
		if err := cfg.Validator(answer); err != nil {
			return "", err
		}
	}
	return answer, nil
}

func (d *ScriptedDriver) Password(ctx context.Context, cfg tui.InputConfig) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Prompts = append(d.Prompts, cfg.Message)
	if len(d.passwords) == 0 {
		d.t.Fatalf("scripted driver: no password queued for %q", cfg.Message)
	}
	answer := d.passwords[0]
	d.passwords = d.passwords[1:]
	return answer, nil
}

func (d *ScriptedDriver) Confirm(ctx context.Context, cfg tui.ConfirmConfig) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Prompts = append(d.Prompts, cfg.Message)
	if len(d.confirms) == 0 {
		d.t.Fatalf("scripted driver: no confirm queued for %q", cfg.Message)
	}
	answer := d.confirms[0]
	d.confirms = d.confirms[1:]
	return answer, nil
}

func (d *ScriptedDriver) Info(ctx context.Context, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Messages = append(d.Messages, message)
	return nil
}
