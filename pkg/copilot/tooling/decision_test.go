package tooling

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"support-copilot-be/pkg/copilot/intent"
	"support-copilot-be/pkg/copilot/retrieval"
	"support-copilot-be/pkg/identity"
	"support-copilot-be/pkg/llm"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.response, f.err
}

type fakeEvidence struct {
	docs []retrieval.ScoredDocument
	err  error
}

func (f *fakeEvidence) Retrieve(ctx context.Context, query string, id identity.Identity) ([]retrieval.ScoredDocument, error) {
	return f.docs, f.err
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func mustIdentity(t *testing.T, tenant, role string) identity.Identity {
	t.Helper()
	id, err := identity.New(tenant, role)
	if err != nil {
		t.Fatalf("identity.New(%s, %s): %v", tenant, role, err)
	}
	return id
}

func newTestEngine(validatorLLM *fakeLLM) *Engine {
	validator := NewComplaintValidator(validatorLLM, &fakeEvidence{}, discardLogger())
	return NewEngine(validator, DefaultConfig(), discardLogger())
}

func TestDecideConfidenceFloorWins(t *testing.T) {
	e := newTestEngine(&fakeLLM{response: `{"valid": true, "confidence": 0.9}`})

	// Even an unambiguous complaint label stays untooled below the floor.
	result := intent.Result{Intent: intent.IntentComplaint, Confidence: 0.3}
	d := e.Decide(context.Background(), "I was charged twice", result, mustIdentity(t, "acme", "customer"))

	if d.Action != ActionNone {
		t.Errorf("action = %s, want none below the confidence floor", d.Action)
	}
	if d.Rationale == "" {
		t.Error("staying silent needs a user-visible rationale")
	}
}

func TestDecideValidComplaintCreatesTicket(t *testing.T) {
	e := newTestEngine(&fakeLLM{response: `{"valid": true, "confidence": 0.9, "rationale": "genuine billing issue"}`})

	result := intent.Result{Intent: intent.IntentComplaint, Confidence: 0.9}
	d := e.Decide(context.Background(), "I was charged twice this month", result, mustIdentity(t, "acme", "customer"))

	if d.Action != ActionCreateTicket || d.TicketType != TicketComplaint {
		t.Errorf("got %+v, want a complaint ticket", d)
	}
}

func TestDecideInvalidComplaintReturnsRationale(t *testing.T) {
	e := newTestEngine(&fakeLLM{response: `{"valid": false, "confidence": 0.8, "rationale": "this is a how-to question"}`})

	result := intent.Result{Intent: intent.IntentComplaint, Confidence: 0.9}
	d := e.Decide(context.Background(), "how do i update my billing address", result, mustIdentity(t, "acme", "customer"))

	if d.Action != ActionNone {
		t.Errorf("action = %s, want none for an invalid complaint", d.Action)
	}
	if d.Rationale != "this is a how-to question" {
		t.Errorf("rationale = %q, the validator's explanation must surface to the user", d.Rationale)
	}
}

func TestDecideServiceRequestAlwaysTickets(t *testing.T) {
	e := newTestEngine(&fakeLLM{})

	result := intent.Result{Intent: intent.IntentServiceRequest, Confidence: 0.8}
	d := e.Decide(context.Background(), "please help me recover my data", result, mustIdentity(t, "acme", "customer"))

	if d.Action != ActionCreateTicket || d.TicketType != TicketServiceRequest {
		t.Errorf("got %+v, want a service_request ticket", d)
	}
}

func TestDecideFeatureRequestRoleGate(t *testing.T) {
	tests := []struct {
		role       string
		wantAction Action
	}{
		{"associate", ActionCreateTicket},
		{"customer", ActionNone},
		{"vendor", ActionNone},
		{"leadership", ActionNone},
		{"hr", ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			e := newTestEngine(&fakeLLM{})
			result := intent.Result{Intent: intent.IntentFeatureRequest, Confidence: 0.9}
			d := e.Decide(context.Background(), "add CSV export", result, mustIdentity(t, "acme", tt.role))

			if d.Action != tt.wantAction {
				t.Errorf("role %s: action = %s, want %s", tt.role, d.Action, tt.wantAction)
			}
			if tt.wantAction == ActionCreateTicket && d.TicketType != TicketFeatureRequest {
				t.Errorf("role %s: ticket type = %s, want feature_request", tt.role, d.TicketType)
			}
			if tt.wantAction == ActionNone && d.Rationale == "" {
				t.Errorf("role %s: a declined feature request needs a rationale", tt.role)
			}
		})
	}
}

func TestDecidePlainQueryDoesNothing(t *testing.T) {
	e := newTestEngine(&fakeLLM{})

	result := intent.Result{Intent: intent.IntentQuery, Confidence: 0.95}
	d := e.Decide(context.Background(), "what are your business hours", result, mustIdentity(t, "acme", "customer"))

	if d.Action != ActionNone {
		t.Errorf("action = %s, want none for a plain query", d.Action)
	}
}

func TestValidatorCombineRule(t *testing.T) {
	id := mustIdentity(t, "acme", "customer")

	t.Run("pattern and model both reject", func(t *testing.T) {
		v := NewComplaintValidator(&fakeLLM{response: `{"valid": false, "confidence": 0.8}`}, &fakeEvidence{}, discardLogger())
		got := v.Validate(context.Background(), "how do i reset my password", id)
		if got.Valid {
			t.Error("both checks rejecting must invalidate the complaint")
		}
		if got.Rationale == "" {
			t.Error("invalid complaints need a user-readable rationale")
		}
	})

	t.Run("grievance phrasing overrides model rejection", func(t *testing.T) {
		v := NewComplaintValidator(&fakeLLM{response: `{"valid": false, "confidence": 0.8}`}, &fakeEvidence{}, discardLogger())
		got := v.Validate(context.Background(), "I was charged twice", id)
		if !got.Valid {
			t.Error("a grievance indicator must keep the complaint valid even if the model disagrees")
		}
	})

	t.Run("model acceptance overrides pattern rejection", func(t *testing.T) {
		v := NewComplaintValidator(&fakeLLM{response: `{"valid": true, "confidence": 0.7}`}, &fakeEvidence{}, discardLogger())
		got := v.Validate(context.Background(), "how do i get my money back after the mixup", id)
		if !got.Valid {
			t.Error("model acceptance must keep the complaint valid")
		}
	})
}

func TestValidatorFailuresDefaultToValid(t *testing.T) {
	id := mustIdentity(t, "acme", "customer")

	t.Run("retrieval failure", func(t *testing.T) {
		v := NewComplaintValidator(&fakeLLM{}, &fakeEvidence{err: errors.New("store down")}, discardLogger())
		got := v.Validate(context.Background(), "how do i complain", id)
		if !got.Valid || got.Confidence != 0.5 {
			t.Errorf("got %+v, infrastructure trouble must never drop a complaint", got)
		}
	})

	t.Run("model failure", func(t *testing.T) {
		v := NewComplaintValidator(&fakeLLM{err: errors.New("model down")}, &fakeEvidence{}, discardLogger())
		got := v.Validate(context.Background(), "how do i complain", id)
		if !got.Valid || got.Confidence != 0.5 {
			t.Errorf("got %+v, infrastructure trouble must never drop a complaint", got)
		}
	})
}

func TestPatternCheck(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"I was charged twice", true},
		{"the order never received", true},
		{"how do i reset my password", false},
		{"what is your refund policy", false},
		{"the app is broken", true},
		{"something unrelated entirely", true},
	}

	for _, tt := range tests {
		if got := patternCheck(tt.query); got != tt.want {
			t.Errorf("patternCheck(%q) = %t, want %t", tt.query, got, tt.want)
		}
	}
}
