package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"support-copilot-be/pkg/copilot/decompose"
	"support-copilot-be/pkg/copilot/generate"
	"support-copilot-be/pkg/copilot/intent"
	"support-copilot-be/pkg/copilot/retrieval"
	"support-copilot-be/pkg/copilot/review"
	"support-copilot-be/pkg/copilot/tooling"
	"support-copilot-be/pkg/identity"
	"support-copilot-be/pkg/store"
)

// State tracks turn progress through the pipeline.
type State string

const (
	StateStart      State = "start"
	StateClassified State = "classified"
	StateDecomposed State = "decomposed"
	StateRetrieved  State = "retrieved"
	StateDrafted    State = "drafted"
	StateReviewed   State = "reviewed"
	StateDecided    State = "decided"
	StateCompleted  State = "completed"
	StateErrored    State = "errored"
)

// TicketRef is the user-visible handle for a ticket created during a turn.
type TicketRef struct {
	LocalID    string
	ExternalID string
	Status     string
}

// CreateTicketRequest carries everything the ticket workflow needs for one
// qualifying turn. TurnKey identifies the logical turn: a retry of the same
// turn carries the same key, a later turn never does, even for an identical
// query.
type CreateTicketRequest struct {
	Type      tooling.TicketType
	Identity  identity.Identity
	SessionID string
	TurnKey   string
	Query     string
	Answer    string
	Urgency   string
	Sentiment string
}

// TicketCreator is implemented by the ticket workflow. It must be idempotent
// per turn: retrying with the same local id never duplicates external tickets.
type TicketCreator interface {
	Create(ctx context.Context, req CreateTicketRequest) (TicketRef, error)
}

// Classifier, Decomposer, Retriever, Generator and Reviewer mirror the
// concrete pipeline components so tests can substitute fixtures.
type Classifier interface {
	Classify(ctx context.Context, query string, history []store.Turn) intent.Result
}

type Decomposer interface {
	MaybeDecompose(ctx context.Context, query string) []decompose.SubQuery
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, id identity.Identity) ([]retrieval.ScoredDocument, error)
}

type Generator interface {
	Generate(ctx context.Context, query string, docs []retrieval.ScoredDocument, history []store.Turn) (generate.Draft, error)
	Regenerate(ctx context.Context, query string, docs []retrieval.ScoredDocument, history []store.Turn, reviewNotes string, attempt int) (generate.Draft, error)
}

type Reviewer interface {
	Review(ctx context.Context, query, answer string, docs []retrieval.ScoredDocument) review.Verdict
}

type Decider interface {
	Decide(ctx context.Context, query string, intentResult intent.Result, id identity.Identity) tooling.Decision
}

// TurnResult is the final outcome of one orchestrated turn.
type TurnResult struct {
	Answer            string
	Sources           []string
	Intent            intent.Result
	Ticket            *TicketRef
	DecisionRationale string
	Unverified        bool
	ReducedConfidence bool
	State             State
	Attempts          int
}

// Config bounds the review loop and context size.
type Config struct {
	MaxReviewRetries int
	MaxContextDocs   int
	HistoryWindow    int
}

func DefaultConfig() Config {
	return Config{MaxReviewRetries: 2, MaxContextDocs: 8, HistoryWindow: 6}
}

// Orchestrator sequences the pipeline per turn and serializes turns within a
// session, since turn N's history feeds turn N+1.
type Orchestrator struct {
	classifier Classifier
	decomposer Decomposer
	retriever  Retriever
	generator  Generator
	reviewer   Reviewer
	decider    Decider
	tickets    TicketCreator
	cfg        Config
	logger     *log.Logger

	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

func New(
	classifier Classifier,
	decomposer Decomposer,
	retriever Retriever,
	generator Generator,
	reviewer Reviewer,
	decider Decider,
	tickets TicketCreator,
	cfg Config,
	logger *log.Logger,
) *Orchestrator {
	if cfg.MaxReviewRetries < 0 {
		cfg.MaxReviewRetries = DefaultConfig().MaxReviewRetries
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultConfig().HistoryWindow
	}
	return &Orchestrator{
		classifier:   classifier,
		decomposer:   decomposer,
		retriever:    retriever,
		generator:    generator,
		reviewer:     reviewer,
		decider:      decider,
		tickets:      tickets,
		cfg:          cfg,
		logger:       logger,
		sessionLocks: make(map[string]*sync.Mutex),
	}
}

func (o *Orchestrator) lockFor(sessionID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		o.sessionLocks[sessionID] = lock
	}
	return lock
}

// ReleaseSession drops the per-session lock when a session is deleted.
func (o *Orchestrator) ReleaseSession(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.sessionLocks, sessionID)
}

// HandleTurn runs the full pipeline for one query within a session. Identity
// failure is the only hard error; every other component failure degrades. The
// session's turn history is appended on completion.
func (o *Orchestrator) HandleTurn(ctx context.Context, session *store.Session, query string) (TurnResult, error) {
	lock := o.lockFor(session.ID)
	lock.Lock()
	defer lock.Unlock()

	state := StateStart

	if err := session.Identity.Validate(); err != nil {
		o.logger.Printf("[ERROR] Turn aborted, identity invalid: %v", err)
		return TurnResult{State: StateErrored}, err
	}

	history := session.HistoryWindow(o.cfg.HistoryWindow)

	// Start -> Classified
	intentResult := o.classifier.Classify(ctx, query, history)
	state = StateClassified
	o.logger.Printf("[STATE] %s intent=%s confidence=%.2f", state, intentResult.Intent, intentResult.Confidence)

	if err := ctx.Err(); err != nil {
		return TurnResult{State: state}, err
	}

	// Classified -> (Decomposed)
	subQueries := o.decomposer.MaybeDecompose(ctx, query)
	if len(subQueries) > 1 {
		state = StateDecomposed
		o.logger.Printf("[STATE] %s subqueries=%d", state, len(subQueries))
	}

	// -> Retrieved. Sub-query retrievals run concurrently but land in an
	// indexed slice so context order follows sub-query order.
	docs, reducedConfidence := o.retrieveAll(ctx, subQueries, session.Identity)
	state = StateRetrieved
	o.logger.Printf("[STATE] %s docs=%d degraded=%t", state, len(docs), reducedConfidence)

	if err := ctx.Err(); err != nil {
		return TurnResult{State: state}, err
	}

	// Retrieved -> Drafted -> Reviewed loop.
	draft, verdict, attempts, unverified := o.draftAndReview(ctx, query, docs, history)
	state = StateReviewed
	o.logger.Printf("[STATE] %s attempts=%d pass=%t forced=%t", state, attempts, verdict.Approved, unverified)

	if err := ctx.Err(); err != nil {
		return TurnResult{State: state}, err
	}

	// Reviewed -> Decided
	decision := o.decider.Decide(ctx, query, intentResult, session.Identity)
	state = StateDecided
	o.logger.Printf("[STATE] %s action=%s type=%s", state, decision.Action, decision.TicketType)

	result := TurnResult{
		Answer:            draft.Answer,
		Sources:           draft.Sources,
		Intent:            intentResult,
		DecisionRationale: decision.Rationale,
		Unverified:        unverified,
		ReducedConfidence: reducedConfidence || !draft.Grounded,
		Attempts:          attempts,
	}

	// Decided -> Completed, via the ticket workflow when applicable.
	if decision.Action == tooling.ActionCreateTicket {
		ref, err := o.tickets.Create(ctx, CreateTicketRequest{
			Type:      decision.TicketType,
			Identity:  session.Identity,
			SessionID: session.ID,
			TurnKey:   turnKey(session.ID, len(session.Turns), query),
			Query:     query,
			Answer:    draft.Answer,
			Urgency:   intentResult.Urgency,
			Sentiment: intentResult.Sentiment,
		})
		if err != nil {
			// The workflow already degrades external failures to a
			// local-only ticket, so an error here is a store failure.
			o.logger.Printf("[ERROR] Ticket workflow failed: %v", err)
			result.DecisionRationale = "your issue was noted but ticket creation failed; please retry or contact support directly"
		} else {
			result.Ticket = &ref
		}
	}

	// A cancellation after ticket creation keeps the ticket (durable side
	// effect) but suppresses the user-visible response.
	if err := ctx.Err(); err != nil {
		return TurnResult{State: state, Ticket: result.Ticket}, err
	}

	state = StateCompleted
	result.State = state

	turn := store.Turn{
		Query:   query,
		Intent:  string(intentResult.Intent),
		Answer:  draft.Answer,
		Sources: draft.Sources,
	}
	if result.Ticket != nil {
		turn.TicketID = result.Ticket.LocalID
	}
	session.AppendTurn(turn)

	o.logger.Printf("[STATE] %s session=%s", state, session.ID)
	return result, nil
}

// retrieveAll issues one retrieval per sub-query concurrently and reassembles
// the results in sub-query order. An unavailable store yields an empty context
// and a reduced-confidence flag instead of an error.
func (o *Orchestrator) retrieveAll(ctx context.Context, subQueries []decompose.SubQuery, id identity.Identity) ([]retrieval.ScoredDocument, bool) {
	perQuery := make([][]retrieval.ScoredDocument, len(subQueries))
	degraded := false
	var degradedMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, sq := range subQueries {
		g.Go(func() error {
			docs, err := o.retriever.Retrieve(gctx, sq.Text, id)
			if err != nil {
				if !errors.Is(err, retrieval.ErrUnavailable) {
					o.logger.Printf("[WARN] Retrieval for sub-query %d failed: %v", i, err)
				}
				degradedMu.Lock()
				degraded = true
				degradedMu.Unlock()
				return nil
			}
			perQuery[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		degraded = true
	}

	return generate.MergeContexts(perQuery, o.cfg.MaxContextDocs), degraded
}

// draftAndReview runs the bounded generate/review loop. After MaxReviewRetries
// failed reviews the best-scoring draft so far is accepted and flagged
// unverified. An empty model response gets one extra regeneration before the
// generic fallback answer is used.
func (o *Orchestrator) draftAndReview(ctx context.Context, query string, docs []retrieval.ScoredDocument, history []store.Turn) (generate.Draft, review.Verdict, int, bool) {
	var (
		bestDraft   generate.Draft
		bestVerdict review.Verdict
		bestScore   = -1.0
	)

	attempt := 0
	notes := ""
	emptyRetried := false

	for attempt <= o.cfg.MaxReviewRetries {
		attempt++

		var draft generate.Draft
		var err error
		if attempt == 1 {
			draft, err = o.generator.Generate(ctx, query, docs, history)
		} else {
			draft, err = o.generator.Regenerate(ctx, query, docs, history, notes, attempt)
		}
		if err != nil {
			if !emptyRetried {
				emptyRetried = true
				o.logger.Printf("[WARN] Generation failed, retrying once: %v", err)
				draft, err = o.generator.Regenerate(ctx, query, docs, history, notes, attempt)
			}
			if err != nil {
				o.logger.Printf("[ERROR] Generation failed twice, using fallback answer: %v", err)
				draft = generate.Draft{Answer: fallbackAnswer(), Attempt: attempt}
				return draft, review.Verdict{Notes: "fallback answer, generation failed"}, attempt, true
			}
		}

		verdict := o.reviewer.Review(ctx, query, draft.Answer, docs)
		score := verdict.Faithfulness + verdict.Completeness + verdict.Clarity
		if score > bestScore {
			bestScore = score
			bestDraft = draft
			bestVerdict = verdict
		}

		if verdict.Approved {
			return draft, verdict, attempt, false
		}
		notes = verdict.Notes
		if notes == "" {
			notes = "the previous draft did not meet quality thresholds"
		}
		o.logger.Printf("[REVIEW] attempt %d failed, notes: %s", attempt, notes)
	}

	o.logger.Printf("[REVIEW] retry ceiling reached after %d attempts, forcing best draft as unverified", attempt)
	return bestDraft, bestVerdict, attempt, true
}

// turnKey derives the idempotency key for one logical turn from the session,
// the turn's position in the history, and the query. A retried turn has not
// been appended yet, so it lands on the same position and reproduces the key;
// a later turn repeating the query sits at a new position and gets a new one.
func turnKey(sessionID string, turnIndex int, query string) string {
	sum := fnv.New32a()
	sum.Write([]byte(query))
	return fmt.Sprintf("%s:%d:%08x", sessionID, turnIndex, sum.Sum32())
}

// fallbackAnswer keeps wording in one place for tests.
func fallbackAnswer() string {
	return "I couldn't produce a reliable answer for this question right now. Please rephrase, or contact support directly."
}
