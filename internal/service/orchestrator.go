// Package service runs the turn pipeline: guard the input, classify,
// dispatch to a capability handler, guard the output, commit the turn.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"helmsman/internal/adapter/llm"
	"helmsman/internal/adapter/vectorsearch"
	"helmsman/internal/domain"
	"helmsman/internal/guardrail"
	"helmsman/internal/router"
	"helmsman/internal/store"
	"helmsman/internal/tool"
)

// Pipeline states, in order. A turn either walks the full sequence or
// branches to stateRejected.
const (
	stateReceived    = "RECEIVED"
	stateInputCheck  = "INPUT_CHECK"
	stateRoute       = "ROUTE"
	stateDispatch    = "DISPATCH"
	stateOutputCheck = "OUTPUT_CHECK"
	stateResponded   = "RESPONDED"
	stateRejected    = "REJECTED"
)

// Turn outcomes as reported to metrics.
const (
	outcomeResponded   = "responded"
	outcomeRejected    = "rejected"
	outcomeLoopWarning = "loop_warning"
)

const (
	msgStoreFailure  = "Sorry, something went wrong while handling your request. Please try again in a moment."
	msgSummarizeHint = "This conversation is getting long. Consider clearing the session to start fresh."
)

// Orchestrator drives one query through the pipeline. Turns within a
// session are strictly serialized; different sessions run concurrently.
type Orchestrator struct {
	store        store.Store
	input        *guardrail.Input
	output       *guardrail.Output
	conversation *guardrail.Conversation
	router       *router.Router
	registry     *tool.Registry
	provider     llm.Provider
	index        vectorsearch.Searcher
	logger       *zap.Logger
	metrics      *Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wires the pipeline. index may be nil when no vector index is
// deployed; Health then reports it as unavailable.
func New(st store.Store, input *guardrail.Input, output *guardrail.Output, conversation *guardrail.Conversation, rt *router.Router, registry *tool.Registry, provider llm.Provider, index vectorsearch.Searcher, logger *zap.Logger, metrics *Metrics) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:        st,
		input:        input,
		output:       output,
		conversation: conversation,
		router:       rt,
		registry:     registry,
		provider:     provider,
		index:        index,
		logger:       logger,
		metrics:      metrics,
		locks:        make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing turns for one session.
func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[sessionID] = lock
	}
	return lock
}

// Submit runs one query through the pipeline. It never returns an error:
// every failure mode resolves to a well-formed response.
func (o *Orchestrator) Submit(ctx context.Context, req domain.SubmitRequest) domain.SubmitResponse {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = time.Now().UTC()
	}

	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	log := o.logger.With(zap.String("session_id", sessionID))
	log.Debug("turn received", zap.String("state", stateReceived))

	sess, err := o.store.GetOrCreate(ctx, sessionID)
	if err != nil {
		log.Error("session load failed", zap.Error(err))
		return domain.SubmitResponse{Success: false, Response: msgStoreFailure, SessionID: sessionID}
	}

	// INPUT_CHECK
	query := req.Message
	verdict := o.input.Check(ctx, query)
	o.metrics.countViolations(violationLabels(verdict))
	switch verdict.Outcome {
	case domain.OutcomeReject:
		log.Info("turn rejected",
			zap.String("state", stateInputCheck),
			zap.Strings("violations", violationLabels(verdict)),
		)
		resp := domain.SubmitResponse{
			Success:   false,
			Response:  verdict.Message,
			SessionID: sessionID,
			Violation: firstViolation(verdict),
		}
		o.commit(ctx, sessionID, req.Message, resp.Response, domain.CategoryDirect, outcomeRejected, log)
		return resp
	case domain.OutcomeSanitized:
		query = verdict.Sanitized
	}

	// ROUTE
	result := o.router.Classify(ctx, query, sess.Turns)
	log.Debug("query classified",
		zap.String("state", stateRoute),
		zap.String("category", string(result.Category)),
		zap.Bool("fallback", result.Fallback),
	)

	convVerdict := o.conversation.Check(sess, query, result.Category)
	o.metrics.countViolations(violationLabels(convVerdict))
	advisory := ""
	if convVerdict.Has(domain.ViolationSummarizeDue) {
		advisory = msgSummarizeHint
	}
	if convVerdict.Rejected() {
		// A loop is a warning turn, not an error: answer as DIRECT and
		// keep the turn in history so the repetition stays visible.
		log.Info("loop detected, responding with warning")
		resp := domain.SubmitResponse{
			Success:   true,
			Response:  convVerdict.Message,
			SessionID: sessionID,
			Category:  domain.CategoryDirect,
			Violation: string(domain.ViolationLoopDetected),
			Advisory:  advisory,
		}
		o.commit(ctx, sessionID, query, resp.Response, domain.CategoryDirect, outcomeLoopWarning, log)
		return resp
	}

	// DISPATCH
	toolRes := o.registry.Dispatch(ctx, result.Category, query, sess)
	if !toolRes.OK {
		log.Warn("tool execution failed",
			zap.String("state", stateDispatch),
			zap.String("category", string(result.Category)),
			zap.String("detail", toolRes.Err),
		)
	}

	// OUTPUT_CHECK
	outVerdict := o.output.Check(toolRes)
	o.metrics.countViolations(violationLabels(outVerdict))

	resp := domain.SubmitResponse{
		SessionID: sessionID,
		Category:  result.Category,
		Advisory:  advisory,
	}
	outcome := outcomeResponded
	switch outVerdict.Outcome {
	case domain.OutcomeReject:
		resp.Success = false
		resp.Response = outVerdict.Message
		resp.Violation = firstViolation(outVerdict)
		outcome = outcomeRejected
	case domain.OutcomeSanitized:
		resp.Success = true
		resp.Response = outVerdict.Sanitized
		resp.Violation = firstViolation(outVerdict)
	default:
		resp.Success = true
		resp.Response = toolRes.Output
	}

	o.commit(ctx, sessionID, query, resp.Response, result.Category, outcome, log)
	return resp
}

// commit appends the completed turn. This is the single write point of the
// pipeline; a cancelled context discards the turn cleanly.
func (o *Orchestrator) commit(ctx context.Context, sessionID, userText, assistant string, category domain.Category, outcome string, log *zap.Logger) {
	if ctx.Err() != nil {
		log.Warn("context cancelled before commit, discarding turn", zap.Error(ctx.Err()))
		return
	}

	turn := domain.Turn{
		UserText:  userText,
		Assistant: assistant,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.store.AppendTurn(ctx, sessionID, turn); err != nil {
		log.Error("turn append failed", zap.Error(err))
		return
	}

	o.metrics.countTurn(string(category), outcome)
	state := stateResponded
	if outcome == outcomeRejected {
		state = stateRejected
	}
	log.Info("turn committed",
		zap.String("state", state),
		zap.String("category", string(category)),
		zap.String("outcome", outcome),
	)
}

// History returns the session's messages in order, or ErrSessionNotFound.
func (o *Orchestrator) History(ctx context.Context, sessionID string) ([]domain.HistoryEntry, error) {
	sess, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.History(), nil
}

// Clear removes the session. Clearing an unknown session succeeds. The
// session lock is held so an in-flight turn completes before the wipe; the
// lock entry itself is never removed, since a waiter may already hold a
// reference to it and a replacement mutex would let two turns of the same
// session overlap.
func (o *Orchestrator) Clear(ctx context.Context, sessionID string) error {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return o.store.Clear(ctx, sessionID)
}

// Health reports reachability of the upstream collaborators.
func (o *Orchestrator) Health(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatus{Status: "ok"}
	if err := o.provider.Healthy(ctx); err != nil {
		o.logger.Warn("provider health check failed", zap.Error(err))
		status.Status = "degraded"
	} else {
		status.Provider = true
	}
	if o.index != nil {
		if err := o.index.Healthy(ctx); err != nil {
			o.logger.Warn("vector index health check failed", zap.Error(err))
			status.Status = "degraded"
		} else {
			status.VectorIndex = true
		}
	}
	return status
}

func violationLabels(v domain.Verdict) []string {
	if len(v.Violations) == 0 {
		return nil
	}
	labels := make([]string, len(v.Violations))
	for i, code := range v.Violations {
		labels[i] = string(code)
	}
	return labels
}

func firstViolation(v domain.Verdict) string {
	if len(v.Violations) == 0 {
		return ""
	}
	return string(v.Violations[0])
}
