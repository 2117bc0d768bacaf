package eca

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/domain/shared"
	"github.com/erp/eca/internal/infrastructure/logger"
	"github.com/erp/eca/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dependencies are the collaborators of a Processor
type Dependencies struct {
	Tenants       eca.TenantResolver
	Entities      eca.EntityRepository
	Relationships eca.RelationshipRepository
	Transactions  eca.TransactionRepository
	StateMachine  *eca.StateMachine
	Registry      *Registry
	Ledger        shared.IdempotencyStore
	Audit         eca.AuditSink
	Logger        *zap.Logger
}

// Processor turns validated webhook payloads into entities, relationships
// and transactions. One Process call handles one payload; calls may run
// concurrently.
type Processor struct {
	registry      *Registry
	validator     *Validator
	tenants       eca.TenantResolver
	entities      eca.EntityRepository
	relationships eca.RelationshipRepository
	transactions  *eca.TransactionStore
	sm            *eca.StateMachine
	ledger        shared.IdempotencyStore
	audit         eca.AuditSink
	logger        *zap.Logger
	metrics       *telemetry.EventMetrics
	opts          Options
	now           func() time.Time
}

// NewProcessor creates a Processor
func NewProcessor(deps Dependencies, opts Options) *Processor {
	sm := deps.StateMachine
	if sm == nil {
		sm = eca.DefaultStateMachine()
	}
	registry := deps.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	ledger := deps.Ledger
	if ledger == nil {
		ledger = shared.NoopIdempotencyStore{}
	}
	audit := deps.Audit
	if audit == nil {
		audit = eca.AuditSinkFunc(func(context.Context, *eca.AuditRecord) error { return nil })
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		registry:      registry,
		validator:     NewValidator(registry),
		tenants:       deps.Tenants,
		entities:      deps.Entities,
		relationships: deps.Relationships,
		transactions:  eca.NewTransactionStore(deps.Transactions, sm),
		sm:            sm,
		ledger:        ledger,
		audit:         audit,
		logger:        log.Named("eca"),
		opts:          opts.withDefaults(),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SetEventMetrics sets the metrics recorder
func (p *Processor) SetEventMetrics(m *telemetry.EventMetrics) {
	p.metrics = m
}

// Registry returns the action registry used by the processor
func (p *Processor) Registry() *Registry {
	return p.registry
}

// ActionInfo describes a registered action and the lifecycle of its transactions
type ActionInfo struct {
	Action          string
	TransactionType eca.TransactionType
	InitialState    eca.BusinessState
	States          []eca.BusinessState
	Policy          FailurePolicy
}

// Actions describes every registered action in registration order
func (p *Processor) Actions() []ActionInfo {
	names := p.registry.Actions()
	out := make([]ActionInfo, 0, len(names))
	for _, name := range names {
		h, _ := p.registry.Get(name)
		initial, _ := p.sm.InitialState(h.TransactionType())
		out = append(out, ActionInfo{
			Action:          name,
			TransactionType: h.TransactionType(),
			InitialState:    initial,
			States:          p.sm.States(h.TransactionType()),
			Policy:          p.opts.PolicyFor(name),
		})
	}
	return out
}

// invocation accumulates the observable results of one Process call
type invocation struct {
	action       string
	orgID        uuid.UUID
	eventUUID    uuid.UUID
	raw          []byte
	entityIDs    *idSet
	relIDs       *idSet
	txID         *uuid.UUID
	transition   *StateTransition
	processed    int
	succeeded    int
	failed       int
	recordErrors []ResponseError
	replayed     bool
	compensated  *CompensatedTransaction
}

// CompensatedTransaction reports a transaction reversed by a return
type CompensatedTransaction struct {
	TransactionID   uuid.UUID         `json:"transaction_id"`
	TransactionType string            `json:"transaction_type"`
	From            eca.BusinessState `json:"from"`
	To              eca.BusinessState `json:"to"`
}

// Process handles one raw payload. It never returns an error; every failure
// is reported inside the response.
func (p *Processor) Process(ctx context.Context, raw []byte) *ECAWebhookResponse {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.opts.RequestTimeout)
	defer cancel()

	ctx, span := telemetry.StartServiceSpan(ctx, "eca_processor", "process")
	defer span.End()

	run := &invocation{raw: raw, entityIDs: newIDSet(), relIDs: newIDSet()}
	err := p.process(ctx, run)
	domainErr := p.classify(ctx, err)

	resp := p.respond(run, domainErr, time.Since(start))
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAction, run.action,
		telemetry.SpanAttrOrganizationID, run.orgID.String(),
		telemetry.SpanAttrEventUUID, run.eventUUID.String(),
		telemetry.SpanAttrRecordsFailed, run.failed,
		"eca.success", resp.Success,
	)
	if domainErr != nil {
		telemetry.RecordError(span, domainErr)
	}

	p.emitAudit(ctx, run, resp, domainErr)
	if p.metrics != nil {
		p.metrics.RecordEvent(ctx, run.action, resp.Success, errorCode(domainErr), run.failed, time.Since(start))
	}
	p.log(ctx, run, resp, domainErr)
	return resp
}

func (p *Processor) process(ctx context.Context, run *invocation) error {
	payload, err := p.validator.Validate(run.raw)
	if err != nil {
		run.action, run.orgID = peekEnvelope(run.raw)
		return err
	}
	run.action = payload.Action
	run.orgID = payload.OrganizationID
	run.eventUUID = payload.EventUUID
	run.processed = len(payload.Items)

	ctx = logger.WithOrganizationID(ctx, run.orgID.String())
	ctx = logger.WithAction(ctx, run.action)
	ctx = logger.WithEventUUID(ctx, run.eventUUID.String())

	telemetry.WithActionLabels(ctx, run.action, func(ctx context.Context) {
		err = p.apply(ctx, run, payload)
	})
	return err
}

func (p *Processor) apply(ctx context.Context, run *invocation, payload *ValidatedPayload) error {
	if _, err := p.tenants.Resolve(ctx, payload.OrganizationID); err != nil {
		return err
	}

	if p.opts.PolicyFor(payload.Action) == PolicyStrict {
		if invalid := payload.InvalidItems(); len(invalid) > 0 {
			return strictRejection(invalid)
		}
	}

	handler := payload.Handler
	common := payload.Attributes.Common()
	txType := handler.TransactionType()
	requested := eca.BusinessState(common.Status)
	externalID, err := p.transactionExternalID(payload)
	if err != nil {
		return err
	}
	header := handler.PlanHeader(payload.Attributes)

	existing, err := p.transactions.FindTransactionByExternalID(ctx, run.orgID, txType, externalID)
	if err != nil {
		return err
	}
	run.replayed = p.isReplay(ctx, payload, existing)

	if !run.replayed {
		if err := p.preflight(ctx, run.orgID, txType, existing, requested, header.Compensation); err != nil {
			return err
		}
	}

	// entities and relationships implied by the header
	keys := make(map[string]uuid.UUID, len(header.Entities))
	for _, ref := range header.Entities {
		e, err := p.entities.UpsertEntity(ctx, run.orgID, ref.Type, ref.ExternalID, ref.Attributes)
		if err != nil {
			return err
		}
		keys[ref.Key] = e.ID
		run.entityIDs.add(e.ID)
	}
	for _, edge := range header.Edges {
		if err := p.link(ctx, run, keys, edge); err != nil {
			return err
		}
	}

	// line items
	lineItems := make([]any, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.Err != nil {
			run.recordFailure(item.Err)
			continue
		}
		err := p.applyItem(ctx, run, handler, payload.Attributes, keys, item)
		if err == nil {
			run.succeeded++
			lineItems = append(lineItems, map[string]any(item.Raw))
			continue
		}
		if isRequestLevel(err) {
			return err
		}
		run.recordFailure(shared.WrapDomainError(shared.CodeRecordProcessing,
			fmt.Sprintf("Item %d could not be applied", item.Index), err).
			WithDetails(map[string]any{"index": item.Index, "reason": err.Error()}))
	}

	// transaction
	txAttrs := payload.RawAttributes.Clone()
	delete(txAttrs, "status")
	delete(txAttrs, "external_id")
	txAttrs["line_items"] = lineItems
	txAttrs["event_uuid"] = payload.EventUUID.String()

	tx, before, err := p.upsertTransaction(ctx, run, txType, externalID, requested, txAttrs)
	if err != nil {
		return err
	}

	if !run.replayed {
		initial, _ := p.sm.InitialState(txType)
		if target, ok := handler.CompletionStatus(run.succeeded, run.failed); ok && tx.Status == initial && target != tx.Status {
			if tx, err = p.transactions.TransitionTransaction(ctx, run.orgID, tx.ID, target,
				eca.Attributes{"records_successful": run.succeeded, "records_failed": run.failed}); err != nil {
				return err
			}
		}
		if header.Compensation != nil {
			if err := p.compensate(ctx, run, header.Compensation, tx.ID); err != nil {
				return err
			}
		}
	}

	txID := tx.ID
	run.txID = &txID
	switch {
	case before == nil:
		run.transition = &StateTransition{From: nil, To: tx.Status}
	case *before != tx.Status:
		from := *before
		run.transition = &StateTransition{From: &from, To: tx.Status}
	}

	if !run.replayed {
		if _, err := p.ledger.MarkProcessed(ctx, payload.EventUUID.String(), p.opts.LedgerTTL); err != nil {
			logger.WithLogger(ctx, p.logger).Warn("event ledger write failed",
				zap.String("event_uuid", payload.EventUUID.String()), zap.Error(err))
		}
	}
	return nil
}

// isReplay reports whether this exact event was already applied, either
// according to the event ledger or because it is the last event recorded on
// the transaction
func (p *Processor) isReplay(ctx context.Context, payload *ValidatedPayload, existing *eca.BusinessTransaction) bool {
	if existing != nil {
		if last, ok := existing.Attributes.String("event_uuid"); ok && last == payload.EventUUID.String() {
			return true
		}
	}
	seen, err := p.ledger.IsProcessed(ctx, payload.EventUUID.String())
	if err != nil {
		logger.WithLogger(ctx, p.logger).Warn("event ledger lookup failed, treating event as new",
			zap.String("event_uuid", payload.EventUUID.String()), zap.Error(err))
		return false
	}
	return seen
}

// preflight rejects requests whose state change is already known to be
// illegal before anything is written
func (p *Processor) preflight(ctx context.Context, orgID uuid.UUID, txType eca.TransactionType, existing *eca.BusinessTransaction, requested eca.BusinessState, comp *Compensation) error {
	// a transaction that does not exist yet is created at the initial state
	from, _ := p.sm.InitialState(txType)
	if existing != nil {
		from = existing.Status
	}
	if requested != "" && !p.sm.IsValidState(txType, requested) {
		return eca.NewInvalidTransitionError(txType, from, requested)
	}
	if requested != "" && requested != from {
		if err := p.sm.Validate(txType, from, requested, false); err != nil {
			return err
		}
	}

	if comp != nil {
		original, err := p.transactions.FindTransactionByExternalID(ctx, orgID, comp.TransactionType, comp.ExternalID)
		if err != nil {
			return err
		}
		if original != nil && original.Status != comp.Status {
			if err := p.sm.Validate(comp.TransactionType, original.Status, comp.Status, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Processor) applyItem(ctx context.Context, run *invocation, handler ActionHandler, attrs attributeSchema, headerKeys map[string]uuid.UUID, item LineItem) error {
	plan := handler.PlanItem(attrs, item.Value)
	keys := make(map[string]uuid.UUID, len(headerKeys)+len(plan.Entities))
	for k, v := range headerKeys {
		keys[k] = v
	}
	for _, ref := range plan.Entities {
		e, err := p.entities.UpsertEntity(ctx, run.orgID, ref.Type, ref.ExternalID, ref.Attributes)
		if err != nil {
			return err
		}
		keys[ref.Key] = e.ID
		run.entityIDs.add(e.ID)
	}
	for _, edge := range plan.Edges {
		if err := p.link(ctx, run, keys, edge); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) link(ctx context.Context, run *invocation, keys map[string]uuid.UUID, edge EdgeRef) error {
	source, ok := keys[edge.Source]
	if !ok {
		return shared.NewDomainError(shared.CodeRecordProcessing, "Unknown relationship source: "+edge.Source)
	}
	target, ok := keys[edge.Target]
	if !ok {
		return shared.NewDomainError(shared.CodeRecordProcessing, "Unknown relationship target: "+edge.Target)
	}
	rel, err := p.relationships.CreateRelationship(ctx, run.orgID, edge.Type, source, target, edge.Attributes)
	if err != nil {
		return err
	}
	run.relIDs.add(rel.ID)
	return nil
}

// upsertTransaction finds or creates the transaction and applies the
// requested status. New transactions always start at the initial state and
// reach the requested one through the state machine. before is nil when
// this call created the transaction.
func (p *Processor) upsertTransaction(ctx context.Context, run *invocation, txType eca.TransactionType, externalID string, requested eca.BusinessState, attrs eca.Attributes) (*eca.BusinessTransaction, *eca.BusinessState, error) {
	tx, err := p.transactions.FindTransactionByExternalID(ctx, run.orgID, txType, externalID)
	if err != nil {
		return nil, nil, err
	}
	var before *eca.BusinessState
	if tx == nil {
		ext := externalID
		var created bool
		tx, created, err = p.transactions.CreateTransaction(ctx, run.orgID, txType, &ext, "", attrs)
		if err != nil {
			return nil, nil, err
		}
		if !created {
			status := tx.Status
			before = &status
		}
	} else {
		status := tx.Status
		before = &status
	}

	if !run.replayed && requested != "" && requested != tx.Status {
		if tx, err = p.transactions.TransitionTransaction(ctx, run.orgID, tx.ID, requested, attrs); err != nil {
			return nil, nil, err
		}
	}
	return tx, before, nil
}

func (p *Processor) compensate(ctx context.Context, run *invocation, comp *Compensation, returnID uuid.UUID) error {
	original, err := p.transactions.FindTransactionByExternalID(ctx, run.orgID, comp.TransactionType, comp.ExternalID)
	if err != nil {
		return err
	}
	if original == nil {
		logger.WithLogger(ctx, p.logger).Info("return references unknown transaction, compensation skipped",
			zap.String("original_type", string(comp.TransactionType)),
			zap.String("original_external_id", comp.ExternalID))
		return nil
	}
	if original.Status == comp.Status {
		return nil
	}
	from := original.Status
	updated, err := p.transactions.Compensate(ctx, run.orgID, original.ID, comp.Status,
		eca.Attributes{"compensated_by": returnID.String()})
	if err != nil {
		return err
	}
	run.compensated = &CompensatedTransaction{
		TransactionID:   updated.ID,
		TransactionType: string(updated.TransactionType),
		From:            from,
		To:              updated.Status,
	}
	return nil
}

// transactionExternalID returns attributes.external_id or, when absent, a
// stable id derived from the payload without its status so that follow-up
// status updates of the same payload address the same transaction
func (p *Processor) transactionExternalID(payload *ValidatedPayload) (string, error) {
	if ext := payload.Attributes.Common().ExternalID; ext != "" {
		return ext, nil
	}
	attrs := payload.fullAttributes.Clone()
	delete(attrs, "status")
	id, err := eventFingerprint(payload.OrganizationID, payload.Action, attrs)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (r *invocation) recordFailure(err *shared.DomainError) {
	r.failed++
	r.recordErrors = append(r.recordErrors, *newResponseError(err))
}

func strictRejection(invalid []LineItem) *shared.DomainError {
	items := make([]map[string]any, 0, len(invalid))
	for _, it := range invalid {
		items = append(items, it.Err.Details)
	}
	return shared.NewDomainError(shared.CodeRecordProcessing,
		fmt.Sprintf("%d item(s) failed validation and the action requires all items to be valid", len(invalid))).
		WithDetails(map[string]any{"items": items})
}

// isRequestLevel reports whether err must abort the whole request rather
// than fail a single record
func isRequestLevel(err error) bool {
	switch shared.ErrorCodeOf(err) {
	case shared.CodeValidation, shared.CodeRecordProcessing:
		return false
	}
	return true
}

// classify maps any error to the domain error reported to the caller
func (p *Processor) classify(ctx context.Context, err error) *shared.DomainError {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return shared.ErrDeadlineExceeded.WithDetails(map[string]any{"timeout_ms": p.opts.RequestTimeout.Milliseconds()})
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de
	}
	if errors.Is(err, context.Canceled) {
		return shared.NewDomainError(shared.CodeDeadlineExceeded, "Request cancelled")
	}
	return shared.NewStorageError("unexpected failure", err)
}

func (p *Processor) respond(run *invocation, err *shared.DomainError, elapsed time.Duration) *ECAWebhookResponse {
	resp := &ECAWebhookResponse{
		Success:         err == nil,
		Action:          run.action,
		EntityIDs:       run.entityIDs.list(),
		RelationshipIDs: run.relIDs.list(),
		Attributes: ResponseAttributes{
			Success: err == nil,
			Summary: Summary{
				RecordsProcessed:  run.processed,
				RecordsSuccessful: run.succeeded,
				RecordsFailed:     run.failed,
				RecordErrors:      run.recordErrors,
			},
			Compensated: run.compensated,
		},
		Metadata: ResponseMetadata{
			ProcessedAt:      p.now(),
			ProcessingTimeMS: elapsed.Milliseconds(),
			Action:           run.action,
			Replayed:         run.replayed,
		},
	}
	if run.orgID != uuid.Nil {
		resp.Metadata.OrganizationID = run.orgID.String()
	}
	if run.eventUUID != uuid.Nil {
		resp.Metadata.EventUUID = run.eventUUID.String()
	}

	if err != nil {
		resp.Error = newResponseError(err)
		resp.Attributes.Summary.Message = err.Message
		return resp
	}
	resp.TransactionID = run.txID
	resp.StateTransition = run.transition
	resp.Attributes.Summary.Message = fmt.Sprintf("Processed %d records: %d succeeded, %d failed",
		run.processed, run.succeeded, run.failed)
	if run.replayed {
		resp.Attributes.Summary.Message += " (replayed event, state unchanged)"
	}
	return resp
}

func (p *Processor) emitAudit(ctx context.Context, run *invocation, resp *ECAWebhookResponse, err *shared.DomainError) {
	rec := &eca.AuditRecord{
		ID:               uuid.New(),
		OrganizationID:   run.orgID,
		Action:           run.action,
		EventUUID:        run.eventUUID,
		Success:          resp.Success,
		TransactionID:    resp.TransactionID,
		RecordsProcessed: run.processed,
		RecordsSucceeded: run.succeeded,
		RecordsFailed:    run.failed,
		ProcessingTimeMS: resp.Metadata.ProcessingTimeMS,
		CreatedAt:        resp.Metadata.ProcessedAt,
	}
	if err != nil {
		rec.ErrorCode = err.Code
		rec.ErrorMessage = err.Message
	}
	if resp.StateTransition != nil {
		rec.StateFrom = resp.StateTransition.From
		to := resp.StateTransition.To
		rec.StateTo = &to
	}
	if json.Valid(run.raw) {
		rec.Payload = json.RawMessage(run.raw)
	}

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.AuditTimeout)
	defer cancel()
	if aerr := p.audit.Record(auditCtx, rec); aerr != nil {
		logger.WithLogger(ctx, p.logger).Warn("audit emission failed",
			zap.String("action", run.action),
			zap.String("event_uuid", run.eventUUID.String()),
			zap.Error(aerr))
	}
}

func (p *Processor) log(ctx context.Context, run *invocation, resp *ECAWebhookResponse, err *shared.DomainError) {
	fields := []zap.Field{
		zap.String("action", run.action),
		zap.String("organization_id", resp.Metadata.OrganizationID),
		zap.String("event_uuid", resp.Metadata.EventUUID),
		zap.Int("records_processed", run.processed),
		zap.Int("records_failed", run.failed),
		zap.Int64("processing_time_ms", resp.Metadata.ProcessingTimeMS),
		zap.Bool("replayed", run.replayed),
	}
	l := logger.WithLogger(ctx, p.logger)
	switch {
	case err == nil:
		l.Info("eca event processed", fields...)
	case err.Code == shared.CodeStorage || err.Code == shared.CodeInternal:
		l.Error("eca event failed", append(fields, zap.String("error_code", err.Code), zap.Error(err))...)
	default:
		l.Warn("eca event rejected", append(fields, zap.String("error_code", err.Code), zap.String("error", err.Message))...)
	}
}

func errorCode(err *shared.DomainError) string {
	if err == nil {
		return ""
	}
	return err.Code
}

// peekEnvelope best-effort extracts action and organization for responses
// to payloads that failed validation
func peekEnvelope(raw []byte) (string, uuid.UUID) {
	var env struct {
		Action         any `json:"action"`
		OrganizationID any `json:"organization_id"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", uuid.Nil
	}
	action, _ := env.Action.(string)
	org, _ := env.OrganizationID.(string)
	id, err := uuid.Parse(org)
	if err != nil {
		return action, uuid.Nil
	}
	return action, id
}
