package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/apperrors"
	"github.com/atina-inc/atina-engine/pkg/ledger"
	"github.com/atina-inc/atina-engine/pkg/llm"
	"github.com/atina-inc/atina-engine/pkg/models"
	"github.com/atina-inc/atina-engine/pkg/repositories"
	"github.com/atina-inc/atina-engine/pkg/session"
	"github.com/atina-inc/atina-engine/pkg/whatsapp"
)

// manageCommand enters taxonomy settings mode from any receipt phase.
const manageCommand = "/manage"

// ConversationEngine is the receipt-flow state machine. It owns every
// transition; the dialogue generator only phrases what the engine decided.
type ConversationEngine interface {
	HandleImage(ctx context.Context, tenant *models.TenantConfig, user *models.User, image []byte, mediaType string) error
	HandleText(ctx context.Context, tenant *models.TenantConfig, user *models.User, text string) error
}

type conversationEngine struct {
	sessions     session.Store
	locks        *session.KeyedMutex
	extractor    llm.DocumentExtractor
	dialogue     llm.DialogueGenerator
	patterns     PatternService
	management   ManagementService
	monitor      Monitor
	receiptRepo  repositories.ReceiptRepository
	taxonomyRepo repositories.TaxonomyRepository
	sink         ledger.Sink
	sender       whatsapp.Sender
	logger       *zap.Logger
}

// NewConversationEngine creates the engine.
func NewConversationEngine(
	sessions session.Store,
	extractor llm.DocumentExtractor,
	dialogue llm.DialogueGenerator,
	patterns PatternService,
	management ManagementService,
	monitor Monitor,
	receiptRepo repositories.ReceiptRepository,
	taxonomyRepo repositories.TaxonomyRepository,
	sink ledger.Sink,
	sender whatsapp.Sender,
	logger *zap.Logger,
) ConversationEngine {
	return &conversationEngine{
		sessions:     sessions,
		locks:        session.NewKeyedMutex(),
		extractor:    extractor,
		dialogue:     dialogue,
		patterns:     patterns,
		management:   management,
		monitor:      monitor,
		receiptRepo:  receiptRepo,
		taxonomyRepo: taxonomyRepo,
		sink:         sink,
		sender:       sender,
		logger:       logger.Named("conversation"),
	}
}

var _ ConversationEngine = (*conversationEngine)(nil)

// withSession serializes events per sender, loads (or creates) the session,
// runs fn, and persists whatever state fn left behind.
func (e *conversationEngine) withSession(ctx context.Context, tenant *models.TenantConfig, user *models.User, fn func(sess *models.ConversationSession) error) error {
	unlock := e.locks.Lock(user.PhoneNumber)
	defer unlock()

	sess, err := e.sessions.Get(ctx, user.PhoneNumber)
	if errors.Is(err, apperrors.ErrSessionNotFound) {
		sess = models.NewConversationSession(user.PhoneNumber, tenant.ID, tenant.DefaultLanguage)
	} else if err != nil {
		return err
	}

	fnErr := fn(sess)

	if putErr := e.sessions.Put(ctx, sess); putErr != nil {
		e.logger.Error("Failed to persist session",
			zap.String("sender", user.PhoneNumber),
			zap.Error(putErr))
		if fnErr == nil {
			fnErr = putErr
		}
	}
	return fnErr
}

func (e *conversationEngine) HandleImage(ctx context.Context, tenant *models.TenantConfig, user *models.User, image []byte, mediaType string) error {
	return e.withSession(ctx, tenant, user, func(sess *models.ConversationSession) error {
		sess.AppendTurn(models.RoleUser, "[receipt image]")

		if sess.Managing {
			return e.say(ctx, tenant, sess, &models.SituationContext{Kind: models.SituationManagingBlocked})
		}
		if !tenant.HasLedgerTarget() {
			return e.say(ctx, tenant, sess, &models.SituationContext{Kind: models.SituationNoLedgerTarget})
		}

		e.send(ctx, sess, loadingMessage(sess.Language))
		e.monitor.Record(ctx, tenant, user.PhoneNumber, models.EventReceiptReceived)

		hash := contentHash(image)
		if e.isDuplicate(ctx, tenant, sess, hash) {
			sess.PendingImage = &models.PendingImage{Data: image, MediaType: mediaType, Hash: hash}
			sess.Phase = models.PhaseAwaitingDuplicate
			e.monitor.Record(ctx, tenant, user.PhoneNumber, models.EventDuplicateDetected)
			return e.say(ctx, tenant, sess, &models.SituationContext{Kind: models.SituationDuplicate})
		}

		return e.extractAndBegin(ctx, tenant, user, sess, image, mediaType, hash)
	})
}

// isDuplicate reports whether the image hash was already written to the
// ledger, or matches the receipt currently in flight for this session.
func (e *conversationEngine) isDuplicate(ctx context.Context, tenant *models.TenantConfig, sess *models.ConversationSession, hash string) bool {
	if sess.Draft != nil && sess.Draft.ContentHash == hash {
		return true
	}
	if sess.PendingImage != nil && sess.PendingImage.Hash == hash {
		return true
	}

	saved, err := e.receiptRepo.IsSaved(ctx, tenant.ID, hash)
	if err != nil {
		e.logger.Error("Duplicate check failed", zap.Error(err))
		// Fail open: a missed duplicate beats a lost receipt.
		return false
	}
	return saved
}

func (e *conversationEngine) HandleText(ctx context.Context, tenant *models.TenantConfig, user *models.User, text string) error {
	return e.withSession(ctx, tenant, user, func(sess *models.ConversationSession) error {
		text = strings.TrimSpace(text)
		sess.Language = detectLanguage(text, sess.Language)
		sess.AppendTurn(models.RoleUser, text)

		if strings.EqualFold(text, manageCommand) {
			e.send(ctx, sess, e.management.Enter(tenant, sess))
			return nil
		}
		if sess.Managing {
			reply, err := e.management.Handle(ctx, tenant, sess, text)
			if err != nil {
				e.logger.Error("Management turn failed", zap.Error(err))
				reply = fallbackMessage(sess.Language)
			}
			e.send(ctx, sess, reply)
			return nil
		}

		switch sess.Phase {
		case models.PhaseAwaitingDuplicate:
			return e.handleDuplicateAnswer(ctx, tenant, user, sess, text)
		case models.PhaseCollectingBeneficiary:
			return e.handleBeneficiary(ctx, tenant, user, sess, text)
		case models.PhaseCollectingInfo:
			return e.handleCollectingTurn(ctx, tenant, user, sess, text)
		case models.PhaseAwaitingConfirmation:
			return e.handleConfirmationAnswer(ctx, tenant, user, sess, text)
		case models.PhaseFixingData:
			return e.handleCorrection(ctx, tenant, user, sess, text)
		default:
			return e.say(ctx, tenant, sess, &models.SituationContext{Kind: models.SituationGreeting})
		}
	})
}

// extractAndBegin runs extraction on image bytes and moves the session into
// slot collection. Extraction failure keeps the session idle.
func (e *conversationEngine) extractAndBegin(ctx context.Context, tenant *models.TenantConfig, user *models.User, sess *models.ConversationSession, image []byte, mediaType, hash string) error {
	extracted, err := e.extractor.Extract(ctx, image, mediaType)
	if err != nil {
		e.logger.Warn("Extraction failed", zap.String("sender", user.PhoneNumber), zap.Error(err))
		e.monitor.Record(ctx, tenant, user.PhoneNumber, models.EventExtractionFailed)
		sess.ResetReceipt()
		return e.say(ctx, tenant, sess, &models.SituationContext{Kind: models.SituationExtractionFailed})
	}

	draft := &models.DraftRecord{
		MerchantName:    strings.TrimSpace(extracted.MerchantName),
		TransactionDate: extracted.Date,
		TotalAmount:     extracted.TotalAmount,
		PaymentMethod:   extracted.PaymentMethod,
		LineItems:       extracted.LineItems,
		ContentHash:     hash,
		IsBankTransfer:  extracted.IsBankTransfer,
	}
	if draft.IsBankTransfer && draft.PaymentMethod == "" {
		draft.PaymentMethod = "Bank Transfer"
	}
	sess.Draft = draft
	sess.PendingImage = nil
	// Answers pending for the previous draft must not leak into this one.
	sess.PendingSkipSlot = models.SlotNone
	sess.AskCounts = make(map[models.Slot]int)

	// Transfer vouchers rarely name the payee; ask before anything else.
	if draft.IsBankTransfer && draft.MerchantName == "" {
		sess.Phase = models.PhaseCollectingBeneficiary
		return e.say(ctx, tenant, sess, &models.SituationContext{Kind: models.SituationAskBeneficiary})
	}

	return e.advance(ctx, tenant, user, sess)
}

// advance moves to the next missing slot or to summary confirmation.
func (e *conversationEngine) advance(ctx context.Context, tenant *models.TenantConfig, user *models.User, sess *models.ConversationSession) error {
	draft := sess.Draft
	missing := draft.MissingSlot(tenant.CostCenterRequired)

	if missing == models.SlotNone {
		sess.Phase = models.PhaseAwaitingConfirmation
		return e.say(ctx, tenant, sess, &models.SituationContext{
			Kind:  models.SituationShowSummary,
			Draft: draft,
		})
	}

	suggestion, err := e.patterns.Suggest(ctx, tenant.ID, draft.MerchantName, draft.LineItems)
	if err != nil {
		e.logger.Error("Pattern lookup failed", zap.Error(err))
		suggestion = nil
	}

	sess.Phase = models.PhaseCollectingInfo
	e.monitor.Record(ctx, tenant, user.PhoneNumber, models.EventSlotPrompted)
	return e.say(ctx, tenant, sess, &models.SituationContext{
		Kind:        models.SituationCollectSlot,
		Draft:       draft,
		MissingSlot: missing,
		AskCount:    sess.RecordAsk(missing),
		Categories:  tenant.Categories,
		CostCenters: tenant.CostCenters,
		Suggestion:  suggestion,
	})
}

func (e *conversationEngine) handleDuplicateAnswer(ctx context.Context, tenant *models.TenantConfig, user *models.User, sess *models.ConversationSession, text string) error {
	pending := sess.PendingImage

	switch {
	case pending == nil:
		// Session was cleared out from under us; start over.
		sess.ResetReceipt()
		return e.say(ctx, tenant, sess, &models.SituationContext{Kind: models.SituationGreeting})

	case IsAffirmative(text):
		sess.PendingImage = nil
		return e.extractAndBegin(ctx, tenant, user, sess, pending.Data, pending.MediaType, pending.Hash)

	case IsNegative(text):
		e.monitor.Record(ctx, tenant, user.PhoneNumber, models.EventDuplicateDropped)
		sess.ResetReceipt()
		return e.say(ctx, tenant, sess, &models.SituationContext{Kind: models.SituationDuplicateDropped})

	default:
		return e.say(ctx, tenant, sess, &models.SituationContext{Kind: models.SituationDuplicate})
	}
}

func (e *conversationEngine) handleBeneficiary(ctx context.Context, tenant *models.TenantConfig, user *models.User, sess *models.ConversationSession, text string) error {
	if sess.Draft == nil {
		sess.ResetReceipt()
		return e.say(ctx, tenant, sess, &models.SituationContext{Kind: models.SituationGreeting})
	}
	if text == "" {
		return e.say(ctx, tenant, sess, &models.SituationContext{Kind: models.SituationAskBeneficiary})
	}

	sess.Draft.MerchantName = text
	return e.advance(ctx, tenant, user, sess)
}

func (e *conversationEngine) handleCollectingTurn(ctx context.Context, tenant *models.TenantConfig, user *models.User, sess *models.ConversationSession, text string) error {
	draft := sess.Draft
	if draft == nil {
		sess.ResetReceipt()
		return e.say(ctx, tenant, sess, &models.SituationContext{Kind: models.SituationGreeting})
	}

	// A skip needs its own confirmation turn before the sentinel lands.
	if sess.PendingSkipSlot != models.SlotNone {
		return e.handleSkipAnswer(ctx, tenant, user, sess, text)
	}

	missing := draft.MissingSlot(tenant.CostCenterRequired)
	result, err := e.dialogue.Respond(ctx, e.situation(tenant, sess, &models.SituationContext{
		Kind:        models.SituationCollectSlot,
		Draft:       draft,
		MissingSlot: missing,
		AskCount:    sess.AskCounts[missing],
		Categories:  tenant.Categories,
		CostCenters: tenant.CostCenters,
	}), sess.History, "")
	if err != nil {
		// No interpretation happened, so no state may change either.
		e.logger.Error("Dialogue failed", zap.Error(err))
		e.send(ctx, sess, fallbackMessage(sess.Language))
		return nil
	}

	if result.Fields == nil {
		// Nothing usable in the answer; the model's reply re-asks.
		sess.RecordAsk(missing)
		e.monitor.Record(ctx, tenant, user.PhoneNumber, models.EventSlotPrompted)
		e.send(ctx, sess, result.Text)
		return nil
	}

	if skip := skipRequest(result.Fields); skip != models.SlotNone {
		sess.PendingSkipSlot = skip
		return e.say(ctx, tenant, sess, &models.SituationContext{
			Kind:     models.SituationConfirmSkip,
			Draft:    draft,
			SkipSlot: skip,
		})
	}

	e.applyFields(ctx, tenant, sess, result.Fields)
	return e.advance(ctx, tenant, user, sess)
}

func (e *conversationEngine) handleSkipAnswer(ctx context.Context, tenant *models.TenantConfig, user *models.User, sess *models.ConversationSession, text string) error {
	skip := sess.PendingSkipSlot

	switch {
	case IsAffirmative(text):
		sess.PendingSkipSlot = models.SlotNone
		if skip == models.SlotCategory {
			sess.Draft.Category = models.SentinelCategory
		} else {
			sess.Draft.CostCenter = models.SentinelCostCenter
		}
		return e.advance(ctx, tenant, user, sess)

	case IsNegative(text):
		sess.PendingSkipSlot = models.SlotNone
		return e.advance(ctx, tenant, user, sess)

	default:
		return e.say(ctx, tenant, sess, &models.SituationContext{
			Kind:     models.SituationConfirmSkip,
			Draft:    sess.Draft,
			SkipSlot: skip,
		})
	}
}

func (e *conversationEngine) handleConfirmationAnswer(ctx context.Context, tenant *models.TenantConfig, user *models.User, sess *models.ConversationSession, text string) error {
	if sess.Draft == nil {
		sess.ResetReceipt()
		return e.say(ctx, tenant, sess, &models.SituationContext{Kind: models.SituationGreeting})
	}

	switch {
	case IsAffirmative(text):
		return e.finalize(ctx, tenant, user, sess)
	case IsNegative(text):
		sess.Phase = models.PhaseFixingData
		return e.say(ctx, tenant, sess, &models.SituationContext{
			Kind:  models.SituationAskCorrection,
			Draft: sess.Draft,
		})
	default:
		// Not a clean yes/no; read it as a correction attempt.
		return e.handleCorrection(ctx, tenant, user, sess, text)
	}
}

func (e *conversationEngine) handleCorrection(ctx context.Context, tenant *models.TenantConfig, user *models.User, sess *models.ConversationSession, text string) error {
	draft := sess.Draft
	if draft == nil {
		sess.ResetReceipt()
		return e.say(ctx, tenant, sess, &models.SituationContext{Kind: models.SituationGreeting})
	}

	result, err := e.dialogue.Respond(ctx, e.situation(tenant, sess, &models.SituationContext{
		Kind:        models.SituationApplyCorrection,
		Draft:       draft,
		Categories:  tenant.Categories,
		CostCenters: tenant.CostCenters,
	}), sess.History, "")
	if err != nil {
		e.logger.Error("Dialogue failed", zap.Error(err))
		e.send(ctx, sess, fallbackMessage(sess.Language))
		return nil
	}

	if result.Fields != nil {
		e.applyFields(ctx, tenant, sess, result.Fields)
		// A correction may blank nothing, so completeness cannot regress;
		// return to the confirmation question.
		sess.Phase = models.PhaseAwaitingConfirmation
	}
	e.send(ctx, sess, result.Text)
	return nil
}

// finalize validates the draft, appends it to the ledger, records dedup and
// learning, and resets for the next receipt. On sink failure the draft is
// preserved so a repeated confirmation retries.
func (e *conversationEngine) finalize(ctx context.Context, tenant *models.TenantConfig, user *models.User, sess *models.ConversationSession) error {
	draft := sess.Draft

	if !tenant.HasLedgerTarget() {
		return e.say(ctx, tenant, sess, &models.SituationContext{Kind: models.SituationNoLedgerTarget})
	}
	if err := draft.ValidateForLedger(tenant.CostCenterRequired); err != nil {
		e.logger.Warn("Draft failed validation at confirm", zap.Error(err))
		return e.advance(ctx, tenant, user, sess)
	}

	entry := models.NewLedgerEntry(draft, user.PhoneNumber)
	if err := e.sink.Append(ctx, tenant, entry); err != nil {
		e.logger.Error("Ledger append failed",
			zap.String("sender", user.PhoneNumber),
			zap.Error(err))
		e.monitor.Record(ctx, tenant, user.PhoneNumber, models.EventSaveFailed)
		return e.say(ctx, tenant, sess, &models.SituationContext{
			Kind:  models.SituationSaveFailed,
			Draft: draft,
		})
	}

	if err := e.receiptRepo.MarkSaved(ctx, tenant.ID, draft.ContentHash); err != nil {
		e.logger.Error("Failed to mark receipt saved", zap.Error(err))
	}
	if err := e.patterns.Learn(ctx, tenant.ID, draft); err != nil {
		e.logger.Error("Pattern learning failed", zap.Error(err))
	}
	e.monitor.Record(ctx, tenant, user.PhoneNumber, models.EventReceiptSaved)

	err := e.say(ctx, tenant, sess, &models.SituationContext{
		Kind:  models.SituationSaved,
		Draft: draft,
	})
	sess.ResetReceipt()
	return err
}

// applyFields merges model-extracted field values into the draft. Taxonomy
// values are canonicalized, auto-creating entries the tenant has not seen
// before so the draft only ever holds taxonomy members or sentinels.
func (e *conversationEngine) applyFields(ctx context.Context, tenant *models.TenantConfig, sess *models.ConversationSession, fields *models.StructuredFields) {
	draft := sess.Draft

	if fields.Category != "" {
		draft.Category = e.canonicalize(ctx, tenant, models.SlotCategory, fields.Category)
	}
	if fields.CostCenter != "" {
		draft.CostCenter = e.canonicalize(ctx, tenant, models.SlotCostCenter, fields.CostCenter)
	}
	if fields.MerchantName != "" {
		draft.MerchantName = fields.MerchantName
	}
	if fields.TotalAmount != nil {
		draft.TotalAmount = *fields.TotalAmount
	}
	if fields.Date != "" {
		draft.TransactionDate = fields.Date
	}
}

func (e *conversationEngine) canonicalize(ctx context.Context, tenant *models.TenantConfig, slot models.Slot, value string) string {
	value = strings.TrimSpace(value)

	var canonical string
	var err error
	if slot == models.SlotCategory {
		canonical, err = e.taxonomyRepo.EnsureCategory(ctx, tenant.ID, value)
	} else {
		canonical, err = e.taxonomyRepo.EnsureCostCenter(ctx, tenant.ID, value)
	}
	if err != nil {
		e.logger.Error("Failed to canonicalize taxonomy value",
			zap.String("slot", string(slot)),
			zap.String("value", value),
			zap.Error(err))
		return value
	}

	// Keep the snapshot coherent for the rest of this turn.
	if slot == models.SlotCategory && !tenant.HasCategory(canonical) {
		tenant.Categories = append(tenant.Categories, canonical)
	}
	if slot == models.SlotCostCenter && !tenant.HasCostCenter(canonical) {
		tenant.CostCenters = append(tenant.CostCenters, canonical)
	}
	return canonical
}

// say generates prose for a situation and sends it. Dialogue failures fall
// back to a neutral retry message; the situation's state change has already
// happened and is preserved.
func (e *conversationEngine) say(ctx context.Context, tenant *models.TenantConfig, sess *models.ConversationSession, sit *models.SituationContext) error {
	result, err := e.dialogue.Respond(ctx, e.situation(tenant, sess, sit), sess.History, "")
	if err != nil {
		e.logger.Error("Dialogue failed",
			zap.String("situation", string(sit.Kind)),
			zap.Error(err))
		e.send(ctx, sess, fallbackMessage(sess.Language))
		return nil
	}
	e.send(ctx, sess, result.Text)
	return nil
}

// situation fills the ambient fields every situation needs.
func (e *conversationEngine) situation(tenant *models.TenantConfig, sess *models.ConversationSession, sit *models.SituationContext) *models.SituationContext {
	sit.Language = sess.Language
	sit.CostCenterLabel = tenant.CostCenterLabel
	return sit
}

// send delivers text to the user and records the assistant turn. Delivery
// failures are logged; the conversation state is already committed.
func (e *conversationEngine) send(ctx context.Context, sess *models.ConversationSession, text string) {
	if text == "" {
		return
	}
	if err := e.sender.SendText(ctx, sess.SenderID, text); err != nil {
		e.logger.Error("Failed to send message",
			zap.String("sender", sess.SenderID),
			zap.Error(err))
	}
	sess.AppendTurn(models.RoleAssistant, text)
}

func skipRequest(fields *models.StructuredFields) models.Slot {
	if fields.SkipCategory {
		return models.SlotCategory
	}
	if fields.SkipCostCenter {
		return models.SlotCostCenter
	}
	return models.SlotNone
}

func contentHash(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}

func loadingMessage(language string) string {
	return msg(language,
		"📸 Recibí tu recibo, dame un momento mientras lo leo...",
		"📸 Got your receipt, give me a moment while I read it...")
}

func fallbackMessage(language string) string {
	return msg(language,
		"Disculpa, tuve un problema técnico. ¿Me lo repites?",
		"Sorry, I hit a technical problem. Could you try that again?")
}

// detectLanguage switches the session language only on clear evidence,
// otherwise the current setting stays.
func detectLanguage(text, current string) string {
	lower := strings.ToLower(text)

	if strings.ContainsAny(lower, "ñ¿¡áéíóú") {
		return "es"
	}

	esWords := map[string]struct{}{
		"hola": {}, "gracias": {}, "recibo": {}, "gasto": {}, "por": {},
		"favor": {}, "buenas": {}, "buenos": {}, "que": {}, "como": {},
		"pago": {}, "factura": {}, "listo": {},
	}
	enWords := map[string]struct{}{
		"hello": {}, "hi": {}, "thanks": {}, "the": {}, "receipt": {},
		"please": {}, "what": {}, "how": {}, "expense": {}, "payment": {},
		"invoice": {}, "done": {},
	}

	esCount, enCount := 0, 0
	for _, word := range strings.Fields(lower) {
		word = strings.Trim(word, ".,!?")
		if _, ok := esWords[word]; ok {
			esCount++
		}
		if _, ok := enWords[word]; ok {
			enCount++
		}
	}

	switch {
	case esCount > enCount:
		return "es"
	case enCount > esCount:
		return "en"
	default:
		return current
	}
}
