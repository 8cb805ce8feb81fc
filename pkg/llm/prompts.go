package llm

import (
	"fmt"
	"strings"

	"github.com/atina-inc/atina-engine/pkg/models"
)

// extractionPrompt asks the vision model for the structured receipt fields.
// Unreadable fields must come back null rather than guessed.
const extractionPrompt = `Analyze this receipt image and extract the following information as JSON:

{
  "merchant_name": "business name as printed, or null",
  "date": "transaction date as YYYY-MM-DD, or null",
  "total_amount": final total as a number, or null,
  "payment_method": "Cash, Credit Card, Debit Card, Bank Transfer, etc., or null",
  "line_items": [{"description": "item name", "amount": item price as a number}],
  "is_bank_transfer": true if this is a bank transfer voucher or wire confirmation rather than a purchase receipt

}

Rules:
- Use null for anything you cannot read confidently. Never invent values.
- total_amount is the final charged total including tax and tip.
- Keep line item descriptions short, as printed.
- Respond with ONLY the JSON object.`

// dialogueInstructions maps each situation to what this turn must accomplish.
// Phrasing is left to the model; these are constraints, not scripts.
var dialogueInstructions = map[models.SituationKind]string{
	models.SituationGreeting:         "Greet the user warmly and briefly explain that they can send you a photo of a receipt to file it.",
	models.SituationAskBeneficiary:   "This document is a bank transfer, so the image does not say who was paid. Ask who the payment was to (the vendor or person).",
	models.SituationCollectSlot:      "Ask the user for the missing field named below. If a suggestion from past receipts is provided, offer it for one-tap confirmation instead of an open question. If this field has been asked before (see ask count), vary the phrasing and offer the available options.",
	models.SituationConfirmSkip:      "The user wants to leave the field below unset. Ask them to confirm explicitly that it should be filed without it.",
	models.SituationShowSummary:      "Show a compact summary of the draft below (merchant, date, total, category, and the location field if set) and ask the user to confirm before saving, or to say what to fix.",
	models.SituationAskCorrection:    "The user said something is wrong. Ask what needs fixing.",
	models.SituationApplyCorrection:  "Apply the user's correction to the draft fields and show the updated summary, asking again for confirmation.",
	models.SituationDuplicate:        "This exact receipt image was already saved. Ask the user whether they really want to save it again.",
	models.SituationDuplicateDropped: "Confirm that the duplicate receipt was discarded and nothing was saved.",
	models.SituationSaved:            "Confirm the receipt was saved successfully, mentioning the merchant and amount.",
	models.SituationSaveFailed:       "Apologize: saving failed on our side. Reassure the user their data is kept and they can just confirm again to retry.",
	models.SituationExtractionFailed: "The receipt image could not be read. Ask for a clearer photo (good light, flat receipt).",
	models.SituationManagingBlocked:  "The user is in settings mode. Tell them to finish or exit settings before sending receipts.",
	models.SituationNoLedgerTarget:   "Explain that no expense sheet is configured for their company yet, so the receipt cannot be filed.",
}

// BuildDialoguePrompt renders the system prompt for one assistant turn.
func BuildDialoguePrompt(sit *models.SituationContext) string {
	var b strings.Builder

	term := costCenterTerm(sit.CostCenterLabel)

	b.WriteString("You are a friendly WhatsApp assistant that helps a small business file expense receipts.\n")
	fmt.Fprintf(&b, "Respond in language: %s. Keep replies short; this is WhatsApp.\n", sit.Language)
	fmt.Fprintf(&b, "When you refer to where an expense belongs, always call it the %q. ", sit.CostCenterLabel)
	b.WriteString("Never use the words \"cost center\" with the user.\n\n")

	if instr, ok := dialogueInstructions[sit.Kind]; ok {
		b.WriteString("THIS TURN: ")
		b.WriteString(instr)
		b.WriteString("\n\n")
	}

	if sit.Draft != nil {
		d := sit.Draft
		fmt.Fprintf(&b, "Current draft: merchant=%q date=%q total=%.2f category=%q %s=%q\n",
			d.MerchantName, d.TransactionDate, d.TotalAmount, d.Category, term, d.CostCenter)
	}
	if sit.MissingSlot != models.SlotNone {
		fmt.Fprintf(&b, "Missing field: %s (asked %d time(s) before)\n", slotLabel(sit.MissingSlot, term), sit.AskCount)
	}
	if sit.SkipSlot != models.SlotNone {
		fmt.Fprintf(&b, "Field the user wants to leave unset: %s\n", slotLabel(sit.SkipSlot, term))
	}
	if len(sit.Categories) > 0 {
		fmt.Fprintf(&b, "Known categories: %s\n", strings.Join(sit.Categories, ", "))
	}
	if len(sit.CostCenters) > 0 {
		fmt.Fprintf(&b, "Known %ss: %s\n", term, strings.Join(sit.CostCenters, ", "))
	}
	if sit.Suggestion != nil {
		fmt.Fprintf(&b, "Suggestion from past receipts (used %d times): category=%q %s=%q. Offer it; do not silently apply it.\n",
			sit.Suggestion.Frequency, sit.Suggestion.Category, term, sit.Suggestion.CostCenter)
	}

	b.WriteString(`
When the user's message provides a value for a draft field, append a fenced JSON block after your reply:
` + "```json" + `
{"category": "...", "cost_center": "...", "skip_category": false, "skip_cost_center": false, "merchant_name": "...", "total_amount": 0, "date": "..."}
` + "```" + `
Only include keys the user actually provided this turn. Use "cost_center" as the JSON key even though you never say it in prose. Set skip_* true only when the user clearly wants the field left unset. Never output the JSON block when the user provided nothing.`)

	return b.String()
}

// BuildManagementPrompt renders the intent-classification prompt for
// settings mode.
func BuildManagementPrompt(language string, categories, costCenters []string) string {
	var b strings.Builder

	b.WriteString("You classify a user's settings command for their expense assistant.\n")
	fmt.Fprintf(&b, "User language: %s.\n", language)
	fmt.Fprintf(&b, "Current categories: %s\n", strings.Join(categories, ", "))
	fmt.Fprintf(&b, "Current locations: %s\n\n", strings.Join(costCenters, ", "))
	b.WriteString(`Respond with ONLY a JSON object:
{"action": "add|delete|list|exit|unclear", "type": "category|cost_center|both", "name": "the item name, if any", "message": "a short reply in the user's language"}

"list" shows existing items; "exit" leaves settings mode. Use "unclear" when you cannot tell what the user wants, with a clarifying question in message.`)

	return b.String()
}

func costCenterTerm(label string) string {
	term, _, _ := strings.Cut(label, "/")
	if term == "" {
		return "location"
	}
	return term
}

func slotLabel(slot models.Slot, term string) string {
	if slot == models.SlotCostCenter {
		return term
	}
	return string(slot)
}
