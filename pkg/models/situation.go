package models

// SituationKind is the tagged situation context consumed by the dialogue
// generator. The conversation engine never drives prompt branching through
// sentinel phrases in message text; it always passes one of these tags.
type SituationKind string

const (
	SituationGreeting          SituationKind = "greeting"
	SituationAskBeneficiary    SituationKind = "ask_beneficiary"
	SituationCollectSlot       SituationKind = "collect_slot"
	SituationConfirmSkip       SituationKind = "confirm_skip"
	SituationShowSummary       SituationKind = "show_summary"
	SituationAskCorrection     SituationKind = "ask_correction"
	SituationApplyCorrection   SituationKind = "apply_correction"
	SituationDuplicate         SituationKind = "duplicate_receipt"
	SituationDuplicateDropped  SituationKind = "duplicate_dropped"
	SituationSaved             SituationKind = "receipt_saved"
	SituationSaveFailed        SituationKind = "save_failed"
	SituationExtractionFailed  SituationKind = "extraction_failed"
	SituationManagingBlocked   SituationKind = "managing_blocked"
	SituationNoLedgerTarget    SituationKind = "no_ledger_target"
)

// SituationContext carries everything the dialogue generator needs to phrase
// one turn. Prose produced from it must use CostCenterLabel, never the
// internal field name.
type SituationContext struct {
	Kind            SituationKind
	Language        string
	CostCenterLabel string
	Draft           *DraftRecord
	MissingSlot     Slot
	SkipSlot        Slot
	AskCount        int
	Categories      []string
	CostCenters     []string
	Suggestion      *PatternSuggestion
}

// StructuredFields is the machine-readable payload the dialogue generator
// may attach to a turn: slot values, explicit skip flags, or correction
// fields.
type StructuredFields struct {
	Category       string   `json:"category,omitempty"`
	CostCenter     string   `json:"cost_center,omitempty"`
	SkipCategory   bool     `json:"skip_category,omitempty"`
	SkipCostCenter bool     `json:"skip_cost_center,omitempty"`
	MerchantName   string   `json:"merchant_name,omitempty"`
	TotalAmount    *float64 `json:"total_amount,omitempty"`
	Date           string   `json:"date,omitempty"`
}

// Empty reports whether no field carries a value.
func (f *StructuredFields) Empty() bool {
	if f == nil {
		return true
	}
	return f.Category == "" && f.CostCenter == "" && !f.SkipCategory &&
		!f.SkipCostCenter && f.MerchantName == "" && f.TotalAmount == nil && f.Date == ""
}

// ManagementIntent is the classified outcome of a management-mode utterance.
type ManagementIntent struct {
	Action  string `json:"action"` // add | delete | list | exit | unclear
	Kind    string `json:"type"`   // category | cost_center | both
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ExtractedReceipt is the structured draft produced by the document
// extractor from receipt image bytes. Zero values mean the field could not
// be read.
type ExtractedReceipt struct {
	MerchantName   string     `json:"merchant_name"`
	Date           string     `json:"date"`
	TotalAmount    float64    `json:"total_amount"`
	PaymentMethod  string     `json:"payment_method"`
	LineItems      []LineItem `json:"line_items"`
	IsBankTransfer bool       `json:"is_bank_transfer"`
}
