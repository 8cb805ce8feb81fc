package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atina-inc/atina-engine/pkg/models"
)

func TestExtractJSON_FencedBlock(t *testing.T) {
	response := "Here you go!\n```json\n{\"category\": \"Maintenance\"}\n```\nAnything else?"
	got, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"category": "Maintenance"}`, got)
}

func TestExtractJSON_BareObject(t *testing.T) {
	got, err := ExtractJSON(`{"merchant_name": "Home Depot", "total_amount": 125.5}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"merchant_name": "Home Depot", "total_amount": 125.5}`, got)
}

func TestExtractJSON_ObjectEmbeddedInProse(t *testing.T) {
	response := `The extraction result is {"date": "2026-08-30"} as requested.`
	got, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date": "2026-08-30"}`, got)
}

func TestExtractJSON_NestedAndEscaped(t *testing.T) {
	response := `{"line_items": [{"description": "nails \"galvanized\"", "amount": 3.99}], "total_amount": 3.99}`
	got, err := ExtractJSON(response)
	require.NoError(t, err)

	receipt, err := ParseJSONResponse[models.ExtractedReceipt](got)
	require.NoError(t, err)
	require.Len(t, receipt.LineItems, 1)
	assert.Equal(t, `nails "galvanized"`, receipt.LineItems[0].Description)
}

func TestExtractJSON_NoJSON(t *testing.T) {
	_, err := ExtractJSON("Sorry, I could not read that receipt.")
	assert.Error(t, err)
}

func TestStripJSON(t *testing.T) {
	response := "Got it, filing under Maintenance.\n```json\n{\"category\": \"Maintenance\"}\n```"
	assert.Equal(t, "Got it, filing under Maintenance.", StripJSON(response))

	// No block: response passes through trimmed.
	assert.Equal(t, "Just text.", StripJSON("  Just text.\n"))
}

func TestParseJSONResponse_NullFieldsStayZero(t *testing.T) {
	receipt, err := ParseJSONResponse[models.ExtractedReceipt](
		`{"merchant_name": null, "date": "2026-08-30", "total_amount": null}`)
	require.NoError(t, err)
	assert.Empty(t, receipt.MerchantName)
	assert.Zero(t, receipt.TotalAmount)
	assert.Equal(t, "2026-08-30", receipt.Date)
}

func TestParseDialogue_SplitsProseAndFields(t *testing.T) {
	raw := "Perfecto, lo guardo en Mantenimiento.\n```json\n{\"category\": \"Mantenimiento\"}\n```"
	result := parseDialogue(raw)
	assert.Equal(t, "Perfecto, lo guardo en Mantenimiento.", result.Text)
	require.NotNil(t, result.Fields)
	assert.Equal(t, "Mantenimiento", result.Fields.Category)
}

func TestParseDialogue_ProseOnly(t *testing.T) {
	result := parseDialogue("¿De qué propiedad es este gasto?")
	assert.Equal(t, "¿De qué propiedad es este gasto?", result.Text)
	assert.Nil(t, result.Fields)
}

func TestParseDialogue_SkipFlags(t *testing.T) {
	raw := "Ok.\n```json\n{\"skip_cost_center\": true}\n```"
	result := parseDialogue(raw)
	require.NotNil(t, result.Fields)
	assert.True(t, result.Fields.SkipCostCenter)
	assert.False(t, result.Fields.SkipCategory)
}
