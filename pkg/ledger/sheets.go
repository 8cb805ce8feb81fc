package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/atina-inc/atina-engine/pkg/apperrors"
	"github.com/atina-inc/atina-engine/pkg/models"
	"github.com/atina-inc/atina-engine/pkg/retry"
)

// appendRange covers the nine ledger columns.
const appendRange = "A:I"

// headerRow is written once to any sheet that has no header yet.
var headerRow = []interface{}{
	"Timestamp", "Merchant", "Date", "Amount",
	"Category", "Cost Center", "Payment Method", "Line Items", "Submitted By",
}

// SheetsSink appends entries to per-tenant Google Sheets.
type SheetsSink struct {
	service *sheets.Service
	retry   *retry.Config
	logger  *zap.Logger

	// headerChecked tracks spreadsheets whose header row was verified this
	// process lifetime.
	headerChecked sync.Map
}

// NewSheetsSink creates a Sheets-backed ledger sink from service-account
// credentials JSON.
func NewSheetsSink(ctx context.Context, credentialsJSON []byte, retryCfg *retry.Config, logger *zap.Logger) (*SheetsSink, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ledger credentials: %w", err)
	}
	service, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	return &SheetsSink{
		service: service,
		retry:   retryCfg,
		logger:  logger.Named("ledger"),
	}, nil
}

var _ Sink = (*SheetsSink)(nil)

// Append implements Sink. Transient API failures are retried with backoff;
// permanent failures (bad spreadsheet id, revoked access) are not.
func (s *SheetsSink) Append(ctx context.Context, tenant *models.TenantConfig, entry *models.LedgerEntry) error {
	if !tenant.HasLedgerTarget() {
		return apperrors.ErrNoLedgerTarget
	}

	if err := s.ensureHeader(ctx, tenant.SpreadsheetID); err != nil {
		s.logger.Warn("Header check failed, appending anyway",
			zap.String("spreadsheet_id", tenant.SpreadsheetID),
			zap.Error(err))
	}

	row := buildRow(entry)
	err := retry.DoIfRetryable(ctx, s.retry, func() error {
		_, err := s.service.Spreadsheets.Values.
			Append(tenant.SpreadsheetID, appendRange, &sheets.ValueRange{
				Values: [][]interface{}{row},
			}).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return classify(err)
	})
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// ensureHeader writes the header row the first time a spreadsheet is seen,
// if its first row is still empty.
func (s *SheetsSink) ensureHeader(ctx context.Context, spreadsheetID string) error {
	if _, done := s.headerChecked.Load(spreadsheetID); done {
		return nil
	}

	resp, err := s.service.Spreadsheets.Values.
		Get(spreadsheetID, "A1:I1").
		Context(ctx).
		Do()
	if err != nil {
		return classify(err)
	}

	if len(resp.Values) == 0 {
		_, err = s.service.Spreadsheets.Values.
			Update(spreadsheetID, "A1:I1", &sheets.ValueRange{
				Values: [][]interface{}{headerRow},
			}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return classify(err)
		}
		s.logger.Info("Initialized ledger header", zap.String("spreadsheet_id", spreadsheetID))
	}

	s.headerChecked.Store(spreadsheetID, struct{}{})
	return nil
}

// buildRow renders an entry as the nine-column sheet row.
func buildRow(entry *models.LedgerEntry) []interface{} {
	return []interface{}{
		entry.Timestamp.Format(time.RFC3339),
		entry.Merchant,
		entry.Date,
		entry.Amount,
		entry.Category,
		entry.CostCenter,
		entry.PaymentMethod,
		entry.LineItems,
		entry.SubmittedBy,
	}
}

// apiError carries the retryability of a Sheets API failure.
type apiError struct {
	err       error
	retryable bool
}

func (e *apiError) Error() string     { return e.err.Error() }
func (e *apiError) Unwrap() error     { return e.err }
func (e *apiError) IsRetryable() bool { return e.retryable }

// classify wraps Sheets API errors with an explicit retryability decision:
// rate limits and server errors are transient, every other API error is
// permanent. Non-API errors (network) fall back to pattern matching.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		retryable := gerr.Code == 429 || gerr.Code >= 500
		return &apiError{err: err, retryable: retryable}
	}
	return err
}
