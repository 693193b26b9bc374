// Package google mirrors ledgers into tabs of one Google Sheets spreadsheet.
package google

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerbook/internal/aggregate"
	"ledgerbook/internal/core"
	applog "ledgerbook/internal/log"
)

// maxTitleLen is the longest tab title Sheets accepts.
const maxTitleLen = 100

type Config struct {
	SpreadsheetID   string
	SheetPrefix     string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	prefix        string
	logger        *applog.Logger
}

// NewClient creates a Sheets client authenticated with a service account.
func NewClient(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, cfg.SheetPrefix, logger), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, spreadsheetID, prefix string, logger *applog.Logger) *Client {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		prefix:        prefix,
		logger:        logger.WithComponent(applog.ComponentSheets),
	}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// SheetTitle is the tab that mirrors account. Titles over the Sheets limit are
// cut and suffixed with a digest of the full title, so distinct accounts never
// share a tab.
func (c *Client) SheetTitle(account string) string {
	title := c.prefix + account
	r := []rune(title)
	if len(r) <= maxTitleLen {
		return title
	}
	sum := sha256.Sum256([]byte(title))
	suffix := "~" + hex.EncodeToString(sum[:4])
	return string(r[:maxTitleLen-len(suffix)]) + suffix
}

// ReplaceLedger rewrites the account's tab with the ledger in display order,
// creating the tab on first use.
func (c *Client) ReplaceLedger(ctx context.Context, l core.Ledger) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	title := c.SheetTitle(l.Account)

	if err := c.ensureSheet(ctx, title); err != nil {
		return err
	}

	rng := quoteTitle(title)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	vr := &gsheet.ValueRange{Values: toValues(l)}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}

	c.logger.InfoContext(ctx, "Mirrored ledger",
		applog.FieldAccount, l.Account,
		applog.FieldOperation, applog.OpMirror,
		applog.FieldRows, l.Len(),
		"sheet", title)
	return nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}
	c.logger.InfoContext(ctx, "Created mirror sheet", "sheet", title)
	return nil
}

var header = []any{"occurred_at", "kind", "category", "amount", "note"}

// toValues lays out the mirror: a header row then one row per transaction,
// newest first, with a closing balance row.
func toValues(l core.Ledger) [][]any {
	rows := aggregate.Recent(l, 0)
	out := make([][]any, 0, len(rows)+2)
	out = append(out, header)
	for _, t := range rows {
		out = append(out, []any{
			core.FormatDate(t.OccurredAt),
			t.Kind.String(),
			t.Category,
			t.Amount.InexactFloat64(),
			t.Note,
		})
	}
	out = append(out, []any{"balance", "", "", aggregate.Balance(l).InexactFloat64(), ""})
	return out
}

// quoteTitle renders a tab title for A1 notation.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
