package ledger

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"ledgerbook/internal/core"
)

// Schema names a revision of the on-disk column set.
type Schema string

const (
	SchemaV1 Schema = "v1" // occurred_at,category,amount,note
	SchemaV2 Schema = "v2" // occurred_at,kind,category,amount,note

	DefaultSchema = SchemaV2
)

var errFieldCount = errors.New("wrong number of fields")

func ParseSchema(s string) (Schema, error) {
	switch Schema(strings.ToLower(strings.TrimSpace(s))) {
	case SchemaV1:
		return SchemaV1, nil
	case "", SchemaV2:
		return SchemaV2, nil
	default:
		return "", fmt.Errorf("unknown ledger schema %q", s)
	}
}

// Header returns the exact column names of the revision.
func (s Schema) Header() []string {
	if s == SchemaV1 {
		return []string{"occurred_at", "category", "amount", "note"}
	}
	return []string{"occurred_at", "kind", "category", "amount", "note"}
}

func (s Schema) hasKind() bool {
	return s != SchemaV1
}

// ReadReport describes what read-repair did to a stored document.
type ReadReport struct {
	Rows        int  // transactions kept
	Dropped     int  // records discarded as unreadable
	Malformed   bool // the header did not match, so every record was discarded
	Provisioned bool // the document did not exist and was created empty
}

// Codec converts between ledger rows and CSV documents of one schema revision.
type Codec struct {
	Schema Schema
}

// Empty returns a header-only document.
func (c Codec) Empty() []byte {
	out, _ := c.Encode(nil)
	return out
}

// Encode serialises rows in the given order.
func (c Codec) Encode(rows []core.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(c.Schema.Header()); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, t := range rows {
		if err := w.Write(c.encodeRow(t)); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (c Codec) encodeRow(t core.Transaction) []string {
	date := core.FormatDate(t.OccurredAt.UTC())
	amount := core.FormatAmount(t.Amount)
	if !c.Schema.hasKind() {
		return []string{date, t.Category, amount, t.Note}
	}
	kind := t.Kind
	if kind == "" {
		kind = core.Expense
	}
	return []string{date, kind.String(), t.Category, amount, t.Note}
}

// Decode never fails: records it cannot read are counted in the report and skipped.
// A header that does not match the schema discards the whole document.
func (c Codec) Decode(data []byte) ([]core.Transaction, ReadReport) {
	var report ReadReport
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, report
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil || !c.headerMatches(header) {
		report.Malformed = true
		report.Dropped = countRecords(r)
		return nil, report
	}

	var rows []core.Transaction
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.Dropped++
			continue
		}
		t, err := c.decodeRow(rec)
		if err != nil {
			report.Dropped++
			continue
		}
		rows = append(rows, t)
	}
	report.Rows = len(rows)
	return rows, report
}

func (c Codec) headerMatches(got []string) bool {
	want := c.Schema.Header()
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if !strings.EqualFold(strings.TrimSpace(got[i]), want[i]) {
			return false
		}
	}
	return true
}

func (c Codec) decodeRow(rec []string) (core.Transaction, error) {
	if len(rec) != len(c.Schema.Header()) {
		return core.Transaction{}, errFieldCount
	}
	var kind, category, amount, note string
	if c.Schema.hasKind() {
		kind, category, amount, note = rec[1], rec[2], rec[3], rec[4]
	} else {
		category, amount, note = rec[1], rec[2], rec[3]
	}
	t, err := core.ParseTransaction(rec[0], kind, category, amount, note)
	if err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// countRecords drains r, counting both readable and unreadable records.
func countRecords(r *csv.Reader) int {
	n := 0
	for {
		_, err := r.Read()
		if errors.Is(err, io.EOF) {
			return n
		}
		n++
	}
}
