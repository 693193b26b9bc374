// Package export renders a ledger snapshot for download.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"ledgerbook/internal/aggregate"
	"ledgerbook/internal/core"
	"ledgerbook/internal/ledger"
)

type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	YAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json"
	case YAML:
		return "application/yaml"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Filename suggests a download name for account.
func (f Format) Filename(account string) string {
	return fmt.Sprintf("ledger-%s.%s", account, f)
}

// Row is the exported form of one transaction.
type Row struct {
	OccurredAt string `json:"occurred_at" yaml:"occurred_at"`
	Kind       string `json:"kind" yaml:"kind"`
	Category   string `json:"category" yaml:"category"`
	Amount     string `json:"amount" yaml:"amount"`
	Note       string `json:"note,omitempty" yaml:"note,omitempty"`
}

type Document struct {
	Account      string `json:"account" yaml:"account"`
	Balance      string `json:"balance" yaml:"balance"`
	Transactions []Row  `json:"transactions" yaml:"transactions"`
}

// Encoder turns a ledger into bytes of one format.
type Encoder interface {
	Encode(l core.Ledger) ([]byte, error)
}

// EncoderFor picks the encoder of f. schema only shapes CSV output.
func EncoderFor(f Format, schema ledger.Schema) (Encoder, error) {
	switch f {
	case CSV:
		return CSVEncoder{Schema: schema}, nil
	case JSON:
		return JSONEncoder{}, nil
	case YAML:
		return YAMLEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
}

// Write encodes l in format f to w. CSV uses the columns of schema.
func Write(w io.Writer, f Format, schema ledger.Schema, l core.Ledger) error {
	enc, err := EncoderFor(f, schema)
	if err != nil {
		return err
	}
	data, err := enc.Encode(l)
	if err != nil {
		return fmt.Errorf("encode %s export: %w", f, err)
	}
	_, err = w.Write(data)
	return err
}

// NewDocument builds the structured export, rows newest first.
func NewDocument(l core.Ledger) Document {
	recent := aggregate.Recent(l, 0)
	rows := make([]Row, 0, len(recent))
	for _, t := range recent {
		rows = append(rows, Row{
			OccurredAt: core.FormatDate(t.OccurredAt),
			Kind:       t.Kind.String(),
			Category:   t.Category,
			Amount:     core.FormatAmount(t.Amount),
			Note:       t.Note,
		})
	}
	return Document{
		Account:      l.Account,
		Balance:      core.FormatAmount(aggregate.Balance(l)),
		Transactions: rows,
	}
}

type JSONEncoder struct{}

func (JSONEncoder) Encode(l core.Ledger) ([]byte, error) {
	return json.MarshalIndent(NewDocument(l), "", "  ")
}

type YAMLEncoder struct{}

func (YAMLEncoder) Encode(l core.Ledger) ([]byte, error) {
	return yaml.Marshal(NewDocument(l))
}

// CSVEncoder writes the columns of Schema, the revision the store uses, so an
// export can be dropped back in as a ledger document. The zero value writes
// DefaultSchema.
type CSVEncoder struct {
	Schema ledger.Schema
}

func (e CSVEncoder) Encode(l core.Ledger) ([]byte, error) {
	schema := e.Schema
	if schema == "" {
		schema = ledger.DefaultSchema
	}
	codec := ledger.Codec{Schema: schema}
	return codec.Encode(aggregate.Recent(l, 0))
}
