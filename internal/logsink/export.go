package logsink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/vburojevic/rcw/internal/domain"
	"howett.net/plist"
)

// Format selects the export encoding
type Format string

const (
	FormatText   Format = "text"
	FormatNDJSON Format = "ndjson"
	FormatPlist  Format = "plist"
)

// Formats lists the supported export formats
var Formats = []Format{FormatText, FormatNDJSON, FormatPlist}

// TextHeaderLines is the number of header lines a text export starts with
const TextHeaderLines = 3

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatText, nil
	}
	if !lo.Contains(Formats, f) {
		return "", fmt.Errorf("unsupported export format %q (want one of %s)", s, strings.Join(lo.Map(Formats, func(f Format, _ int) string { return string(f) }), ", "))
	}
	return f, nil
}

// Extension returns the conventional file extension for the format
func (f Format) Extension() string {
	switch f {
	case FormatNDJSON:
		return ".ndjson"
	case FormatPlist:
		return ".plist"
	default:
		return ".log"
	}
}

// exportHeader is the ndjson header record
type exportHeader struct {
	Type          string `json:"type"` // "export"
	SchemaVersion int    `json:"schemaVersion"`
	Target        string `json:"target"`
	Exported      string `json:"exported"`
	Lines         int    `json:"lines"`
}

// exportLine is one ndjson line record
type exportLine struct {
	Type string `json:"type"` // "line"
	domain.LogLine
}

// plistExport is the plist document
type plistExport struct {
	Target   string           `plist:"target"`
	Exported time.Time        `plist:"exported"`
	Lines    []domain.LogLine `plist:"lines"`
}

// Encode serializes lines with a header naming the target and export time.
// It has no side effects.
func Encode(format Format, target string, at time.Time, lines []domain.LogLine) ([]byte, error) {
	switch format {
	case FormatText, "":
		return encodeText(target, at, lines), nil
	case FormatNDJSON:
		return encodeNDJSON(target, at, lines)
	case FormatPlist:
		doc := plistExport{Target: target, Exported: at.UTC(), Lines: lines}
		if doc.Lines == nil {
			doc.Lines = []domain.LogLine{}
		}
		return plist.MarshalIndent(doc, plist.XMLFormat, "\t")
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func encodeText(target string, at time.Time, lines []domain.LogLine) []byte {
	var buf bytes.Buffer
	buf.WriteString("# rcw console export\n")
	fmt.Fprintf(&buf, "# target: %s\n", target)
	fmt.Fprintf(&buf, "# exported: %s\n", at.UTC().Format(time.RFC3339))
	for _, l := range lines {
		fmt.Fprintf(&buf, "%s %s %s\n", l.Timestamp.UTC().Format(time.RFC3339Nano), l.Level.Tag(), l.Text)
	}
	return buf.Bytes()
}

func encodeNDJSON(target string, at time.Time, lines []domain.LogLine) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	header := exportHeader{
		Type:          "export",
		SchemaVersion: 1,
		Target:        target,
		Exported:      at.UTC().Format(time.RFC3339),
		Lines:         len(lines),
	}
	if err := enc.Encode(header); err != nil {
		return nil, err
	}
	for _, l := range lines {
		if err := enc.Encode(exportLine{Type: "line", LogLine: l}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
