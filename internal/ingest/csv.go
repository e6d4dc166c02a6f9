package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"pedidos/internal/core"
)

var (
	delimiters = []rune{',', ';', '\t'}
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
)

// ReadCSV parses a delimited export. The delimiter is picked from the header
// line; short or long rows are tolerated and blank lines skipped.
func ReadCSV(r io.Reader) (Table, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Table{}, &core.MalformedInputError{Reason: "read failed", Err: err}
	}
	if bytes.HasPrefix(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
		head = head[len(utf8BOM):]
	}
	if len(bytes.TrimSpace(head)) == 0 {
		return Table{}, &core.MalformedInputError{Reason: "empty input"}
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(head)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return Table{}, &core.MalformedInputError{Reason: "header not readable", Err: err}
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, &core.MalformedInputError{Reason: "not tabular", Err: err}
		}
		if blankRecord(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return Table{Header: header, Rows: rows}, nil
}

func sniffDelimiter(head []byte) rune {
	line := string(head)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestCount := ',', 0
	for _, d := range delimiters {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func blankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
