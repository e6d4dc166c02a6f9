package ingest

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"pedidos/internal/core"
)

var zipMagic = []byte("PK\x03\x04")

// ReadXLSX parses the first worksheet of a workbook export.
func ReadXLSX(data []byte) (Table, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Table{}, &core.MalformedInputError{Reason: "workbook not readable", Err: err}
	}
	defer func() { _ = file.Close() }()

	sheet := file.GetSheetName(0)
	if sheet == "" {
		return Table{}, &core.MalformedInputError{Reason: "no worksheet found"}
	}
	rows, err := file.GetRows(sheet)
	if err != nil {
		return Table{}, &core.MalformedInputError{Reason: "worksheet not readable", Err: err}
	}

	// skip leading blank rows so the first populated row is the header
	for len(rows) > 0 && blankRecord(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return Table{}, &core.MalformedInputError{Reason: "worksheet is empty"}
	}

	t := Table{Header: rows[0]}
	for _, row := range rows[1:] {
		if blankRecord(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadAuto picks the reader from the file name or, failing that, the content.
func ReadAuto(name string, data []byte) (Table, error) {
	if IsWorkbook(name, data) {
		return ReadXLSX(data)
	}
	return ReadCSV(bytes.NewReader(data))
}

func IsWorkbook(name string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return true
	}
	return bytes.HasPrefix(data, zipMagic)
}
