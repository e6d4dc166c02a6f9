package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pedidos/internal/core"
)

func TestReadCSVCommaDelimited(t *testing.T) {
	in := "order_id,restaurant,amount,order_date,status\n" +
		"1,A,10.00,2024-01-05,COMPLETED\n" +
		"2,B,30.00,2024-02-10,completed\n" +
		"\n" +
		"3,A,N/A,2024-01-06,CANCELLED\n"

	table, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)

	orders, err := table.Orders()
	require.NoError(t, err)
	require.Len(t, orders, 3)

	assert.Equal(t, 1, orders[0].Line)
	assert.Equal(t, "A", orders[0].Restaurant)
	assert.Equal(t, int64(1000), orders[0].Amount.Cents)
	assert.True(t, orders[0].AmountValid)
	assert.True(t, orders[0].DateValid)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), orders[0].OrderDate)

	assert.Equal(t, "COMPLETED", orders[1].Status)
	assert.False(t, orders[2].AmountValid)
	assert.Equal(t, "3", orders[2].OrderID)
}

func TestReadCSVPortugueseSemicolonExport(t *testing.T) {
	in := "\ufeffid_pedido;Restaurante;Valor;Data_Pedido;Situacao\n" +
		"p1;Pizzaria Bella;\"R$ 1.234,56\";05/01/2024 20:15;COMPLETED\n" +
		"p2;Sushi Zen;45,90;2024-01-06T19:00:00-03:00;CONCLUDED\n"

	table, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	orders, err := table.Orders()
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, "p1", orders[0].OrderID)
	assert.Equal(t, "Pizzaria Bella", orders[0].Restaurant)
	assert.Equal(t, int64(123456), orders[0].Amount.Cents)
	assert.Equal(t, 5, orders[0].OrderDate.Day())
	assert.Equal(t, time.January, orders[0].OrderDate.Month())

	assert.Equal(t, int64(4590), orders[1].Amount.Cents)
	assert.Equal(t, 19, orders[1].OrderDate.Hour(), "wall clock is kept as written")
	assert.Equal(t, time.Saturday, orders[1].OrderDate.Weekday())
}

func TestReadCSVTabDelimitedRaggedRows(t *testing.T) {
	in := "restaurant\tamount\torder_date\tstatus\textra\n" +
		"A\t10\t2024-03-01\tCOMPLETED\n" +
		"B\t5\n"

	table, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	orders, err := table.Orders()
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.True(t, orders[0].AmountValid && orders[0].DateValid)
	assert.False(t, orders[1].DateValid)
	assert.Equal(t, "", orders[1].Status)
}

func TestOrdersMissingColumns(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("restaurant,order_date\nA,2024-01-01\n"))
	require.NoError(t, err)

	_, err = table.Orders()
	var mie *core.MalformedInputError
	require.True(t, errors.As(err, &mie), "expected MalformedInputError, got %v", err)
	assert.Equal(t, []string{ColAmount, ColStatus}, mie.Missing)
}

func TestReadCSVNotTabular(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"whitespace": "  \n\n ",
		"bad quote":  "restaurant,amount,order_date,status\n\"A,10,2024-01-01,COMPLETED\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(in))
			var mie *core.MalformedInputError
			assert.True(t, errors.As(err, &mie), "expected MalformedInputError, got %v", err)
		})
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-05", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-01-05 13:45:10", time.Date(2024, 1, 5, 13, 45, 10, 0, time.UTC)},
		{"2024-01-05 13:45", time.Date(2024, 1, 5, 13, 45, 0, 0, time.UTC)},
		{"2024-01-05T13:45:10", time.Date(2024, 1, 5, 13, 45, 10, 0, time.UTC)},
		{"05/01/2024", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"31/12/2023 23:59", time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		require.NoError(t, err, tc.in)
		assert.True(t, tc.want.Equal(got), "%s: expected %v, got %v", tc.in, tc.want, got)
	}

	for _, bad := range []string{"", "yesterday", "2024-13-01", "32/01/2024"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, core.ErrInvalidDate, bad)
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]string{
		{"restaurante", "valor", "data_pedido", "status"},
		{"A", "10.00", "2024-01-05", "COMPLETED"},
		{"B", "30,00", "10/02/2024", "COMPLETED"},
	}
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellStr(sheet, cell, v))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	data := buf.Bytes()
	assert.True(t, IsWorkbook("export.bin", data))

	table, err := ReadAuto("pedidos.xlsx", data)
	require.NoError(t, err)

	orders, err := table.Orders()
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(3000), orders[1].Amount.Cents)
	assert.Equal(t, time.February, orders[1].OrderDate.Month())
}

func TestReadXLSXGarbage(t *testing.T) {
	_, err := ReadXLSX([]byte("PK\x03\x04 definitely not a workbook"))
	var mie *core.MalformedInputError
	assert.True(t, errors.As(err, &mie))
}

func TestReadAutoFallsBackToCSV(t *testing.T) {
	table, err := ReadAuto("orders.csv", []byte("restaurant,amount,order_date,status\nA,1,2024-01-01,COMPLETED\n"))
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)
}
