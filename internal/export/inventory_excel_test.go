package export

import (
	"bytes"
	"testing"

	"rentflow/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteInventory_RoundTrip(t *testing.T) {
	apartments := []*domain.Apartment{
		{Number: "101", Rent: domain.MustMoney("2500.00"), Status: domain.StatusAvailable, PropertyName: "Executive Tower One", PropertyCity: "Montréal"},
		{Number: "202", Rent: domain.MustMoney("3500.05"), Status: domain.StatusRented, PropertyName: "Executive Tower One", PropertyCity: "Montréal"},
		{Number: "B-1", Rent: domain.MustMoney("0.00"), Status: domain.StatusUnderMaintenance, PropertyName: "Annex", PropertyCity: "Laval"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteInventory(&buf, apartments))

	rows, err := ReadInventory(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Row{Property: "Executive Tower One", City: "Montréal", Unit: "101", Rent: domain.MustMoney("2500.00"), Status: domain.StatusAvailable}, rows[0])
	assert.Equal(t, int64(350005), rows[1].Rent.Cents())
	assert.Equal(t, domain.StatusUnderMaintenance, rows[2].Status)
}

func TestWriteInventory_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteInventory(&buf, nil))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{InventorySheet}, f.GetSheetList())

	rows, err := ReadInventory(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadInventory_RejectsForeignSheet(t *testing.T) {
	f := excelize.NewFile()
	_, err := f.NewSheet(InventorySheet)
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue(InventorySheet, "A1", "Device Type"))
	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = ReadInventory(&buf)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
