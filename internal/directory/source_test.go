package directory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource(t *testing.T) {
	labs, err := NewFileSource[LabTest](seedPath, CollectionLabTests).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, labs, 2)
	assert.True(t, labs[1].RequiresFasting)

	bills, err := NewFileSource[Bill](seedPath, CollectionBills).Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, bills)
	assert.Empty(t, bills)

	customers, err := NewFileSource[Customer](seedPath, CollectionCustomers).Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, customers, "missing key yields an empty collection")
}

func TestFileSource_Errors(t *testing.T) {
	_, err := NewFileSource[Doctor](filepath.Join(t.TempDir(), "missing.json"), CollectionDoctors).Load(context.Background())
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"doctors": {"not": "an array"}}`), 0o600))
	_, err = NewFileSource[Doctor](bad, CollectionDoctors).Load(context.Background())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFileSource[Doctor](seedPath, CollectionDoctors).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidator_CustomTags(t *testing.T) {
	v := NewValidator()

	ok := Patient{ID: "p", Name: "n", Status: "active", Phone: "+234 801 234 5678", BloodGroup: "ab-"}
	assert.NoError(t, v.Struct(ok))

	badPhone := ok
	badPhone.Phone = "call me"
	assert.Error(t, v.Struct(badPhone))

	badBlood := ok
	badBlood.BloodGroup = "C+"
	err := v.Struct(badBlood)
	require.Error(t, err)
	assert.Contains(t, describeValidation(err), "bloodgroup blood_group")

	badEnum := Delivery{ID: "d", OrderNumber: "o", Recipient: "r", Kind: "drone", Status: "pending"}
	assert.Contains(t, describeValidation(v.Struct(badEnum)), "kind oneof=pharmacy ambulance")
}
