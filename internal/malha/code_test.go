package malha

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDigit(t *testing.T) {
	tests := []struct {
		prefix int64
		want   int
	}{
		{355030, 8}, // São Paulo 3550308
		{330455, 7}, // Rio de Janeiro 3304557
		{130260, 3}, // Manaus 1302603
		{530010, 8}, // Brasília 5300108
		{110001, 5}, // Alta Floresta D'Oeste 1100015
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CheckDigit(tt.prefix), "prefix %d", tt.prefix)
	}
}

func TestValidateCode(t *testing.T) {
	require.NoError(t, ValidateCode(3550308))
	require.NoError(t, ValidateCode(1302603))

	// Wrong check digit.
	require.Error(t, ValidateCode(3550309))
	// Too short / too long.
	require.Error(t, ValidateCode(355030))
	require.Error(t, ValidateCode(35503080))
	// Unknown state prefix (99).
	require.Error(t, ValidateCode(9950308))
}

func TestNormalizeCode(t *testing.T) {
	// 7-digit passes through.
	code, err := NormalizeCode(3304557)
	require.NoError(t, err)
	assert.Equal(t, int64(3304557), code)

	// Legacy 6-digit gains its check digit.
	code, err = NormalizeCode(330455)
	require.NoError(t, err)
	assert.Equal(t, int64(3304557), code)

	_, err = NormalizeCode(42)
	require.Error(t, err)
}

func TestUF(t *testing.T) {
	assert.Equal(t, "SP", UF(3550308))
	assert.Equal(t, "AM", UF(1302603))
	assert.Equal(t, "DF", UF(5300108))
	assert.Equal(t, "", UF(9999999))
}
