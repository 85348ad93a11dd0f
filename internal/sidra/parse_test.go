package sidra

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geodata-br/censomap/internal/census"
)

const valuesFixture = `[
  {"NC":"Nível Territorial (Código)","NN":"Nível Territorial","MC":"Unidade de Medida (Código)","MN":"Unidade de Medida","V":"Valor","D1C":"Município (Código)","D1N":"Município","D2C":"Variável (Código)","D2N":"Variável","D3C":"Ano (Código)","D3N":"Ano","D4C":"Cor ou raça (Código)","D4N":"Cor ou raça"},
  {"NC":"6","NN":"Município","MC":"45","MN":"Pessoas","V":"11451245","D1C":"3550308","D1N":"São Paulo (SP)","D2C":"93","D2N":"População residente","D3C":"2022","D3N":"2022","D4C":"0","D4N":"Total"},
  {"NC":"6","NN":"Município","MC":"45","MN":"Pessoas","V":"5575011","D1C":"3550308","D1N":"São Paulo (SP)","D2C":"93","D2N":"População residente","D3C":"2022","D3N":"2022","D4C":"2776","D4N":"Branca"},
  {"NC":"6","NN":"Município","MC":"45","MN":"Pessoas","V":"1138612","D1C":"3550308","D1N":"São Paulo (SP)","D2C":"93","D2N":"População residente","D3C":"2022","D3N":"2022","D4C":"2777","D4N":"Preta"},
  {"NC":"6","NN":"Município","MC":"45","MN":"Pessoas","V":"-","D1C":"1100015","D1N":"Alta Floresta D'Oeste (RO)","D2C":"93","D2N":"População residente","D3C":"2022","D3N":"2022","D4C":"2778","D4N":"Amarela"},
  {"NC":"6","NN":"Município","MC":"45","MN":"Pessoas","V":"...","D1C":"1100015","D1N":"Alta Floresta D'Oeste (RO)","D2C":"93","D2N":"População residente","D3C":"2022","D3N":"2022","D4C":"2780","D4N":"Indígena"}
]`

func TestParseValues(t *testing.T) {
	obs, err := ParseValues(context.Background(), strings.NewReader(valuesFixture))
	require.NoError(t, err)
	require.Len(t, obs, 5)

	total := obs[0]
	assert.Equal(t, int64(3550308), total.Code)
	assert.Equal(t, "São Paulo", total.Name)
	assert.Equal(t, census.CategoryTotal, total.Category)
	require.NotNil(t, total.Count)
	assert.Equal(t, int64(11451245), *total.Count)

	branca := obs[1]
	assert.Equal(t, census.CategoryBranca, branca.Category)
	require.NotNil(t, branca.Count)
	assert.Equal(t, int64(5575011), *branca.Count)

	// Suppressed values parse to nil counts.
	assert.Equal(t, census.CategoryAmarela, obs[3].Category)
	assert.Nil(t, obs[3].Count)
	assert.Equal(t, census.CategoryIndigena, obs[4].Category)
	assert.Nil(t, obs[4].Count)
}

func TestParseValues_DimensionOrderIndependent(t *testing.T) {
	// Same data with the cor/raça dimension in D2 instead of D4.
	fixture := `[
  {"V":"Valor","D1C":"Município (Código)","D1N":"Município","D2C":"Cor ou raça (Código)","D2N":"Cor ou raça"},
  {"V":"123","D1C":"3304557","D1N":"Rio de Janeiro (RJ)","D2C":"2779","D2N":"Parda"}
]`
	obs, err := ParseValues(context.Background(), strings.NewReader(fixture))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, census.CategoryParda, obs[0].Category)
	assert.Equal(t, "Rio de Janeiro", obs[0].Name)
}

func TestParseValues_EmptyResponse(t *testing.T) {
	_, err := ParseValues(context.Background(), strings.NewReader(`[]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestParseValues_BadHeader(t *testing.T) {
	_, err := ParseValues(context.Background(), strings.NewReader(`[{"V":"Valor"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing expected columns")
}

func TestParseValues_SkipsMalformedRows(t *testing.T) {
	fixture := `[
  {"V":"Valor","D1C":"Município (Código)","D1N":"Município","D4C":"Cor ou raça (Código)","D4N":"Cor ou raça"},
  {"V":"99","D1C":"not-a-code","D1N":"Lugar Nenhum","D4N":"Branca"},
  {"V":"99","D1C":"3550308","D1N":"São Paulo (SP)","D4N":"Fúcsia"},
  {"V":"99","D1C":"3550308","D1N":"São Paulo (SP)","D4N":"Branca"}
]`
	obs, err := ParseValues(context.Background(), strings.NewReader(fixture))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, census.CategoryBranca, obs[0].Category)
}

func TestTrimUFSuffix(t *testing.T) {
	assert.Equal(t, "São Paulo", trimUFSuffix("São Paulo (SP)"))
	assert.Equal(t, "Alta Floresta D'Oeste", trimUFSuffix("Alta Floresta D'Oeste (RO)"))
	assert.Equal(t, "Brasil", trimUFSuffix("Brasil"))
	assert.Equal(t, "X", trimUFSuffix("X"))
}
