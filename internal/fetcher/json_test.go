package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRow struct {
	Code string `json:"D1C"`
	Val  string `json:"V"`
}

func TestDecodeJSONArray(t *testing.T) {
	input := `[{"D1C":"3550308","V":"1000"},{"D1C":"3304557","V":"2000"}]`

	rows, errs := DecodeJSONArray[testRow](context.Background(), strings.NewReader(input))

	var got []testRow
	for r := range rows {
		got = append(got, r)
	}
	require.NoError(t, <-errs)

	require.Len(t, got, 2)
	assert.Equal(t, "3550308", got[0].Code)
	assert.Equal(t, "2000", got[1].Val)
}

func TestDecodeJSONArray_Empty(t *testing.T) {
	rows, errs := DecodeJSONArray[testRow](context.Background(), strings.NewReader(`[]`))
	for range rows {
		t.Fatal("no rows expected")
	}
	require.NoError(t, <-errs)
}

func TestDecodeJSONArray_NotAnArray(t *testing.T) {
	rows, errs := DecodeJSONArray[testRow](context.Background(), strings.NewReader(`{"oops":1}`))
	for range rows {
	}
	err := <-errs
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected '['")
}

func TestDecodeJSONArray_MalformedElement(t *testing.T) {
	rows, errs := DecodeJSONArray[testRow](context.Background(), strings.NewReader(`[{"D1C":}]`))
	for range rows {
	}
	require.Error(t, <-errs)
}

func TestDecodeJSONObject(t *testing.T) {
	obj, err := DecodeJSONObject[testRow](strings.NewReader(`{"D1C":"1100015","V":"42"}`))
	require.NoError(t, err)
	assert.Equal(t, "1100015", obj.Code)
	assert.Equal(t, "42", obj.Val)

	_, err = DecodeJSONObject[testRow](strings.NewReader(`not json`))
	require.Error(t, err)
}

func TestParseFTPURL(t *testing.T) {
	host, path, err := parseFTPURL("ftp://geoftp.ibge.gov.br/organizacao_do_territorio/BR_Municipios_2022.zip")
	require.NoError(t, err)
	assert.Equal(t, "geoftp.ibge.gov.br:21", host)
	assert.Equal(t, "/organizacao_do_territorio/BR_Municipios_2022.zip", path)

	_, _, err = parseFTPURL("https://example.com/x.zip")
	require.Error(t, err)

	_, _, err = parseFTPURL("ftp://host.example")
	require.Error(t, err)
}
