// Package malha acquires municipal boundary geometries from the IBGE
// Malhas API (GeoJSON) or the geoftp shapefile distribution, normalized to
// census.Geometry records keyed by the 7-digit IBGE municipality code.
package malha

import (
	"github.com/rotisserie/eris"
)

// ufNames maps the two-digit state prefix of a municipality code to the
// state abbreviation.
var ufNames = map[int64]string{
	11: "RO", 12: "AC", 13: "AM", 14: "RR", 15: "PA", 16: "AP", 17: "TO",
	21: "MA", 22: "PI", 23: "CE", 24: "RN", 25: "PB", 26: "PE", 27: "AL",
	28: "SE", 29: "BA",
	31: "MG", 32: "ES", 33: "RJ", 35: "SP",
	41: "PR", 42: "SC", 43: "RS",
	50: "MS", 51: "MT", 52: "GO", 53: "DF",
}

// CheckDigit computes the verification digit for a 6-digit municipality
// code prefix. Weights 1 and 2 alternate over the digits; two-digit
// products contribute their digit sum.
func CheckDigit(prefix int64) int {
	digits := make([]int64, 6)
	for i := 5; i >= 0; i-- {
		digits[i] = prefix % 10
		prefix /= 10
	}

	var sum int64
	for i, d := range digits {
		p := d
		if i%2 == 1 {
			p = d * 2
		}
		if p > 9 {
			p = p/10 + p%10
		}
		sum += p
	}

	return int((10 - sum%10) % 10)
}

// ValidateCode checks that a code is a well-formed 7-digit IBGE
// municipality code: known state prefix and correct check digit.
func ValidateCode(code int64) error {
	if code < 1000000 || code > 9999999 {
		return eris.Errorf("malha: code %d is not 7 digits", code)
	}
	if _, ok := ufNames[code/100000]; !ok {
		return eris.Errorf("malha: code %d has unknown state prefix %d", code, code/100000)
	}
	if int(code%10) != CheckDigit(code/10) {
		return eris.Errorf("malha: code %d fails check digit validation", code)
	}
	return nil
}

// NormalizeCode upgrades legacy 6-digit codes by appending the check
// digit, and validates 7-digit codes as-is.
func NormalizeCode(code int64) (int64, error) {
	if code >= 100000 && code <= 999999 {
		code = code*10 + int64(CheckDigit(code))
	}
	if err := ValidateCode(code); err != nil {
		return 0, err
	}
	return code, nil
}

// UF returns the state abbreviation for a municipality code, or "" when
// the prefix is unknown.
func UF(code int64) string {
	return ufNames[code/100000]
}
