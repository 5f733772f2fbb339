package ingest

import (
	"strings"

	"github.com/quarrydb/quarry/pkg/types"
)

// Class is the inferred semantic class of a column. It drives both the
// storage type and the per-value conversion applied on ingestion.
type Class int

const (
	// ClassText stores the cleaned string as-is.
	ClassText Class = iota
	// ClassMoney converts currency strings to integer cents.
	ClassMoney
	// ClassDate normalizes date strings to ISO 8601 text.
	ClassDate
	// ClassInteger stores whole-number columns with integer affinity.
	ClassInteger
	// ClassReal stores fractional numeric columns with real affinity.
	ClassReal
)

// moneyTokens flag a column as currency when present in its name.
var moneyTokens = []string{
	"amount", "total", "cost", "price", "charge", "payment", "balance",
	"revenue", "income", "expense", "fee", "copay", "deductible",
}

// moneyDisqualifiers veto a money match: a name like payment_date or
// charge_code carries money vocabulary but is not an amount.
var moneyDisqualifiers = []string{
	"date", "time", "status", "code", "desc", "description", "id",
	"number", "category", "type", "flag", "name", "office", "center",
	"system",
}

// dateTokens flag a column as a date by name.
var dateTokens = []string{
	"date", "time", "created", "updated", "start", "end", "birth", "dob",
}

// sampleSize is how many data rows inference examines per column.
const sampleSize = 10

// numericThreshold is the fraction of sampled non-null values that must
// parse as numbers for a column to be classified numeric.
const numericThreshold = 0.8

// InferClass classifies one column from its cleaned name and a sample of
// its values. Name rules win over sampling: a money or date name decides
// the class before any value is examined.
func InferClass(name string, samples []string) Class {
	lower := strings.ToLower(name)

	if containsAny(lower, moneyTokens) && !containsAny(lower, moneyDisqualifiers) {
		return ClassMoney
	}
	if containsAny(lower, dateTokens) {
		return ClassDate
	}

	if n := len(samples); n > sampleSize {
		samples = samples[:sampleSize]
	}

	var nonNull, numeric, integral int
	for _, raw := range samples {
		v, ok := CleanValue(raw)
		if !ok {
			continue
		}
		nonNull++
		if looksNumeric(v) {
			numeric++
			if looksIntegral(v) {
				integral++
			}
		}
	}

	if nonNull > 0 && float64(numeric) >= numericThreshold*float64(nonNull) {
		if integral == numeric {
			return ClassInteger
		}
		return ClassReal
	}
	return ClassText
}

// StorageType maps a class to its SQLite column type.
func (c Class) StorageType() string {
	switch c {
	case ClassMoney, ClassInteger:
		return types.StorageInteger
	case ClassReal:
		return types.StorageReal
	default:
		return types.StorageText
	}
}

func (c Class) String() string {
	switch c {
	case ClassMoney:
		return "money"
	case ClassDate:
		return "date"
	case ClassInteger:
		return "integer"
	case ClassReal:
		return "real"
	default:
		return "text"
	}
}

func containsAny(name string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(name, tok) {
			return true
		}
	}
	return false
}

// convert applies the class conversion to one cleaned value. Money
// values that fail to parse become null rather than failing the row;
// a stray bad cell does not sink the whole file.
func (c Class) convert(v string) interface{} {
	switch c {
	case ClassMoney:
		cents, err := ParseMoneyCents(v)
		if err != nil {
			return nil
		}
		return cents
	case ClassDate:
		return ParseDate(v)
	default:
		return v
	}
}
