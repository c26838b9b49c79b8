package nullable

import (
	"github.com/shopspring/decimal"
)

// Decimal is an exact numeric column that may be NULL.
// JSON renders it as a string so no precision is lost.
type Decimal struct {
	decimal.NullDecimal
}

func (n Decimal) MarshalJSON() ([]byte, error) {
	if n.Valid {
		return n.Decimal.MarshalJSON()
	}
	return []byte("null"), nil
}

func (n *Decimal) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		n.Valid = false
		n.Decimal = decimal.Zero
		return nil
	}
	if err := n.Decimal.UnmarshalJSON(data); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n *Decimal) ForceValue() decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Decimal
}

func (n *Decimal) IsNil() bool {
	return !n.Valid
}
