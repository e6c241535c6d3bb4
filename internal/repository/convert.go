package repository

import "github.com/shopspring/decimal"

func decimalArg(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
