package sales

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// UnmarshalJSON decodes a record leniently: missing or non-numeric amounts
// become 0 instead of failing the whole payload.
func (r *SaleRecord) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	*r = DecodeRecord(raw)
	return nil
}

// UnmarshalJSON decodes an item with the same coalescing rules as SaleRecord.
func (i *SaleItem) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	*i = DecodeItem(raw)
	return nil
}

// DecodeRecord builds a SaleRecord from loosely typed document data.
func DecodeRecord(raw map[string]any) SaleRecord {
	rec := SaleRecord{
		ID:           asString(raw["id"]),
		BranchID:     asString(raw["branchId"]),
		BranchName:   asString(raw["branchName"]),
		Date:         asString(raw["date"]),
		GrossSales:   asFloat(raw["grossSales"]),
		CashSales:    asFloat(raw["cashSales"]),
		CardSales:    asFloat(raw["cardSales"]),
		Transactions: asInt(raw["transactions"]),
	}
	if created := asString(raw["createdAt"]); created != "" {
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			rec.CreatedAt = &t
		}
	}
	if items, ok := raw["items"].([]any); ok {
		rec.Items = make([]SaleItem, 0, len(items))
		for _, entry := range items {
			if obj, ok := entry.(map[string]any); ok {
				rec.Items = append(rec.Items, DecodeItem(obj))
			}
		}
	}
	return rec
}

// DecodeItem builds a SaleItem from loosely typed document data.
func DecodeItem(raw map[string]any) SaleItem {
	return SaleItem{
		ProductID: asString(raw["productId"]),
		Name:      asString(raw["name"]),
		Category:  asString(raw["category"]),
		Qty:       asFloat(raw["qty"]),
		Price:     asFloat(raw["price"]),
		ImageURL:  asString(raw["imageUrl"]),
	}
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

func asFloat(v any) float64 {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case int32:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func asInt(v any) int64 {
	return int64(math.Round(asFloat(v)))
}

func asString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
