package retrieval

import (
	"github.com/cloudwego/eino/schema"

	"github.com/Ethan225300/mbspro/types"
)

// DocCode returns the item number carried on a retrieved document,
// falling back to the document ID.
func DocCode(doc *schema.Document) string {
	if doc.MetaData != nil {
		if v, ok := doc.MetaData[types.MetaItemNum].(string); ok && v != "" {
			return v
		}
	}
	return doc.ID
}

func docString(doc *schema.Document, key string) string {
	if doc.MetaData == nil {
		return ""
	}
	v, _ := doc.MetaData[key].(string)
	return v
}

// docInt reads a numeric metadata value regardless of whether it arrived
// as int64 (Milvus), float64 (JSON), or int (tests).
func docInt(doc *schema.Document, key string) (int, bool) {
	if doc.MetaData == nil {
		return 0, false
	}
	switch v := doc.MetaData[key].(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func docFloat(doc *schema.Document, key string) (float64, bool) {
	if doc.MetaData == nil {
		return 0, false
	}
	switch v := doc.MetaData[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// docDuration assembles the candidate's structured duration window from
// its metadata, or nil when absent.
func docDuration(doc *schema.Document) *types.Interval {
	minV, hasMin := docInt(doc, types.MetaDurationMin)
	maxV, hasMax := docInt(doc, types.MetaDurationMax)
	if !hasMin && !hasMax {
		return nil
	}
	// Zero encodes "unbounded on this side": the store cannot represent
	// null numerics.
	if minV == 0 && maxV == 0 {
		return nil
	}
	iv := &types.Interval{LeftClosed: true, RightClosed: false}
	if hasMin && minV > 0 {
		iv.Min = &minV
	}
	if hasMax && maxV > 0 {
		iv.Max = &maxV
	}
	if v, ok := docInt(doc, types.MetaDurMinIncl); ok {
		iv.LeftClosed = v != 0
	}
	if v, ok := docInt(doc, types.MetaDurMaxIncl); ok {
		iv.RightClosed = v != 0
	}
	return iv
}
