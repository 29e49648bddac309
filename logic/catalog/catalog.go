// Package catalog normalizes MBS catalog exports. Two record schemas
// are accepted: the current snake_case export and the legacy PascalCase
// one; both normalize to types.CatalogRecord.
package catalog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Ethan225300/mbspro/types"
)

// newSchemaRecord is the current export shape.
type newSchemaRecord struct {
	ItemNum              json.Number `json:"item_num"`
	Description          string      `json:"description"`
	Category             string      `json:"category"`
	Group                string      `json:"group"`
	Subgroup             string      `json:"subgroup"`
	Subheading           string      `json:"subheading"`
	ScheduleFee          *float64    `json:"schedule_fee"`
	DerivedFee           string      `json:"derived_fee"`
	StartDate            string      `json:"start_date"`
	EndDate              string      `json:"end_date"`
	DurationMinMinutes   *int        `json:"duration_min_minutes"`
	DurationMaxMinutes   *int        `json:"duration_max_minutes"`
	DurationMinInclusive *bool       `json:"duration_min_inclusive"`
	DurationMaxInclusive *bool       `json:"duration_max_inclusive"`
}

// legacySchemaRecord is the old export shape.
type legacySchemaRecord struct {
	ItemNum       json.Number `json:"ItemNum"`
	Description   string      `json:"Description"`
	Category      string      `json:"Category"`
	Group         string      `json:"Group"`
	ScheduleFee   *float64    `json:"ScheduleFee"`
	ItemStartDate string      `json:"ItemStartDate"`
	ItemEndDate   string      `json:"ItemEndDate"`
}

// ParseExport decodes a catalog export. JSON arrays may mix both record
// schemas; CSV expects the current schema's column names in the header.
func ParseExport(data []byte, filename string) ([]*types.CatalogRecord, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasSuffix(strings.ToLower(filename), ".csv") || (trimmed != "" && trimmed[0] != '[' && trimmed[0] != '{') {
		return parseCSV(data)
	}
	return parseJSON(data)
}

func parseJSON(data []byte) ([]*types.CatalogRecord, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("catalog export is not a JSON array: %v", err)
	}
	records := make([]*types.CatalogRecord, 0, len(raws))
	for i, raw := range raws {
		rec, err := parseOne(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %v", i, err)
		}
		if rec.ItemNum == "" || rec.Description == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseOne sniffs the schema by key presence.
func parseOne(raw json.RawMessage) (*types.CatalogRecord, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	// A blank item number cannot decode into json.Number; such a row is
	// incomplete, so an empty record is returned and the caller skips it.
	for _, key := range []string{"item_num", "ItemNum"} {
		if v, ok := probe[key]; ok && string(v) == `""` {
			return &types.CatalogRecord{}, nil
		}
	}
	if _, ok := probe["item_num"]; ok {
		var r newSchemaRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		return r.normalize(), nil
	}
	var r legacySchemaRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return r.normalize(), nil
}

func (r *newSchemaRecord) normalize() *types.CatalogRecord {
	return &types.CatalogRecord{
		ItemNum:              r.ItemNum.String(),
		Description:          strings.TrimSpace(r.Description),
		Category:             r.Category,
		Group:                r.Group,
		Subgroup:             r.Subgroup,
		Subheading:           r.Subheading,
		ScheduleFee:          r.ScheduleFee,
		DerivedFee:           r.DerivedFee,
		StartDate:            parseDate(r.StartDate),
		EndDate:              parseDate(r.EndDate),
		DurationMinMinutes:   r.DurationMinMinutes,
		DurationMaxMinutes:   r.DurationMaxMinutes,
		DurationMinInclusive: r.DurationMinInclusive,
		DurationMaxInclusive: r.DurationMaxInclusive,
	}
}

func (r *legacySchemaRecord) normalize() *types.CatalogRecord {
	return &types.CatalogRecord{
		ItemNum:     r.ItemNum.String(),
		Description: strings.TrimSpace(r.Description),
		Category:    r.Category,
		Group:       r.Group,
		ScheduleFee: r.ScheduleFee,
		StartDate:   parseDate(r.ItemStartDate),
		EndDate:     parseDate(r.ItemEndDate),
	}
}

func parseCSV(data []byte) ([]*types.CatalogRecord, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("catalog csv unreadable: %v", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("catalog csv has no data rows")
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []*types.CatalogRecord
	for _, row := range rows[1:] {
		rec := &types.CatalogRecord{
			ItemNum:     get(row, "item_num"),
			Description: get(row, "description"),
			Category:    get(row, "category"),
			Group:       get(row, "group"),
			Subgroup:    get(row, "subgroup"),
			Subheading:  get(row, "subheading"),
			DerivedFee:  get(row, "derived_fee"),
			StartDate:   parseDate(get(row, "start_date")),
			EndDate:     parseDate(get(row, "end_date")),
		}
		if rec.ItemNum == "" {
			rec.ItemNum = get(row, "itemnum")
		}
		if rec.Description == "" {
			rec.Description = get(row, "description")
		}
		if v := get(row, "schedule_fee"); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				rec.ScheduleFee = &f
			}
		}
		if v := get(row, "duration_min_minutes"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				rec.DurationMinMinutes = &n
			}
		}
		if v := get(row, "duration_max_minutes"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				rec.DurationMaxMinutes = &n
			}
		}
		if v := get(row, "duration_min_inclusive"); v != "" {
			b := v == "true" || v == "1"
			rec.DurationMinInclusive = &b
		}
		if v := get(row, "duration_max_inclusive"); v != "" {
			b := v == "true" || v == "1"
			rec.DurationMaxInclusive = &b
		}
		if rec.ItemNum == "" || rec.Description == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// nowFunc is swapped in tests.
var nowFunc = time.Now

var dateLayouts = []string{"2006-01-02", "02/01/2006", "02.01.2006"}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
