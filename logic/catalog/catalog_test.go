package catalog

import (
	"testing"
	"time"

	"github.com/Ethan225300/mbspro/types"
)

func TestParseExportNewSchema(t *testing.T) {
	data := []byte(`[
		{
			"item_num": 36,
			"description": "Professional attendance lasting at least 20 minutes and less than 40 minutes",
			"category": "1",
			"group": "A1",
			"subgroup": "1",
			"schedule_fee": 79.70,
			"start_date": "2020-07-01",
			"duration_min_minutes": 20,
			"duration_max_minutes": 40,
			"duration_min_inclusive": true,
			"duration_max_inclusive": false
		}
	]`)
	records, err := ParseExport(data, "mbs_catalog.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d", len(records))
	}
	rec := records[0]
	if rec.ItemNum != "36" || rec.Group != "A1" {
		t.Errorf("rec = %+v", rec)
	}
	if rec.ScheduleFee == nil || *rec.ScheduleFee != 79.70 {
		t.Errorf("fee = %v", rec.ScheduleFee)
	}
	if rec.DurationMinMinutes == nil || *rec.DurationMinMinutes != 20 {
		t.Errorf("duration min = %v", rec.DurationMinMinutes)
	}
	if rec.DurationMaxInclusive == nil || *rec.DurationMaxInclusive {
		t.Errorf("max inclusive = %v, want false", rec.DurationMaxInclusive)
	}
	if rec.StartDate == nil || rec.StartDate.Year() != 2020 {
		t.Errorf("start date = %v", rec.StartDate)
	}
}

func TestParseExportLegacySchema(t *testing.T) {
	data := []byte(`[
		{
			"ItemNum": "3",
			"Description": "Professional attendance at consulting rooms",
			"Category": "1",
			"Group": "A1",
			"ScheduleFee": 19.60,
			"ItemStartDate": "01/07/1991",
			"ItemEndDate": ""
		}
	]`)
	records, err := ParseExport(data, "legacy.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d", len(records))
	}
	rec := records[0]
	if rec.ItemNum != "3" || rec.Group != "A1" || rec.EndDate != nil {
		t.Errorf("rec = %+v", rec)
	}
	if rec.StartDate == nil || rec.StartDate.Year() != 1991 {
		t.Errorf("start date = %v", rec.StartDate)
	}
}

func TestParseExportMixedSchemas(t *testing.T) {
	data := []byte(`[
		{"item_num": "36", "description": "new schema item"},
		{"ItemNum": "3", "Description": "legacy schema item"}
	]`)
	records, err := ParseExport(data, "mixed.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].ItemNum != "36" || records[1].ItemNum != "3" {
		t.Errorf("records = %+v", records)
	}
}

func TestParseExportSkipsIncompleteRows(t *testing.T) {
	data := []byte(`[
		{"item_num": "36", "description": "ok"},
		{"item_num": "", "description": "no item number"},
		{"item_num": "44", "description": ""}
	]`)
	records, err := ParseExport(data, "partial.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ItemNum != "36" {
		t.Errorf("records = %+v", records)
	}
}

func TestParseExportCSV(t *testing.T) {
	data := []byte(`item_num,description,group,subgroup,schedule_fee,duration_min_minutes,duration_max_minutes,duration_min_inclusive,duration_max_inclusive
36,"attendance lasting at least 20 minutes",A1,1,79.70,20,40,true,false
44,"attendance lasting at least 40 minutes",A1,1,122.15,40,,true,`)
	records, err := ParseExport(data, "catalog.csv")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0].ItemNum != "36" || *records[0].DurationMaxMinutes != 40 {
		t.Errorf("rec0 = %+v", records[0])
	}
	if records[1].DurationMaxMinutes != nil {
		t.Errorf("blank csv cell must stay nil, got %v", records[1].DurationMaxMinutes)
	}
}

func TestDocumentForStampsMetadataAndStatus(t *testing.T) {
	old := nowFunc
	nowFunc = func() time.Time { return time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC) }
	defer func() { nowFunc = old }()

	past := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	min := 20
	rec := &types.CatalogRecord{
		ItemNum:            "36",
		Description:        "attendance",
		Group:              "A1",
		DurationMinMinutes: &min,
		EndDate:            &past,
	}
	doc := DocumentFor(rec)
	if doc.MetaData[types.MetaItemNum] != "36" || doc.MetaData[types.MetaGroup] != "A1" {
		t.Errorf("meta = %v", doc.MetaData)
	}
	if doc.MetaData[types.MetaDurationMin] != int64(20) {
		t.Errorf("duration meta = %v", doc.MetaData[types.MetaDurationMin])
	}
	if doc.MetaData[types.MetaItemStatus] != int64(types.ItemStatusInactive) {
		t.Errorf("end-dated item must be inactive, got %v", doc.MetaData[types.MetaItemStatus])
	}

	rec.EndDate = nil
	doc = DocumentFor(rec)
	if doc.MetaData[types.MetaItemStatus] != int64(types.ItemStatusActive) {
		t.Error("open-ended item must be active")
	}
}
