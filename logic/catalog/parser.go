package catalog

import (
	"context"
	"io"

	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"

	"github.com/Ethan225300/mbspro/types"
)

// Parser adapts the catalog export decoder to the eino document parser
// interface, so the file loader yields one schema.Document per item with
// the full metadata set stamped on.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

// Parse reads a whole export and emits one document per catalog record.
// Content is the item description (the embedding input); everything
// else rides in metadata.
func (p *Parser) Parse(ctx context.Context, reader io.Reader, opts ...parser.Option) ([]*schema.Document, error) {
	commonOpts := parser.GetCommonOptions(&parser.Options{}, opts...)

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	records, err := ParseExport(data, commonOpts.URI)
	if err != nil {
		return nil, err
	}

	docs := make([]*schema.Document, 0, len(records))
	for _, rec := range records {
		docs = append(docs, DocumentFor(rec))
	}
	return docs, nil
}

// DocumentFor builds the vector-store document for one record.
func DocumentFor(rec *types.CatalogRecord) *schema.Document {
	meta := map[string]any{
		types.MetaItemNum:  rec.ItemNum,
		types.MetaGroup:    rec.Group,
		types.MetaSubgroup: rec.Subgroup,
		types.MetaCategory: rec.Category,
	}
	if rec.ScheduleFee != nil {
		meta[types.MetaScheduleFee] = *rec.ScheduleFee
	} else {
		meta[types.MetaScheduleFee] = float64(0)
	}
	meta[types.MetaDurationMin] = int64(orInt(rec.DurationMinMinutes, 0))
	meta[types.MetaDurationMax] = int64(orInt(rec.DurationMaxMinutes, 0))
	meta[types.MetaDurMinIncl] = int64(boolToInt(rec.DurationMinInclusive, true))
	meta[types.MetaDurMaxIncl] = int64(boolToInt(rec.DurationMaxInclusive, false))

	status := types.ItemStatusActive
	if rec.EndDate != nil && rec.EndDate.Before(nowFunc()) {
		status = types.ItemStatusInactive
	}
	meta[types.MetaItemStatus] = int64(status)

	// Carried for the relational row; the vector store keeps them in the
	// JSON metadata field only.
	meta["subheading"] = rec.Subheading
	meta["derived_fee"] = rec.DerivedFee
	if rec.StartDate != nil {
		meta["start_date"] = rec.StartDate.Unix()
	}
	if rec.EndDate != nil {
		meta["end_date"] = rec.EndDate.Unix()
	}

	return &schema.Document{
		ID:       rec.ItemNum,
		Content:  rec.Description,
		MetaData: meta,
	}
}

func orInt(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func boolToInt(v *bool, fallback bool) int {
	b := fallback
	if v != nil {
		b = *v
	}
	if b {
		return 1
	}
	return 0
}
