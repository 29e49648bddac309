package postgres

import "time"

// CatalogItem is the relational row for one MBS item. The item number
// is the natural key.
type CatalogItem struct {
	ItemNum     string `gorm:"type:varchar(16);primary_key"`
	Description string `gorm:"type:text"`
	Category    string `gorm:"type:varchar(64)"`
	GroupCode   string `gorm:"type:varchar(16);index"`
	Subgroup    string `gorm:"type:varchar(16)"`
	Subheading  string `gorm:"type:text"`

	ScheduleFee float64 `gorm:"type:decimal(10,2)"`
	DerivedFee  string  `gorm:"type:text"`

	StartDate *time.Time `gorm:"type:date"`
	EndDate   *time.Time `gorm:"type:date;index"`

	DurationMinMinutes   *int  `gorm:""`
	DurationMaxMinutes   *int  `gorm:""`
	DurationMinInclusive *bool `gorm:""`
	DurationMaxInclusive *bool `gorm:""`

	ItemStatus int `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
