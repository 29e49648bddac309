package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ethan225300/mbspro/types"
)

// CatalogRepo wraps all access to the catalog_items table.
type CatalogRepo struct {
	db *gorm.DB
}

func NewCatalogRepo(db *gorm.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// Upsert writes one catalog record, replacing an existing row with the
// same item number.
func (r *CatalogRepo) Upsert(ctx context.Context, item *CatalogItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_num"}},
			UpdateAll: true,
		}).
		Create(item).Error
}

// GetByItemNum fetches one row.
func (r *CatalogRepo) GetByItemNum(ctx context.Context, itemNum string) (*CatalogItem, error) {
	var item CatalogItem
	err := r.db.WithContext(ctx).
		Where("item_num = ?", itemNum).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Counts returns total and active item counts for /rag/status.
func (r *CatalogRepo) Counts(ctx context.Context) (total, active int64, err error) {
	if err = r.db.WithContext(ctx).Model(&CatalogItem{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.WithContext(ctx).Model(&CatalogItem{}).
		Where("item_status = ?", types.ItemStatusActive).
		Count(&active).Error
	return total, active, err
}

// Truncate wipes the table (part of /rag/clear).
func (r *CatalogRepo) Truncate(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&CatalogItem{}).Error
}

// ExpireItems marks rows whose end date has passed as inactive and
// returns the number of rows touched. Run nightly by the cron job.
func (r *CatalogRepo) ExpireItems(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&CatalogItem{}).
		Where("end_date IS NOT NULL AND end_date < ? AND item_status = ?", now, types.ItemStatusActive).
		Update("item_status", types.ItemStatusInactive)
	return result.RowsAffected, result.Error
}
