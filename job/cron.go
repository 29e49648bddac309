package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Ethan225300/mbspro/storage/postgres"
)

// StartCronJob schedules the nightly catalog end-dating pass: items
// whose end date has passed flip to inactive at 02:00.
func StartCronJob(repo *postgres.CatalogRepo) {
	c := cron.New()

	_, _ = c.AddFunc("0 2 * * *", func() {
		ctx := context.Background()
		rows, err := repo.ExpireItems(ctx, time.Now())
		if err != nil {
			fmt.Println("[Cron] Error:", err)
		} else {
			fmt.Printf("[Cron] end-dated %d catalog items\n", rows)
		}
	})

	c.Start()
}
