package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/devloops/devloops/models"
)

// QuestionViewRecorder bumps a question's view counter and the daily
// page-view aggregate after each successful question detail read.
func QuestionViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != "GET" || c.FullPath() != "/api/v1/questions/:id" {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 400 {
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			return
		}

		_ = db.Model(&models.Question{}).
			Where("id = ?", id).
			UpdateColumn("views", gorm.Expr("views + 1")).Error

		// Local midnight to align with the DATE column.
		now := time.Now().In(time.Local)
		localMidnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

		// Atomic upsert avoids duplicate key errors under concurrency.
		_ = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
		}).Create(&models.PageView{Date: localMidnight, Path: c.Request.URL.Path, Count: 1}).Error
	}
}
