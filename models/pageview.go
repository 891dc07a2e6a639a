package models

import "time"

// PageView aggregates question detail views per day and path.
type PageView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:uniq_pageviews_date_path" json:"date"`
	Path      string    `gorm:"size:255;not null;uniqueIndex:uniq_pageviews_date_path" json:"path"`
	Count     int64     `gorm:"default:0" json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}
