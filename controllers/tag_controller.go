package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devloops/devloops/models"
	"github.com/devloops/devloops/services"
	"github.com/devloops/devloops/utils"
)

// TagController exposes read-only tag endpoints. Tags themselves are
// created lazily when questions reference them.
type TagController struct {
	db *gorm.DB
}

// NewTagController creates a TagController instance.
func NewTagController(db *gorm.DB) *TagController {
	return &TagController{db: db}
}

// ListTags returns paginated tags with their question counts, ordered
// by usage. Search matches the normalized tag name.
func (t *TagController) ListTags(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := services.NormalizeTag(ctx.Query("search"))

	query := t.db.Model(&models.Tag{})
	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}
	query = query.Order("(SELECT COUNT(*) FROM question_tags WHERE question_tags.tag_id = tags.id) DESC").
		Order("name ASC")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to count tags")
		return
	}
	var tags []models.Tag
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&tags).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to list tags")
		return
	}

	items := make([]gin.H, 0, len(tags))
	if len(tags) > 0 {
		ids := make([]uint, 0, len(tags))
		for _, tag := range tags {
			ids = append(ids, tag.ID)
		}
		type countRow struct {
			TagID uint
			Cnt   int64
		}
		var rows []countRow
		if err := t.db.Table("question_tags").
			Select("tag_id, COUNT(*) AS cnt").
			Where("tag_id IN ?", ids).Group("tag_id").
			Scan(&rows).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to list tags")
			return
		}
		counts := make(map[uint]int64, len(ids))
		for _, row := range rows {
			counts[row.TagID] = row.Cnt
		}
		for _, tag := range tags {
			items = append(items, gin.H{"tag": tag, "question_count": counts[tag.ID]})
		}
	}

	utils.Success(ctx, gin.H{
		"items":      items,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// ListTagQuestions returns paginated questions carrying a tag. The path
// parameter is the tag name, matched case-insensitively through the
// uppercase normal form.
func (t *TagController) ListTagQuestions(ctx *gin.Context) {
	name := services.NormalizeTag(ctx.Param("name"))
	if name == "" {
		utils.Error(ctx, http.StatusBadRequest, 40070, "invalid tag name")
		return
	}

	var tag models.Tag
	if err := t.db.Where("name = ?", name).First(&tag).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40403, "tag not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50072, "failed to load tag")
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	query := t.db.Model(&models.Question{}).
		Joins("JOIN question_tags ON question_tags.question_id = questions.id").
		Where("question_tags.tag_id = ?", tag.ID).
		Preload("Author").Preload("Tags").
		Order("questions.created_at DESC")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50073, "failed to list tag questions")
		return
	}
	var questions []models.Question
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&questions).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50073, "failed to list tag questions")
		return
	}
	utils.Success(ctx, gin.H{
		"tag":        tag,
		"items":      questions,
		"pagination": paginationPayload(page, pageSize, total),
	})
}
