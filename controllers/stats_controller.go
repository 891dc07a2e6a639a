package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devloops/devloops/models"
	"github.com/devloops/devloops/services"
	"github.com/devloops/devloops/utils"
)

// StatsController provides site-wide statistics such as entity counts
// and daily view totals.
type StatsController struct {
	db    *gorm.DB
	votes services.VoteService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db, votes: services.NewVoteService(db)}
}

// GetStats returns aggregate statistics for the site.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount int64
	var questionCount int64
	var answerCount int64
	var loopCount int64
	var dailyViews int64

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}
	if err := s.db.Model(&models.Question{}).Count(&questionCount).Error; err != nil {
		questionCount = 0
	}
	if err := s.db.Model(&models.Answer{}).Count(&answerCount).Error; err != nil {
		answerCount = 0
	}
	if err := s.db.Model(&models.Loop{}).Count(&loopCount).Error; err != nil {
		loopCount = 0
	}

	// Today's views: sum of page-view aggregates at local midnight to
	// align with the DATE column.
	now := time.Now().In(time.Local)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := s.db.Model(&models.PageView{}).
		Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&dailyViews).Error; err != nil {
		dailyViews = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":     userCount,
		"question_count": questionCount,
		"answer_count":   answerCount,
		"loop_count":     loopCount,
		"daily_views":    dailyViews,
	})
}

// GetQuestionStats returns view, answer and vote aggregates for a
// question. Vote totals are recomputed from the ledger, never cached.
func (s *StatsController) GetQuestionStats(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid question id")
		return
	}

	var question models.Question
	if err := s.db.Select("id", "views").First(&question, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "question not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to load question stats")
		return
	}

	var answerCount int64
	if err := s.db.Model(&models.Answer{}).Where("question_id = ?", id).Count(&answerCount).Error; err != nil {
		answerCount = 0
	}

	totals, err := s.votes.Totals(ctx.Request.Context(), services.VoteTarget{QuestionID: id})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to load question stats")
		return
	}

	utils.Success(ctx, gin.H{
		"views":        question.Views,
		"answer_count": answerCount,
		"votes":        totals,
	})
}
