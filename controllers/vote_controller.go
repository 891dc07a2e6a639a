package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devloops/devloops/services"
	"github.com/devloops/devloops/utils"
)

// VoteController exposes the vote ledger over HTTP.
type VoteController struct {
	db    *gorm.DB
	votes services.VoteService
}

// NewVoteController creates a VoteController instance.
func NewVoteController(db *gorm.DB) *VoteController {
	return &VoteController{db: db, votes: services.NewVoteService(db)}
}

type voteRequest struct {
	Direction string `json:"direction" binding:"required"`
}

// VoteQuestion toggles the caller's vote on a question.
func (v *VoteController) VoteQuestion(ctx *gin.Context) {
	v.cast(ctx, true)
}

// VoteAnswer toggles the caller's vote on an answer.
func (v *VoteController) VoteAnswer(ctx *gin.Context) {
	v.cast(ctx, false)
}

func (v *VoteController) cast(ctx *gin.Context, question bool) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40091, "invalid id")
		return
	}
	var req voteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40092, "invalid request payload")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	target := services.VoteTarget{}
	if question {
		target.QuestionID = id
	} else {
		target.AnswerID = id
	}

	result, err := v.votes.Cast(ctx.Request.Context(), userID, target, req.Direction)
	if err != nil {
		respondServiceError(ctx, err, 50090, "failed to cast vote")
		return
	}

	if question {
		utils.InvalidateByPrefix("cache:questions:list:")
		utils.InvalidateByPrefix("cache:question:detail:" + ctx.Param("id"))
	}

	utils.Success(ctx, result)
}

// VoteStatus returns the caller's current state on a question without
// side effects.
func (v *VoteController) VoteStatus(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40091, "invalid id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	state, err := v.votes.Status(ctx.Request.Context(), userID, services.VoteTarget{QuestionID: id})
	if err != nil {
		respondServiceError(ctx, err, 50091, "failed to read vote status")
		return
	}
	totals, err := v.votes.Totals(ctx.Request.Context(), services.VoteTarget{QuestionID: id})
	if err != nil {
		respondServiceError(ctx, err, 50091, "failed to read vote status")
		return
	}
	utils.Success(ctx, gin.H{"state": state, "totals": totals})
}

// CheckVote returns the caller's stored vote row for a question or
// answer, if any. Presentation uses it to restore vote-button state
// after a reload.
func (v *VoteController) CheckVote(ctx *gin.Context) {
	var req struct {
		QuestionID uint `json:"question_id"`
		AnswerID   uint `json:"answer_id"`
		UserID     uint `json:"user_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || (req.QuestionID == 0 && req.AnswerID == 0) {
		utils.Error(ctx, http.StatusBadRequest, 40093, "missing question_id/answer_id or user_id")
		return
	}

	vote, err := v.votes.Lookup(ctx.Request.Context(), req.UserID, services.VoteTarget{
		QuestionID: req.QuestionID,
		AnswerID:   req.AnswerID,
	})
	if err != nil {
		respondServiceError(ctx, err, 50092, "failed to check vote")
		return
	}
	utils.Success(ctx, gin.H{"vote": vote})
}
