package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devloops/devloops/services"
	"github.com/devloops/devloops/utils"
)

// AnswerController manages answers on questions.
type AnswerController struct {
	questions services.QuestionService
}

// NewAnswerController creates an AnswerController instance.
func NewAnswerController(db *gorm.DB) *AnswerController {
	return &AnswerController{questions: services.NewQuestionService(db)}
}

// CreateAnswer posts an answer on a question.
func (a *AnswerController) CreateAnswer(ctx *gin.Context) {
	questionID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid question id")
		return
	}
	var req struct {
		Content string `json:"content" binding:"required,min=1"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "answer content cannot be empty")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	answer, err := a.questions.Answer(ctx.Request.Context(), questionID, userID, utils.Sanitize(req.Content))
	if err != nil {
		respondServiceError(ctx, err, 50040, "failed to create answer")
		return
	}

	utils.InvalidateByPrefix("cache:question:detail:" + ctx.Param("id"))

	utils.Success(ctx, gin.H{"answer": answer})
}

// DeleteAnswer removes an answer owned by the caller.
func (a *AnswerController) DeleteAnswer(ctx *gin.Context) {
	answerID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid answer id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if err := a.questions.DeleteAnswer(ctx.Request.Context(), answerID, userID); err != nil {
		respondServiceError(ctx, err, 50041, "failed to delete answer")
		return
	}

	utils.InvalidateByPrefix("cache:question:detail:")

	utils.Success(ctx, gin.H{"message": "answer deleted"})
}
