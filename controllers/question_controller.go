package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devloops/devloops/models"
	"github.com/devloops/devloops/services"
	"github.com/devloops/devloops/utils"
)

// QuestionController manages question CRUD and listing endpoints.
type QuestionController struct {
	db        *gorm.DB
	questions services.QuestionService
	votes     services.VoteService
}

// NewQuestionController creates a QuestionController instance.
func NewQuestionController(db *gorm.DB) *QuestionController {
	return &QuestionController{
		db:        db,
		questions: services.NewQuestionService(db),
		votes:     services.NewVoteService(db),
	}
}

// CreateQuestion allows authenticated users to ask a question,
// optionally inside a loop they belong to.
func (q *QuestionController) CreateQuestion(ctx *gin.Context) {
	var req struct {
		Title   string   `json:"title" binding:"required,min=1"`
		Content string   `json:"content" binding:"required"`
		Tags    []string `json:"tags"`
		LoopID  *uint    `json:"loop_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	title := utils.SanitizeStrict(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
		return
	}
	content := utils.Sanitize(req.Content)

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	question, err := q.questions.Ask(ctx.Request.Context(), services.QuestionInput{
		Title:    title,
		Content:  content,
		Tags:     req.Tags,
		AuthorID: userID,
		LoopID:   req.LoopID,
	})
	if err != nil {
		respondServiceError(ctx, err, 50020, "failed to create question")
		return
	}

	utils.InvalidateByPrefix("cache:questions:list:")

	utils.Success(ctx, gin.H{"question": question})
}

// ListQuestions returns paginated questions with author, tags and
// recomputed vote aggregates. Filters: newest (default), frequent
// (most viewed), unanswered.
func (q *QuestionController) ListQuestions(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))
	filter := strings.TrimSpace(ctx.Query("filter"))

	// Cache filtered lists only when there is no search term to avoid
	// cache key explosion.
	cacheKey := fmt.Sprintf("cache:questions:list:filter=%s:page=%d:size=%d", filter, page, pageSize)
	if search == "" {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	query := q.db.Model(&models.Question{}).Preload("Author").Preload("Tags")
	if search != "" {
		query = query.Where("title LIKE ? OR content LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	switch filter {
	case "frequent":
		query = query.Order("views DESC")
	case "unanswered":
		query = query.Where("NOT EXISTS (SELECT 1 FROM answers WHERE answers.question_id = questions.id)").
			Order("created_at DESC")
	default:
		query = query.Order("created_at DESC")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count questions")
		return
	}
	var questions []models.Question
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&questions).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list questions")
		return
	}

	items, err := q.summarize(questions)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to list questions")
		return
	}

	payload := gin.H{
		"items":      items,
		"pagination": paginationPayload(page, pageSize, total),
	}
	if search == "" {
		utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	}
	utils.Success(ctx, payload)
}

// GetQuestion returns a single question with its author, tags, answers
// and recomputed vote totals.
func (q *QuestionController) GetQuestion(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid question id")
		return
	}

	if b, ok := utils.CacheGetBytes("cache:question:detail:" + ctx.Param("id")); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var question models.Question
	err := q.db.Preload("Author").Preload("Tags").
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Answers.Author").
		First(&question, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "question not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load question")
		return
	}

	totals, err := q.votes.Totals(ctx.Request.Context(), services.VoteTarget{QuestionID: question.ID})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load question")
		return
	}
	answers := make([]gin.H, 0, len(question.Answers))
	for _, a := range question.Answers {
		at, err := q.votes.Totals(ctx.Request.Context(), services.VoteTarget{AnswerID: a.ID})
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load question")
			return
		}
		answers = append(answers, gin.H{"answer": a, "votes": at})
	}

	payload := gin.H{"question": question, "votes": totals, "answers": answers}
	utils.CacheSetJSON("cache:question:detail:"+ctx.Param("id"),
		utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	utils.Success(ctx, payload)
}

// UpdateQuestion allows the author to edit their question.
func (q *QuestionController) UpdateQuestion(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid question id")
		return
	}
	var req struct {
		Title   string   `json:"title" binding:"required,min=1"`
		Content string   `json:"content" binding:"required"`
		Tags    []string `json:"tags"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid request payload")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	title := utils.SanitizeStrict(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
		return
	}

	err := q.questions.Edit(ctx.Request.Context(), id, userID, title, utils.Sanitize(req.Content), req.Tags)
	if err != nil {
		respondServiceError(ctx, err, 50025, "failed to update question")
		return
	}

	utils.InvalidateByPrefix("cache:questions:list:")
	utils.InvalidateByPrefix("cache:question:detail:" + ctx.Param("id"))

	utils.Success(ctx, gin.H{"message": "question updated"})
}

// DeleteQuestion allows the author to delete their question.
func (q *QuestionController) DeleteQuestion(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid question id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if err := q.questions.Delete(ctx.Request.Context(), id, userID); err != nil {
		respondServiceError(ctx, err, 50026, "failed to delete question")
		return
	}

	utils.InvalidateByPrefix("cache:questions:list:")
	utils.InvalidateByPrefix("cache:question:detail:" + ctx.Param("id"))

	utils.Success(ctx, gin.H{"message": "question deleted"})
}

// ListUserQuestions returns questions asked by a specific user (public).
func (q *QuestionController) ListUserQuestions(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid user id")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := q.db.Model(&models.Question{}).Where("author_id = ?", id).
		Preload("Author").Preload("Tags").Order("created_at DESC")
	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to count user questions")
		return
	}
	var questions []models.Question
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&questions).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to list user questions")
		return
	}
	items, err := q.summarize(questions)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to list user questions")
		return
	}
	utils.Success(ctx, gin.H{
		"items":      items,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// summarize decorates question rows with answer counts and vote
// aggregates recomputed from the ledger, batched per page.
func (q *QuestionController) summarize(questions []models.Question) ([]gin.H, error) {
	items := make([]gin.H, 0, len(questions))
	if len(questions) == 0 {
		return items, nil
	}

	ids := make([]uint, 0, len(questions))
	for _, question := range questions {
		ids = append(ids, question.ID)
	}
	ids = utils.UniqueUint(ids)

	type voteRow struct {
		QuestionID uint
		Type       string
		Cnt        int64
	}
	var voteRows []voteRow
	if err := q.db.Model(&models.Vote{}).
		Select("question_id, type, COUNT(*) AS cnt").
		Where("question_id IN ?", ids).
		Group("question_id").Group("type").
		Scan(&voteRows).Error; err != nil {
		return nil, err
	}
	up := make(map[uint]int64, len(ids))
	down := make(map[uint]int64, len(ids))
	for _, row := range voteRows {
		if row.Type == models.VoteUp {
			up[row.QuestionID] = row.Cnt
		} else {
			down[row.QuestionID] = row.Cnt
		}
	}

	type answerRow struct {
		QuestionID uint
		Cnt        int64
	}
	var answerRows []answerRow
	if err := q.db.Model(&models.Answer{}).
		Select("question_id, COUNT(*) AS cnt").
		Where("question_id IN ?", ids).
		Group("question_id").
		Scan(&answerRows).Error; err != nil {
		return nil, err
	}
	answerCounts := make(map[uint]int64, len(ids))
	for _, row := range answerRows {
		answerCounts[row.QuestionID] = row.Cnt
	}

	for _, question := range questions {
		items = append(items, gin.H{
			"question":     question,
			"answer_count": answerCounts[question.ID],
			"votes": services.VoteTotals{
				Upvotes:   up[question.ID],
				Downvotes: down[question.ID],
				Total:     up[question.ID] - down[question.ID],
			},
		})
	}
	return items, nil
}
