package controllers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devloops/devloops/models"
	"github.com/devloops/devloops/services"
	"github.com/devloops/devloops/utils"
)

// LoopController manages loop communities and memberships.
type LoopController struct {
	db    *gorm.DB
	loops services.LoopService
}

// NewLoopController creates a LoopController instance.
func NewLoopController(db *gorm.DB) *LoopController {
	return &LoopController{db: db, loops: services.NewLoopService(db)}
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases a loop name and collapses runs of non-alphanumeric
// characters into single hyphens.
func Slugify(name string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(slug, "-")
}

// CreateLoop registers a new loop with the caller as its first admin.
func (l *LoopController) CreateLoop(ctx *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required,min=1,max=128"`
		Description string `json:"description"`
		Picture     string `json:"picture"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	name := utils.SanitizeStrict(strings.TrimSpace(req.Name))
	slug := Slugify(name)
	if name == "" || slug == "" {
		utils.Error(ctx, http.StatusBadRequest, 40051, "loop name cannot be empty")
		return
	}

	loop, err := l.loops.Create(ctx.Request.Context(), userID, services.LoopAttrs{
		Name:        name,
		Slug:        slug,
		Description: utils.SanitizeStrict(req.Description),
		Picture:     strings.TrimSpace(req.Picture),
	})
	if err != nil {
		respondServiceError(ctx, err, 50050, "failed to create loop")
		return
	}

	utils.InvalidateByPrefix("cache:loops:")

	utils.Success(ctx, gin.H{"loop": loop})
}

// UpdateLoop lets a loop admin change name, description or picture.
func (l *LoopController) UpdateLoop(ctx *gin.Context) {
	loopID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid loop id")
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Picture     string `json:"picture"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	err := l.loops.Edit(ctx.Request.Context(), loopID, userID, services.LoopEdit{
		Name:        utils.SanitizeStrict(strings.TrimSpace(req.Name)),
		Description: utils.SanitizeStrict(req.Description),
		Picture:     strings.TrimSpace(req.Picture),
	})
	if err != nil {
		respondServiceError(ctx, err, 50051, "failed to update loop")
		return
	}

	utils.InvalidateByPrefix("cache:loops:")

	utils.Success(ctx, gin.H{"message": "loop updated"})
}

// DeleteLoop removes a loop; its questions are detached, not deleted.
func (l *LoopController) DeleteLoop(ctx *gin.Context) {
	loopID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid loop id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if err := l.loops.Delete(ctx.Request.Context(), loopID, userID); err != nil {
		respondServiceError(ctx, err, 50052, "failed to delete loop")
		return
	}

	utils.InvalidateByPrefix("cache:loops:")
	utils.InvalidateByPrefix("cache:questions:list:")

	utils.Success(ctx, gin.H{"message": "loop deleted"})
}

// JoinLoop adds the caller to a loop as a member.
func (l *LoopController) JoinLoop(ctx *gin.Context) {
	loopID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid loop id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if err := l.loops.Join(ctx.Request.Context(), loopID, userID); err != nil {
		respondServiceError(ctx, err, 50053, "failed to join loop")
		return
	}

	utils.InvalidateByPrefix("cache:loops:")

	utils.Success(ctx, gin.H{"message": "joined loop"})
}

// LeaveLoop removes the caller's membership. The sole admin of a loop
// that still has members cannot leave.
func (l *LoopController) LeaveLoop(ctx *gin.Context) {
	loopID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid loop id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if err := l.loops.Leave(ctx.Request.Context(), loopID, userID); err != nil {
		respondServiceError(ctx, err, 50054, "failed to leave loop")
		return
	}

	utils.InvalidateByPrefix("cache:loops:")

	utils.Success(ctx, gin.H{"message": "left loop"})
}

// GetLoop returns a loop with member and question counts. The path
// parameter may be a numeric id or a slug.
func (l *LoopController) GetLoop(ctx *gin.Context) {
	// Only the anonymous response is cacheable: authenticated callers get
	// an extra is_member field that must not leak between users.
	_, authed := getUserID(ctx)
	cacheKey := "cache:loops:detail:" + ctx.Param("id")
	if !authed {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	loop, ok := l.resolveLoop(ctx)
	if !ok {
		return
	}

	var memberCount, questionCount int64
	if err := l.db.Model(&models.LoopMember{}).Where("loop_id = ?", loop.ID).Count(&memberCount).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50055, "failed to load loop")
		return
	}
	if err := l.db.Model(&models.Question{}).Where("loop_id = ?", loop.ID).Count(&questionCount).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50055, "failed to load loop")
		return
	}

	payload := gin.H{
		"loop":           loop,
		"member_count":   memberCount,
		"question_count": questionCount,
	}
	if userID, ok := getUserID(ctx); ok {
		member, err := l.loops.IsMember(ctx.Request.Context(), loop.ID, userID)
		if err == nil {
			payload["is_member"] = member
		}
	} else {
		utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	}
	utils.Success(ctx, payload)
}

// ListLoops returns paginated loops. Filters: newest (default), popular
// (most members), active (most questions). Search matches name and
// description.
func (l *LoopController) ListLoops(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))
	filter := strings.TrimSpace(ctx.Query("filter"))

	// Same rule as the question list: search terms are unbounded, so only
	// searchless pages go through the cache.
	cacheKey := fmt.Sprintf("cache:loops:list:filter=%s:page=%d:size=%d", filter, page, pageSize)
	if search == "" {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	query := l.db.Model(&models.Loop{})
	if search != "" {
		query = query.Where("name LIKE ? OR description LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	switch filter {
	case "popular":
		query = query.Order("(SELECT COUNT(*) FROM loop_members WHERE loop_members.loop_id = loops.id) DESC")
	case "active":
		query = query.Order("(SELECT COUNT(*) FROM questions WHERE questions.loop_id = loops.id) DESC")
	default:
		query = query.Order("created_at DESC")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50056, "failed to count loops")
		return
	}
	var loops []models.Loop
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&loops).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50057, "failed to list loops")
		return
	}

	items, err := l.decorate(loops)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50057, "failed to list loops")
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

// PopularLoops returns the five loops with the most members.
func (l *LoopController) PopularLoops(ctx *gin.Context) {
	const cacheKey = "cache:loops:popular"
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var loops []models.Loop
	err := l.db.Model(&models.Loop{}).
		Order("(SELECT COUNT(*) FROM loop_members WHERE loop_members.loop_id = loops.id) DESC").
		Limit(5).Find(&loops).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50057, "failed to list loops")
		return
	}
	items, err := l.decorate(loops)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50057, "failed to list loops")
		return
	}
	payload := gin.H{"items": items}
	utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	utils.Success(ctx, payload)
}

// ListMyLoops returns the loops the caller belongs to.
func (l *LoopController) ListMyLoops(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var loops []models.Loop
	err := l.db.Model(&models.Loop{}).
		Joins("JOIN loop_members ON loop_members.loop_id = loops.id").
		Where("loop_members.user_id = ?", userID).
		Order("loop_members.joined_at DESC").
		Find(&loops).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50057, "failed to list loops")
		return
	}
	items, err := l.decorate(loops)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50057, "failed to list loops")
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}

// ListLoopMembers returns paginated members of a loop with their roles.
func (l *LoopController) ListLoopMembers(ctx *gin.Context) {
	loop, ok := l.resolveLoop(ctx)
	if !ok {
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := l.db.Model(&models.LoopMember{}).Where("loop_id = ?", loop.ID).
		Preload("User").
		Order("CASE role WHEN 'admin' THEN 0 ELSE 1 END").Order("joined_at ASC")
	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50058, "failed to list members")
		return
	}
	var members []models.LoopMember
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&members).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50058, "failed to list members")
		return
	}
	utils.Success(ctx, gin.H{
		"items":      members,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// ListLoopQuestions returns paginated questions posted in a loop.
func (l *LoopController) ListLoopQuestions(ctx *gin.Context) {
	loop, ok := l.resolveLoop(ctx)
	if !ok {
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := l.db.Model(&models.Question{}).Where("loop_id = ?", loop.ID).
		Preload("Author").Preload("Tags").Order("created_at DESC")
	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50059, "failed to list loop questions")
		return
	}
	var questions []models.Question
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&questions).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50059, "failed to list loop questions")
		return
	}
	utils.Success(ctx, gin.H{
		"loop":       loop,
		"items":      questions,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// resolveLoop loads a loop by numeric id or slug from the path and
// writes the error response itself when the loop cannot be found.
func (l *LoopController) resolveLoop(ctx *gin.Context) (*models.Loop, bool) {
	param := ctx.Param("id")
	var loop models.Loop
	var err error
	if id, numeric := parseID(param); numeric {
		err = l.db.First(&loop, id).Error
	} else {
		err = l.db.Where("slug = ?", param).First(&loop).Error
	}
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40402, "loop not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50055, "failed to load loop")
		return nil, false
	}
	return &loop, true
}

// decorate attaches member and question counts to loop rows, batched
// per page.
func (l *LoopController) decorate(loops []models.Loop) ([]gin.H, error) {
	items := make([]gin.H, 0, len(loops))
	if len(loops) == 0 {
		return items, nil
	}
	ids := make([]uint, 0, len(loops))
	for _, loop := range loops {
		ids = append(ids, loop.ID)
	}

	type countRow struct {
		LoopID uint
		Cnt    int64
	}
	var memberRows []countRow
	if err := l.db.Model(&models.LoopMember{}).
		Select("loop_id, COUNT(*) AS cnt").
		Where("loop_id IN ?", ids).Group("loop_id").
		Scan(&memberRows).Error; err != nil {
		return nil, err
	}
	var questionRows []countRow
	if err := l.db.Model(&models.Question{}).
		Select("loop_id, COUNT(*) AS cnt").
		Where("loop_id IN ?", ids).Group("loop_id").
		Scan(&questionRows).Error; err != nil {
		return nil, err
	}
	memberCounts := make(map[uint]int64, len(ids))
	for _, row := range memberRows {
		memberCounts[row.LoopID] = row.Cnt
	}
	questionCounts := make(map[uint]int64, len(ids))
	for _, row := range questionRows {
		questionCounts[row.LoopID] = row.Cnt
	}

	for _, loop := range loops {
		items = append(items, gin.H{
			"loop":           loop,
			"member_count":   memberCounts[loop.ID],
			"question_count": questionCounts[loop.ID],
		})
	}
	return items, nil
}
