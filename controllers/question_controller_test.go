package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/devloops/devloops/models"
)

func newQuestionRouter(db *gorm.DB, userID uint) *gin.Engine {
	r := gin.New()
	q := NewQuestionController(db)
	a := NewAnswerController(db)
	r.POST("/api/v1/questions", fakeAuth(userID), q.CreateQuestion)
	r.PUT("/api/v1/questions/:id", fakeAuth(userID), q.UpdateQuestion)
	r.DELETE("/api/v1/questions/:id", fakeAuth(userID), q.DeleteQuestion)
	r.POST("/api/v1/questions/:id/answers", fakeAuth(userID), a.CreateAnswer)
	r.GET("/api/v1/questions", q.ListQuestions)
	r.GET("/api/v1/questions/:id", q.GetQuestion)
	return r
}

func TestCreateQuestionOverHTTP(t *testing.T) {
	db := openTestDB(t)
	user := models.User{Username: "asker"}
	require.NoError(t, db.Create(&user).Error)

	r := newQuestionRouter(db, user.ID)
	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/questions", gin.H{
		"title":   "How do I cancel a context?",
		"content": "details here",
		"tags":    []string{"go", "context"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	question := envelope.Data.(map[string]interface{})["question"].(map[string]interface{})
	assert.Equal(t, "How do I cancel a context?", question["title"])

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	assert.Equal(t, 5, got.Reputation)

	var tagCount int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&tagCount).Error)
	assert.Equal(t, int64(2), tagCount)
}

func TestCreateQuestionValidation(t *testing.T) {
	db := openTestDB(t)
	user := models.User{Username: "asker"}
	require.NoError(t, db.Create(&user).Error)

	r := newQuestionRouter(db, user.ID)
	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/questions", gin.H{"content": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListQuestionsWithAggregates(t *testing.T) {
	db := openTestDB(t)
	user := models.User{Username: "asker"}
	require.NoError(t, db.Create(&user).Error)

	r := newQuestionRouter(db, user.ID)
	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/questions", gin.H{
		"title":   "first question",
		"content": "body",
	})
	require.Equal(t, http.StatusOK, w.Code)
	questionID := uint(envelope.Data.(map[string]interface{})["question"].(map[string]interface{})["id"].(float64))

	w, _ = doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/v1/questions/%d/answers", questionID), gin.H{"content": "an answer"})
	require.Equal(t, http.StatusOK, w.Code)

	w, envelope = doJSON(t, r, http.MethodGet, "/api/v1/questions?search=first", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := envelope.Data.(map[string]interface{})
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, float64(1), item["answer_count"])
	votes := item["votes"].(map[string]interface{})
	assert.Equal(t, float64(0), votes["total"])

	pagination := data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(1), pagination["total"])
}

func TestGetQuestionNotFound(t *testing.T) {
	db := openTestDB(t)
	r := newQuestionRouter(db, 1)

	w, envelope := doJSON(t, r, http.MethodGet, "/api/v1/questions/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40401, envelope.Code)
}

func TestUpdateQuestionAuthorOnlyOverHTTP(t *testing.T) {
	db := openTestDB(t)
	author := models.User{Username: "author"}
	other := models.User{Username: "other"}
	require.NoError(t, db.Create(&author).Error)
	require.NoError(t, db.Create(&other).Error)

	authorRouter := newQuestionRouter(db, author.ID)
	w, envelope := doJSON(t, authorRouter, http.MethodPost, "/api/v1/questions", gin.H{
		"title":   "original",
		"content": "body",
	})
	require.Equal(t, http.StatusOK, w.Code)
	questionID := uint(envelope.Data.(map[string]interface{})["question"].(map[string]interface{})["id"].(float64))

	otherRouter := newQuestionRouter(db, other.ID)
	w, _ = doJSON(t, otherRouter, http.MethodPut,
		fmt.Sprintf("/api/v1/questions/%d", questionID), gin.H{"title": "hijack", "content": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doJSON(t, authorRouter, http.MethodPut,
		fmt.Sprintf("/api/v1/questions/%d", questionID), gin.H{"title": "edited", "content": "y"})
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Question
	require.NoError(t, db.First(&got, questionID).Error)
	assert.Equal(t, "edited", got.Title)
}
