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

func newLoopRouter(db *gorm.DB, userID uint) *gin.Engine {
	r := gin.New()
	l := NewLoopController(db)
	r.POST("/api/v1/loops", fakeAuth(userID), l.CreateLoop)
	r.POST("/api/v1/loops/:id/join", fakeAuth(userID), l.JoinLoop)
	r.POST("/api/v1/loops/:id/leave", fakeAuth(userID), l.LeaveLoop)
	r.GET("/api/v1/loops/:id", l.GetLoop)
	r.GET("/api/v1/loops", l.ListLoops)
	return r
}

func TestCreateLoopOverHTTP(t *testing.T) {
	db := openTestDB(t)
	user := models.User{Username: "creator"}
	require.NoError(t, db.Create(&user).Error)

	r := newLoopRouter(db, user.ID)
	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/loops",
		gin.H{"name": "Go Gophers", "description": "all things Go"})
	require.Equal(t, http.StatusOK, w.Code)

	data := envelope.Data.(map[string]interface{})
	loop := data["loop"].(map[string]interface{})
	assert.Equal(t, "Go Gophers", loop["name"])
	assert.Equal(t, "go-gophers", loop["slug"])

	// Creator is seated as admin and credited.
	var member models.LoopMember
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&member).Error)
	assert.Equal(t, models.RoleAdmin, member.Role)
	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	assert.Equal(t, 20, got.Reputation)

	// Same name again conflicts.
	w, envelope = doJSON(t, r, http.MethodPost, "/api/v1/loops", gin.H{"name": "Go Gophers"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 40920, envelope.Code)
}

func TestJoinAndLeaveLoopOverHTTP(t *testing.T) {
	db := openTestDB(t)
	creator := models.User{Username: "creator"}
	joiner := models.User{Username: "joiner"}
	require.NoError(t, db.Create(&creator).Error)
	require.NoError(t, db.Create(&joiner).Error)

	creatorRouter := newLoopRouter(db, creator.ID)
	w, envelope := doJSON(t, creatorRouter, http.MethodPost, "/api/v1/loops", gin.H{"name": "Gophers"})
	require.Equal(t, http.StatusOK, w.Code)
	loopID := uint(envelope.Data.(map[string]interface{})["loop"].(map[string]interface{})["id"].(float64))

	joinerRouter := newLoopRouter(db, joiner.ID)
	w, _ = doJSON(t, joinerRouter, http.MethodPost, fmt.Sprintf("/api/v1/loops/%d/join", loopID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, envelope = doJSON(t, joinerRouter, http.MethodPost, fmt.Sprintf("/api/v1/loops/%d/join", loopID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 40921, envelope.Code)

	// The only admin is pinned while other members remain.
	w, envelope = doJSON(t, creatorRouter, http.MethodPost, fmt.Sprintf("/api/v1/loops/%d/leave", loopID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 40923, envelope.Code)

	w, _ = doJSON(t, joinerRouter, http.MethodPost, fmt.Sprintf("/api/v1/loops/%d/leave", loopID), nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestGetLoopBySlugWithCounts(t *testing.T) {
	db := openTestDB(t)
	creator := models.User{Username: "creator"}
	require.NoError(t, db.Create(&creator).Error)

	r := newLoopRouter(db, creator.ID)
	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/loops", gin.H{"name": "Gophers"})
	require.Equal(t, http.StatusOK, w.Code)

	w, envelope := doJSON(t, r, http.MethodGet, "/api/v1/loops/gophers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["member_count"])
	assert.Equal(t, float64(0), data["question_count"])

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/loops/missing-loop", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetLoopMembershipFlagOnlyWhenAuthenticated(t *testing.T) {
	db := openTestDB(t)
	creator := models.User{Username: "creator"}
	require.NoError(t, db.Create(&creator).Error)

	l := NewLoopController(db)
	r := gin.New()
	r.POST("/api/v1/loops", fakeAuth(creator.ID), l.CreateLoop)
	r.GET("/api/v1/loops/:id", l.GetLoop)
	r.GET("/api/v1/me/loops/:id", fakeAuth(creator.ID), l.GetLoop)

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/loops", gin.H{"name": "Gophers"})
	require.Equal(t, http.StatusOK, w.Code)

	// Authenticated detail carries the caller's membership.
	w, envelope := doJSON(t, r, http.MethodGet, "/api/v1/me/loops/gophers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, true, data["is_member"])

	// The anonymous response, which is the only variant that may be
	// served from cache, has no per-caller fields at all.
	w, envelope = doJSON(t, r, http.MethodGet, "/api/v1/loops/gophers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = envelope.Data.(map[string]interface{})
	_, present := data["is_member"]
	assert.False(t, present)
	assert.Equal(t, float64(1), data["member_count"])
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "go-gophers", Slugify("Go Gophers"))
	assert.Equal(t, "c-questions", Slugify("  C++ Questions!  "))
	assert.Equal(t, "", Slugify("!!!"))
}
