package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devloops/devloops/models"
)

func TestAskGrantsReputationAndLogs(t *testing.T) {
	db := openTestDB(t)
	svc := NewQuestionService(db)
	ctx := context.Background()

	asker := createUser(t, db, "asker")
	question, err := svc.Ask(ctx, QuestionInput{
		Title:    "How does defer order work?",
		Content:  "LIFO or FIFO?",
		AuthorID: asker.ID,
	})
	require.NoError(t, err)
	require.NotZero(t, question.ID)

	assert.Equal(t, 5, reputationOf(t, db, asker.ID))

	var interaction models.Interaction
	require.NoError(t, db.Where("user_id = ?", asker.ID).First(&interaction).Error)
	assert.Equal(t, models.ActionAskQuestion, interaction.Action)
	require.NotNil(t, interaction.QuestionID)
	assert.Equal(t, question.ID, *interaction.QuestionID)
}

func TestAskNormalizesAndDedupesTags(t *testing.T) {
	db := openTestDB(t)
	svc := NewQuestionService(db)
	ctx := context.Background()

	asker := createUser(t, db, "asker")
	question, err := svc.Ask(ctx, QuestionInput{
		Title:    "useEffect runs twice?",
		Content:  "strict mode",
		Tags:     []string{"react", "REACT", " React ", "hooks"},
		AuthorID: asker.ID,
	})
	require.NoError(t, err)

	var tags []models.Tag
	require.NoError(t, db.Model(question).Association("Tags").Find(&tags))
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	assert.ElementsMatch(t, []string{"REACT", "HOOKS"}, names)

	var react models.Tag
	require.NoError(t, db.Where("name = ?", "REACT").First(&react).Error)
	assert.Equal(t, "Questions about REACT", react.Description)

	// A second question reuses the existing tag row.
	_, err = svc.Ask(ctx, QuestionInput{
		Title:    "react keys warning",
		Content:  "why",
		Tags:     []string{"React"},
		AuthorID: asker.ID,
	})
	require.NoError(t, err)
	var tagCount int64
	require.NoError(t, db.Model(&models.Tag{}).Where("name = ?", "REACT").Count(&tagCount).Error)
	assert.Equal(t, int64(1), tagCount)
}

func TestAskInLoopRequiresMembership(t *testing.T) {
	db := openTestDB(t)
	questions := NewQuestionService(db)
	loops := NewLoopService(db)
	ctx := context.Background()

	creator := createUser(t, db, "creator")
	outsider := createUser(t, db, "outsider")
	loop, err := loops.Create(ctx, creator.ID, LoopAttrs{Name: "Gophers", Slug: "gophers"})
	require.NoError(t, err)

	_, err = questions.Ask(ctx, QuestionInput{
		Title:    "loop question",
		Content:  "hi",
		AuthorID: outsider.ID,
		LoopID:   &loop.ID,
	})
	assert.ErrorIs(t, err, ErrNotMember)

	question, err := questions.Ask(ctx, QuestionInput{
		Title:    "loop question",
		Content:  "hi",
		AuthorID: creator.ID,
		LoopID:   &loop.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, question.LoopID)
	assert.Equal(t, loop.ID, *question.LoopID)
}

func TestEditAuthorOnly(t *testing.T) {
	db := openTestDB(t)
	svc := NewQuestionService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	other := createUser(t, db, "other")
	question, err := svc.Ask(ctx, QuestionInput{Title: "old", Content: "old body", AuthorID: author.ID})
	require.NoError(t, err)

	err = svc.Edit(ctx, question.ID, other.ID, "new", "new body", nil)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.Edit(ctx, question.ID, author.ID, "new", "new body", []string{"go"}))
	var got models.Question
	require.NoError(t, db.Preload("Tags").First(&got, question.ID).Error)
	assert.Equal(t, "new", got.Title)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "GO", got.Tags[0].Name)
}

func TestDeleteCascades(t *testing.T) {
	db := openTestDB(t)
	questions := NewQuestionService(db)
	votes := NewVoteService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	voter := createUser(t, db, "voter")
	question, err := questions.Ask(ctx, QuestionInput{
		Title:    "to be removed",
		Content:  "bye",
		Tags:     []string{"cleanup"},
		AuthorID: author.ID,
	})
	require.NoError(t, err)

	answer, err := questions.Answer(ctx, question.ID, voter.ID, "an answer")
	require.NoError(t, err)
	_, err = votes.Cast(ctx, voter.ID, VoteTarget{QuestionID: question.ID}, DirectionUp)
	require.NoError(t, err)
	_, err = votes.Cast(ctx, author.ID, VoteTarget{AnswerID: answer.ID}, DirectionDown)
	require.NoError(t, err)

	err = questions.Delete(ctx, question.ID, voter.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, questions.Delete(ctx, question.ID, author.ID))

	var answers, voteRows int64
	require.NoError(t, db.Model(&models.Answer{}).Where("question_id = ?", question.ID).Count(&answers).Error)
	require.NoError(t, db.Model(&models.Vote{}).Count(&voteRows).Error)
	assert.Zero(t, answers)
	assert.Zero(t, voteRows)

	// The audit record survives with its question reference cleared.
	var interaction models.Interaction
	require.NoError(t, db.Where("user_id = ? AND action = ?", author.ID, models.ActionAskQuestion).
		First(&interaction).Error)
	assert.Nil(t, interaction.QuestionID)

	// Reputation earned from asking is not clawed back.
	assert.Equal(t, 5, reputationOf(t, db, author.ID))
}

func TestAnswerUnknownQuestion(t *testing.T) {
	db := openTestDB(t)
	svc := NewQuestionService(db)

	user := createUser(t, db, "answerer")
	_, err := svc.Answer(context.Background(), 9999, user.ID, "hello")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAnswerAuthorOnly(t *testing.T) {
	db := openTestDB(t)
	svc := NewQuestionService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	answerer := createUser(t, db, "answerer")
	question, err := svc.Ask(ctx, QuestionInput{Title: "q", Content: "body", AuthorID: author.ID})
	require.NoError(t, err)
	answer, err := svc.Answer(ctx, question.ID, answerer.ID, "a")
	require.NoError(t, err)

	err = svc.DeleteAnswer(ctx, answer.ID, author.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.DeleteAnswer(ctx, answer.ID, answerer.ID))
	err = db.First(&models.Answer{}, answer.ID).Error
	assert.Error(t, err)
}

func TestNormalizeTag(t *testing.T) {
	assert.Equal(t, "REACT", NormalizeTag("  react "))
	assert.Equal(t, "C++", NormalizeTag("c++"))
	assert.Equal(t, "", NormalizeTag("   "))
}
