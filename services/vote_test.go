package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devloops/devloops/models"
)

func TestCastToggleSequence(t *testing.T) {
	db := openTestDB(t)
	svc := NewVoteService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	voter := createUser(t, db, "voter")
	question := createQuestion(t, db, author.ID, "How do goroutines leak?")
	target := VoteTarget{QuestionID: question.ID}

	res, err := svc.Cast(ctx, voter.ID, target, DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, StateUpvoted, res.State)
	assert.Equal(t, int64(1), res.Totals.Total)

	// Same direction again toggles the vote off.
	res, err = svc.Cast(ctx, voter.ID, target, DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, StateNone, res.State)
	assert.Equal(t, int64(0), res.Totals.Total)

	res, err = svc.Cast(ctx, voter.ID, target, DirectionDown)
	require.NoError(t, err)
	assert.Equal(t, StateDownvoted, res.State)
	assert.Equal(t, int64(-1), res.Totals.Total)

	// Opposite direction flips in place.
	res, err = svc.Cast(ctx, voter.ID, target, DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, StateUpvoted, res.State)
	assert.Equal(t, VoteTotals{Upvotes: 1, Downvotes: 0, Total: 1}, res.Totals)
}

func TestCastKeepsSingleRowPerVoter(t *testing.T) {
	db := openTestDB(t)
	svc := NewVoteService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	voter := createUser(t, db, "voter")
	question := createQuestion(t, db, author.ID, "Why does append reallocate?")
	target := VoteTarget{QuestionID: question.ID}

	_, err := svc.Cast(ctx, voter.ID, target, DirectionUp)
	require.NoError(t, err)
	_, err = svc.Cast(ctx, voter.ID, target, DirectionDown)
	require.NoError(t, err)

	var cnt int64
	require.NoError(t, db.Model(&models.Vote{}).
		Where("user_id = ? AND question_id = ?", voter.ID, question.ID).
		Count(&cnt).Error)
	assert.Equal(t, int64(1), cnt)
}

func TestCastRejectsUnknownDirection(t *testing.T) {
	db := openTestDB(t)
	svc := NewVoteService(db)

	author := createUser(t, db, "author")
	voter := createUser(t, db, "voter")
	question := createQuestion(t, db, author.ID, "What is a nil map?")

	_, err := svc.Cast(context.Background(), voter.ID, VoteTarget{QuestionID: question.ID}, "sideways")
	assert.ErrorIs(t, err, ErrInvalidVote)
}

func TestCastMissingVoterOrTarget(t *testing.T) {
	db := openTestDB(t)
	svc := NewVoteService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	question := createQuestion(t, db, author.ID, "Channels vs mutexes?")

	_, err := svc.Cast(ctx, 9999, VoteTarget{QuestionID: question.ID}, DirectionUp)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Cast(ctx, author.ID, VoteTarget{QuestionID: 9999}, DirectionUp)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Cast(ctx, author.ID, VoteTarget{}, DirectionUp)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnswerVotesIndependentOfQuestionVotes(t *testing.T) {
	db := openTestDB(t)
	svc := NewVoteService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	voter := createUser(t, db, "voter")
	question := createQuestion(t, db, author.ID, "Error wrapping idioms?")
	answer := models.Answer{QuestionID: question.ID, AuthorID: author.ID, Content: "Use %w."}
	require.NoError(t, db.Create(&answer).Error)

	_, err := svc.Cast(ctx, voter.ID, VoteTarget{QuestionID: question.ID}, DirectionUp)
	require.NoError(t, err)
	_, err = svc.Cast(ctx, voter.ID, VoteTarget{AnswerID: answer.ID}, DirectionDown)
	require.NoError(t, err)

	qTotals, err := svc.Totals(ctx, VoteTarget{QuestionID: question.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), qTotals.Total)

	aTotals, err := svc.Totals(ctx, VoteTarget{AnswerID: answer.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), aTotals.Total)
}

func TestStatusAndLookup(t *testing.T) {
	db := openTestDB(t)
	svc := NewVoteService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	voter := createUser(t, db, "voter")
	question := createQuestion(t, db, author.ID, "When to use iota?")
	target := VoteTarget{QuestionID: question.ID}

	state, err := svc.Status(ctx, voter.ID, target)
	require.NoError(t, err)
	assert.Equal(t, StateNone, state)

	vote, err := svc.Lookup(ctx, voter.ID, target)
	require.NoError(t, err)
	assert.Nil(t, vote)

	_, err = svc.Cast(ctx, voter.ID, target, DirectionDown)
	require.NoError(t, err)

	state, err = svc.Status(ctx, voter.ID, target)
	require.NoError(t, err)
	assert.Equal(t, StateDownvoted, state)

	vote, err = svc.Lookup(ctx, voter.ID, target)
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, models.VoteDown, vote.Type)
}

func TestVotingNeverChangesReputation(t *testing.T) {
	db := openTestDB(t)
	svc := NewVoteService(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	voter := createUser(t, db, "voter")
	question := createQuestion(t, db, author.ID, "Struct embedding pitfalls?")

	_, err := svc.Cast(ctx, voter.ID, VoteTarget{QuestionID: question.ID}, DirectionUp)
	require.NoError(t, err)

	assert.Equal(t, 0, reputationOf(t, db, author.ID))
	assert.Equal(t, 0, reputationOf(t, db, voter.ID))
}
