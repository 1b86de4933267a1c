package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/netai/social-api/internal/models"
	"github.com/netai/social-api/internal/repository"
	"github.com/netai/social-api/pkg/logger"
)

// CascadeResult lists everything a delete removed and the users whose
// derived lists (followers, following, posts, activities) changed.
type CascadeResult struct {
	Posts         []uuid.UUID
	Comments      []uuid.UUID
	Replies       []uuid.UUID
	Activities    []uuid.UUID
	AffectedUsers []uuid.UUID
}

func (r *CascadeResult) affect(ids ...uuid.UUID) {
	r.AffectedUsers = append(r.AffectedUsers, ids...)
}

func (r *CascadeResult) retracted(activities []*models.Activity, owners []uuid.UUID) {
	for _, a := range activities {
		r.Activities = append(r.Activities, a.ID)
	}
	r.affect(owners...)
}

func (r *CascadeResult) normalize() {
	r.Posts = dedupe(r.Posts)
	r.Comments = dedupe(r.Comments)
	r.Replies = dedupe(r.Replies)
	r.Activities = dedupe(r.Activities)
	r.AffectedUsers = dedupe(r.AffectedUsers)
}

func (r *CascadeResult) String() string {
	return fmt.Sprintf("posts=%d comments=%d replies=%d activities=%d affected=%d",
		len(r.Posts), len(r.Comments), len(r.Replies), len(r.Activities), len(r.AffectedUsers))
}

// CascadeEngine deletes an entity together with everything that exists only
// in relation to it. Every procedure runs inside the caller's unit of work and
// treats an already missing target or dependent as a no-op.
type CascadeEngine struct {
	activities *ActivityService
	logger     *logger.Logger
}

func NewCascadeEngine(activities *ActivityService, logger *logger.Logger) *CascadeEngine {
	return &CascadeEngine{
		activities: activities,
		logger:     logger,
	}
}

// DeleteReply removes the reply and every activity whose content is the
// reply. found is false when the reply did not exist.
func (e *CascadeEngine) DeleteReply(ctx context.Context, tx *repository.Store, replyID uuid.UUID) (result *CascadeResult, found bool, err error) {
	result = &CascadeResult{}

	reply, err := tx.Replies.GetByID(ctx, replyID)
	if err != nil {
		return nil, false, err
	}
	if reply == nil {
		return result, false, nil
	}

	if _, err := tx.Replies.Delete(ctx, replyID); err != nil {
		return nil, false, err
	}
	result.Replies = append(result.Replies, replyID)
	result.affect(reply.UserID)

	// a reply may carry both a mention and an interaction activity
	activities, owners, err := e.activities.RetractMatching(ctx, tx, repository.ActivityQuery{
		Content: models.ReplyRef(replyID),
	})
	if err != nil {
		return nil, false, err
	}
	result.retracted(activities, owners)

	result.normalize()
	return result, true, nil
}

// DeleteComment removes the comment and its replies in bulk, then every
// activity that points at any of them.
func (e *CascadeEngine) DeleteComment(ctx context.Context, tx *repository.Store, commentID uuid.UUID) (result *CascadeResult, found bool, err error) {
	result = &CascadeResult{}

	comment, err := tx.Comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, false, err
	}
	if comment == nil {
		return result, false, nil
	}

	replyIDs, err := tx.Replies.IDsByCommentIDs(ctx, []uuid.UUID{commentID})
	if err != nil {
		return nil, false, err
	}

	if _, err := tx.Comments.Delete(ctx, commentID); err != nil {
		return nil, false, err
	}
	if err := tx.Replies.DeleteByIDs(ctx, replyIDs); err != nil {
		return nil, false, err
	}
	result.Comments = append(result.Comments, commentID)
	result.Replies = append(result.Replies, replyIDs...)
	result.affect(comment.UserID)

	targets := append([]uuid.UUID{commentID}, replyIDs...)
	activities, owners, err := e.activities.RetractTouching(ctx, tx, targets)
	if err != nil {
		return nil, false, err
	}
	result.retracted(activities, owners)

	result.normalize()
	return result, true, nil
}

// DeletePost removes the post, its likes, its comments and their replies, and
// every activity that points at any of them.
func (e *CascadeEngine) DeletePost(ctx context.Context, tx *repository.Store, postID uuid.UUID) (result *CascadeResult, found bool, err error) {
	result = &CascadeResult{}

	post, err := tx.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, false, err
	}
	if post == nil {
		return result, false, nil
	}

	commentIDs, err := tx.Comments.IDsByPostIDs(ctx, []uuid.UUID{postID})
	if err != nil {
		return nil, false, err
	}
	replyIDs, err := tx.Replies.IDsByCommentIDs(ctx, commentIDs)
	if err != nil {
		return nil, false, err
	}

	if _, err := tx.Posts.Delete(ctx, postID); err != nil {
		return nil, false, err
	}
	if err := tx.Likes.DeleteByPostIDs(ctx, []uuid.UUID{postID}); err != nil {
		return nil, false, err
	}
	if err := tx.Comments.DeleteByIDs(ctx, commentIDs); err != nil {
		return nil, false, err
	}
	if err := tx.Replies.DeleteByIDs(ctx, replyIDs); err != nil {
		return nil, false, err
	}
	result.Posts = append(result.Posts, postID)
	result.Comments = append(result.Comments, commentIDs...)
	result.Replies = append(result.Replies, replyIDs...)
	result.affect(post.UserID)

	targets := make([]uuid.UUID, 0, 1+len(commentIDs)+len(replyIDs))
	targets = append(targets, postID)
	targets = append(targets, commentIDs...)
	targets = append(targets, replyIDs...)
	activities, owners, err := e.activities.RetractTouching(ctx, tx, targets)
	if err != nil {
		return nil, false, err
	}
	result.retracted(activities, owners)

	result.normalize()
	return result, true, nil
}

// DeleteUser removes the account and everything it owns. Each step collects
// its ids with a fresh query before mutating.
func (e *CascadeEngine) DeleteUser(ctx context.Context, tx *repository.Store, userID uuid.UUID) (result *CascadeResult, found bool, err error) {
	result = &CascadeResult{}

	user, err := tx.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		return result, false, nil
	}

	// 1. account and follow edges in both directions
	followers, err := tx.Follows.FollowerIDs(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	following, err := tx.Follows.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if _, err := tx.Users.Delete(ctx, userID); err != nil {
		return nil, false, err
	}
	if err := tx.Follows.DeleteByUser(ctx, userID); err != nil {
		return nil, false, err
	}
	result.affect(userID)
	result.affect(followers...)
	result.affect(following...)

	// 2. owned posts, likes on them and likes given by the user
	postIDs, err := tx.Posts.IDsByOwner(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Posts.DeleteByIDs(ctx, postIDs); err != nil {
		return nil, false, err
	}
	if err := tx.Likes.DeleteByPostIDs(ctx, postIDs); err != nil {
		return nil, false, err
	}
	if err := tx.Likes.DeleteByUser(ctx, userID); err != nil {
		return nil, false, err
	}
	result.Posts = append(result.Posts, postIDs...)

	// 3. everyone's comments on those posts
	postComments, err := tx.Comments.IDsByPostIDs(ctx, postIDs)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Comments.DeleteByIDs(ctx, postComments); err != nil {
		return nil, false, err
	}
	result.Comments = append(result.Comments, postComments...)

	// 4. the user's comments on other posts, replies first
	ownComments, err := tx.Comments.IDsByOwnerOutside(ctx, userID, postIDs)
	if err != nil {
		return nil, false, err
	}
	ownCommentReplies, err := tx.Replies.IDsByCommentIDs(ctx, ownComments)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Replies.DeleteByIDs(ctx, ownCommentReplies); err != nil {
		return nil, false, err
	}
	if err := tx.Comments.DeleteByIDs(ctx, ownComments); err != nil {
		return nil, false, err
	}
	result.Comments = append(result.Comments, ownComments...)
	result.Replies = append(result.Replies, ownCommentReplies...)

	// 5. replies orphaned by step 3
	orphanReplies, err := tx.Replies.IDsByCommentIDs(ctx, postComments)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Replies.DeleteByIDs(ctx, orphanReplies); err != nil {
		return nil, false, err
	}
	result.Replies = append(result.Replies, orphanReplies...)

	// 6. the user's remaining replies on other comments
	ownReplies, err := tx.Replies.IDsByOwner(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Replies.DeleteByIDs(ctx, ownReplies); err != nil {
		return nil, false, err
	}
	result.Replies = append(result.Replies, ownReplies...)

	// 7. activities authored by the user
	authored, owners, err := e.activities.RetractMatching(ctx, tx, repository.ActivityQuery{AuthorID: &userID})
	if err != nil {
		return nil, false, err
	}
	result.retracted(authored, owners)

	// 8. activities the user received: sole recipient deletes, shared shrinks
	received, err := tx.Activities.Find(ctx, repository.ActivityQuery{OwnerID: &userID})
	if err != nil {
		return nil, false, err
	}
	var sole, shared []uuid.UUID
	for _, a := range received {
		if len(a.Owners) <= 1 {
			sole = append(sole, a.ID)
		} else {
			shared = append(shared, a.ID)
		}
	}
	if err := tx.Activities.DeleteByIDs(ctx, sole); err != nil {
		return nil, false, err
	}
	if err := tx.Activities.RemoveOwner(ctx, shared, userID); err != nil {
		return nil, false, err
	}
	result.Activities = append(result.Activities, sole...)

	// 9. activities pointing at anything deleted above
	targets := make([]uuid.UUID, 0, len(result.Posts)+len(result.Comments)+len(result.Replies))
	targets = append(targets, result.Posts...)
	targets = append(targets, result.Comments...)
	targets = append(targets, result.Replies...)
	touching, owners, err := e.activities.RetractTouching(ctx, tx, targets)
	if err != nil {
		return nil, false, err
	}
	result.retracted(touching, owners)

	result.normalize()

	e.logger.WithFields(map[string]interface{}{
		"user_id":    userID,
		"posts":      len(result.Posts),
		"comments":   len(result.Comments),
		"replies":    len(result.Replies),
		"activities": len(result.Activities),
	}).Debug("User cascade collected")

	return result, true, nil
}
