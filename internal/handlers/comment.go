package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/netai/social-api/internal/services"
)

type CommentHandler struct {
	commentService *services.CommentService
	replyService   *services.ReplyService
}

func NewCommentHandler(commentService *services.CommentService, replyService *services.ReplyService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		replyService:   replyService,
	}
}

// Get reads the comment id from the "id" query parameter.
func (h *CommentHandler) Get(c *gin.Context) {
	comment, err := h.commentService.Get(c.Request.Context(), c.Query("id"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "", comment)
}

func (h *CommentHandler) ListByPost(c *gin.Context) {
	skip, err := skipParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	comments, err := h.commentService.ListByPost(c.Request.Context(), c.Param("postId"), skip)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "", comments)
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req services.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	comment, err := h.commentService.Create(c.Request.Context(), c.Param("postId"), &req)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusCreated, "Commented successfully!", comment)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	if err := h.commentService.Delete(c.Request.Context(), c.Query("id"), c.Param("commentId")); err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "Deleted successfully!", nil)
}

func (h *CommentHandler) ListReplies(c *gin.Context) {
	skip, err := skipParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	replies, err := h.replyService.ListByComment(c.Request.Context(), c.Param("commentId"), skip)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "", replies)
}

func (h *CommentHandler) CreateReply(c *gin.Context) {
	var req services.CreateReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	reply, err := h.replyService.Create(c.Request.Context(), c.Param("commentId"), &req)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusCreated, "Replied successfully!", reply)
}

func (h *CommentHandler) DeleteReply(c *gin.Context) {
	if err := h.replyService.Delete(c.Request.Context(), c.Query("id"), c.Param("replyId")); err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "Deleted successfully!", nil)
}
