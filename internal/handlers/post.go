package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/netai/social-api/internal/services"
)

type PostHandler struct {
	postService *services.PostService
}

func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

func (h *PostHandler) Create(c *gin.Context) {
	var req services.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	post, err := h.postService.Create(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusCreated, "Posted successfully!", post)
}

func (h *PostHandler) ListAll(c *gin.Context) {
	skip, err := skipParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	posts, err := h.postService.ListAll(c.Request.Context(), skip, c.Query("imageonly"), c.Query("id"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "", posts)
}

func (h *PostHandler) ListOwned(c *gin.Context) {
	h.listByUsername(c, h.postService.ListOwned)
}

func (h *PostHandler) ListMedia(c *gin.Context) {
	h.listByUsername(c, h.postService.ListMedia)
}

func (h *PostHandler) ListLiked(c *gin.Context) {
	h.listByUsername(c, h.postService.ListLiked)
}

type listFunc func(ctx context.Context, username string, skip int) ([]*services.PostView, error)

func (h *PostHandler) listByUsername(c *gin.Context, list listFunc) {
	skip, err := skipParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	posts, err := list(c.Request.Context(), c.Query("username"), skip)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "", posts)
}

func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.postService.Get(c.Request.Context(), c.Param("postId"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "", post)
}

// Delete expects the acting user in the "id" query parameter.
func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.postService.Delete(c.Request.Context(), c.Query("id"), c.Param("postId")); err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "Deleted successfully!", nil)
}

func (h *PostHandler) Like(c *gin.Context) {
	var req services.LikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.postService.ToggleLike(c.Request.Context(), req.UserID, c.Param("postId"))
	if err != nil {
		fail(c, err)
		return
	}

	message := "Disliked successfully!"
	if result.Liked {
		message = "Liked successfully!"
	}
	ok(c, http.StatusOK, message, result)
}

func (h *PostHandler) Dislike(c *gin.Context) {
	var req services.LikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.postService.Unlike(c.Request.Context(), req.UserID, c.Param("postId")); err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "Disliked successfully!", nil)
}
