package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/netai/social-api/internal/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type editProfileBody struct {
	UserID string `json:"userId" binding:"required"`
	services.EditProfileRequest
}

func (h *UserHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusCreated, "Registered successfully!", user)
}

func (h *UserHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.userService.Login(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "Login successful", user.ID)
}

func (h *UserHandler) GetByID(c *gin.Context) {
	profile, err := h.userService.GetProfileByID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "", profile)
}

func (h *UserHandler) GetByUsername(c *gin.Context) {
	profile, err := h.userService.GetProfileByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "", profile)
}

func (h *UserHandler) Search(c *gin.Context) {
	users, err := h.userService.Search(c.Request.Context(), c.Param("query"), c.Query("id"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "", users)
}

func (h *UserHandler) Suggested(c *gin.Context) {
	users, err := h.userService.Suggested(c.Request.Context(), c.Query("id"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "", users)
}

func (h *UserHandler) Activities(c *gin.Context) {
	skip, err := skipParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	activities, err := h.userService.Activities(c.Request.Context(), c.Param("userId"), c.Query("type"), skip)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "", activities)
}

func (h *UserHandler) EditProfile(c *gin.Context) {
	var body editProfileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.userService.EditProfile(c.Request.Context(), body.UserID, &body.EditProfileRequest)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "Profile updated successfully!", user)
}

func (h *UserHandler) Follow(c *gin.Context) {
	var req services.FollowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.userService.Follow(c.Request.Context(), &req); err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "Followed successfully!", nil)
}

func (h *UserHandler) Unfollow(c *gin.Context) {
	var req services.FollowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.userService.Unfollow(c.Request.Context(), &req); err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "Unfollowed successfully!", nil)
}

// Delete expects the acting user in the "id" query parameter.
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.userService.Delete(c.Request.Context(), c.Query("id"), c.Param("userId")); err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, "Account deleted successfully!", nil)
}
