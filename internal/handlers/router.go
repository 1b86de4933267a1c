package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/netai/social-api/pkg/logger"
)

type Router struct {
	Users         *UserHandler
	Posts         *PostHandler
	Comments      *CommentHandler
	AllowedOrigin string
	Logger        *logger.Logger
}

func (r *Router) Engine() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(r.requestLogger())
	router.Use(r.cors())

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	users := router.Group("/user")
	{
		users.POST("/register", r.Users.Register)
		users.POST("/login", r.Users.Login)
		users.PUT("/edit/profile", r.Users.EditProfile)
		users.PUT("/follow", r.Users.Follow)
		users.PUT("/unfollow", r.Users.Unfollow)
		users.GET("/suggested", r.Users.Suggested)
		users.GET("/name/:username", r.Users.GetByUsername)
		users.GET("/search/:query", r.Users.Search)
		users.GET("/activities/:userId", r.Users.Activities)
		users.GET("/:userId", r.Users.GetByID)
		users.DELETE("/:userId", r.Users.Delete)
	}

	posts := router.Group("/post")
	{
		posts.POST("/", r.Posts.Create)
		posts.GET("/", r.Posts.ListAll)
		posts.GET("/owned", r.Posts.ListOwned)
		posts.GET("/media", r.Posts.ListMedia)
		posts.GET("/liked", r.Posts.ListLiked)
		posts.GET("/:postId", r.Posts.Get)
		posts.DELETE("/:postId", r.Posts.Delete)
		posts.PUT("/like/:postId", r.Posts.Like)
		posts.PUT("/dislike/:postId", r.Posts.Dislike)
	}

	comments := router.Group("/comment")
	{
		comments.GET("/", r.Comments.Get)
		comments.GET("/:postId", r.Comments.ListByPost)
		comments.POST("/:postId", r.Comments.Create)
		comments.DELETE("/:commentId", r.Comments.Delete)
	}

	replies := router.Group("/reply")
	{
		replies.GET("/:commentId", r.Comments.ListReplies)
		replies.POST("/:commentId", r.Comments.CreateReply)
		replies.DELETE("/:replyId", r.Comments.DeleteReply)
	}

	return router
}

func (r *Router) cors() gin.HandlerFunc {
	origin := r.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (r *Router) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		r.Logger.WithFields(map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("Request handled")
	}
}
