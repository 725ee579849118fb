package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/newsboard/config"
	"github.com/cppla/newsboard/controllers"
	"github.com/cppla/newsboard/middleware"
	"github.com/cppla/newsboard/services"
	"github.com/cppla/newsboard/utils"
	"github.com/cppla/newsboard/web"
)

// Deps carries everything the handlers need. It is assembled once in main.
type Deps struct {
	Config       config.AppConfig
	DB           *gorm.DB
	Sessions     *utils.SessionManager
	States       *utils.StateStore
	Cache        *utils.ResponseCache
	Events       utils.Publisher
	Identity     utils.IdentityProvider
	Feed         *services.FeedEngine
	Interactions *services.InteractionStore
	Posts        *services.PostService
	Users        *services.UserService
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	accessLog := utils.Logger
	if cfg.GinPath != "" {
		if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg); err == nil {
			accessLog = gl
		}
	}
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(accessLog, false))
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.Session(d.Sessions))
	r.HTMLRender = web.MustRenderer()

	feedController := controllers.NewFeedController(d.Feed, d.Interactions, d.Users, d.Sessions, d.Cache)
	interactionController := controllers.NewInteractionController(d.Interactions, d.Cache, d.Events)
	postController := controllers.NewPostController(d.Posts, d.Sessions)
	userController := controllers.NewUserController(d.Users, d.Sessions)
	authController := controllers.NewAuthController(d.Identity, d.States, d.Sessions, d.Users, cfg.OIDCLogoutReturnTo)
	statsController := controllers.NewStatsController(d.DB)

	loginRequired := middleware.LoginRequired(d.Sessions)
	limited := middleware.RateLimit(cfg.RateLimitPerMinute)

	r.GET("/", feedController.Home)
	r.GET("/home", feedController.Home)
	r.GET("/about", feedController.About)
	r.GET("/newsfeed", newsfeedCORS(cfg.AllowedOrigins), feedController.NewsFeed)
	r.GET("/stats", statsController.GetStats)

	r.GET("/login", limited, authController.Login)
	r.GET("/callback", limited, authController.Callback)
	r.POST("/callback", limited, authController.Callback)
	r.GET("/logout", authController.Logout)

	r.GET("/settings", loginRequired, feedController.Settings)
	r.GET("/create_post", loginRequired, postController.NewPost)
	r.POST("/create_post", loginRequired, limited, postController.CreatePost)
	r.POST("/update_nickname", loginRequired, limited, userController.UpdateNickname)
	r.POST("/update_name", loginRequired, limited, userController.UpdateName)
	r.POST("/update_profile", loginRequired, limited, userController.UpdateProfile)

	r.POST("/update_interaction", middleware.AuthRequired(), limited, interactionController.UpdateInteraction)
	r.POST("/delete_post", middleware.AuthRequired(), limited, postController.DeletePost)
	r.POST("/update_user", middleware.AuthRequired(), limited, userController.UpdateUser)

	r.NoRoute(controllers.NotFound)

	return r
}

func newsfeedCORS(origins []string) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	return cors.New(corsCfg)
}
