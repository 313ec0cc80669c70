package main

import (
	"blog-backend/config"
	"blog-backend/internal/api/post"
	"blog-backend/internal/api/tag"
	"blog-backend/internal/api/user"
	"blog-backend/internal/middleware"
	"blog-backend/internal/repository/mysql"
	"blog-backend/internal/service"
	"blog-backend/internal/storage"
	"blog-backend/internal/util"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

func main() {
	// 初始化配置
	config.Init()

	// 初始化日志
	util.InitLogger(config.AppConfig.LogLevel)
	defer util.Logger.Sync()

	util.Logger.Info("应用程序启动")

	// 设置数据库连接字符串
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		config.AppConfig.DBUser,
		config.AppConfig.DBPassword,
		config.AppConfig.DBHost,
		config.AppConfig.DBPort,
		config.AppConfig.DBName)

	// 连接数据库
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		util.Logger.Fatal("连接数据库失败", zap.Error(err))
	}
	defer db.Close()

	// 测试数据库连接
	if err := db.Ping(); err != nil {
		util.Logger.Fatal("数据库连接测试失败", zap.Error(err))
	}
	util.Logger.Info("数据库连接成功")

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 注册自定义验证器
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("future_date", util.ValidateFutureDate)
	}

	// 根据配置初始化文件存储后端
	fileStorage := initStorage()

	// 初始化存储库、服务和处理器
	userRepo := mysql.NewUserRepository(db)
	postRepo := mysql.NewPostRepository(db)

	emailService := service.NewEmailService()
	userService := service.NewUserService(userRepo, emailService)
	postService := service.NewPostService(postRepo, fileStorage)

	authHandler := user.NewAuthHandler(userService)
	postHandler := post.NewPostHandler(postService)
	tagHandler := tag.NewTagHandler()

	// 初始化错误监控
	errorMonitor := middleware.NewErrorMonitor()

	// 设置 Gin 路由
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.ErrorMonitorMiddleware(errorMonitor))

	// 配置 CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{config.AppConfig.FrontendURL}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	// 本地存储时直接提供上传文件的静态访问
	if config.AppConfig.StorageBackend == "local" {
		r.Static("/uploads", config.AppConfig.LocalStoragePath)
	}

	// 定义 API 路由
	api := r.Group("/api")
	{
		// 用户相关路由
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)

		authed := api.Group("/")
		authed.Use(middleware.AuthMiddleware(userService))
		{
			authed.POST("/logout", authHandler.Logout)
			authed.POST("/refresh-token", authHandler.RefreshToken)
			authed.GET("/user", authHandler.GetCurrentUser)
		}

		// 标签目录
		api.GET("/tags", tagHandler.ListTags)

		// 文章相关路由。"我的文章"各范围必须注册在 /posts/:id 之前
		api.GET("/posts", middleware.OptionalAuthMiddleware(userService), postHandler.ListPosts)
		api.GET("/posts/my", middleware.AuthMiddleware(userService), postHandler.ListMine)
		api.GET("/posts/drafts", middleware.AuthMiddleware(userService), postHandler.ListDrafts)
		api.GET("/posts/scheduled", middleware.AuthMiddleware(userService), postHandler.ListScheduled)
		api.GET("/posts/published", middleware.AuthMiddleware(userService), postHandler.ListPublished)
		api.GET("/posts/:id", middleware.OptionalAuthMiddleware(userService), postHandler.GetPost)
		api.POST("/posts", middleware.AuthMiddleware(userService), postHandler.CreatePost)
		api.PUT("/posts/:id", middleware.AuthMiddleware(userService), postHandler.UpdatePost)
		api.DELETE("/posts/:id", middleware.AuthMiddleware(userService), postHandler.DeletePost)
		api.POST("/posts/:id/like", middleware.AuthMiddleware(userService), postHandler.ToggleLike)
	}

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	// 在一个新的 goroutine 中启动服务器
	go func() {
		util.Logger.Info("服务器正在启动，监听端口 :8080")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Logger.Fatal("启动服务器失败", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	util.Logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		util.Logger.Fatal("服务器强制关闭", zap.Error(err))
	}

	util.Logger.Info("服务器已优雅关闭")
}

// initStorage 根据配置选择文件存储后端
func initStorage() storage.FileStorage {
	switch config.AppConfig.StorageBackend {
	case "s3":
		client, err := storage.NewS3Client(config.AppConfig.S3Region, config.AppConfig.S3Bucket)
		if err != nil {
			util.Logger.Fatal("初始化S3存储失败", zap.Error(err))
		}
		util.Logger.Info("使用S3存储", zap.String("bucket", config.AppConfig.S3Bucket))
		return client
	case "gcs":
		client, err := storage.NewGCSClient(config.AppConfig.GCSBucketName, config.AppConfig.GCSCredentialsFile)
		if err != nil {
			util.Logger.Fatal("初始化GCS存储失败", zap.Error(err))
		}
		util.Logger.Info("使用GCS存储", zap.String("bucket", config.AppConfig.GCSBucketName))
		return client
	default:
		local, err := storage.NewLocalStorage(config.AppConfig.LocalStoragePath)
		if err != nil {
			util.Logger.Fatal("初始化本地存储失败", zap.Error(err))
		}
		util.Logger.Info("使用本地存储", zap.String("path", config.AppConfig.LocalStoragePath))
		return local
	}
}
