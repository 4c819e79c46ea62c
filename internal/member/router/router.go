package router

import (
	"learning_chat_service/internal/member/app"
	"learning_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// RegisterRoutes 注册用户相关的路由
func RegisterRoutes(r *fiber.App, memberHandler *app.MemberHandler) {
	r.Get("/swagger/*", swagger.HandlerDefault)

	member := r.Group("/member")
	member.Post("/register", memberHandler.Register)
	member.Post("/login", memberHandler.Login)

	authed := member.Group("", middlewares.JWTMiddleware())
	authed.Post("/logout", memberHandler.Logout)
	authed.Get("/profile", memberHandler.GetProfile)
	authed.Put("/profile", memberHandler.UpdateProfile)
	authed.Post("/profile/image", memberHandler.UploadProfileImage)
	authed.Get("/directory", memberHandler.ListDirectory)
}
