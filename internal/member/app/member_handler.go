package app

import (
	"context"
	"fmt"

	"learning_chat_service/internal/member/domain"
	"learning_chat_service/pkg/logger"
	"learning_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MemberHandler 处理用户相关的 HTTP 请求
type MemberHandler struct {
	Usecase MemberUseCase
}

// NewMemberHandler 创建新的 MemberHandler
func NewMemberHandler(usecase MemberUseCase) *MemberHandler {
	return &MemberHandler{
		Usecase: usecase,
	}
}

// Register 注册新用户
// @Summary 注册新用户
// @Description 处理用户注册请求
// @Tags Members
// @Accept json
// @Produce json
// @Param request body app.RegisterParam true "注册请求"
// @Success 200 {object} string "注册成功"
// @Failure 400 {object} string "请求错误"
// @Failure 500 {object} string "服务器错误"
// @Router /member/register [post]
func (h *MemberHandler) Register(c *fiber.Ctx) error {
	type request struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
		UserType string `json:"user_type"`
	}

	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	logger.Log.Info("Register request", zap.String("email", req.Email), zap.String("username", req.Username))

	err := h.Usecase.Register(context.Background(), RegisterParam{
		Email:    req.Email,
		Username: req.Username,
		Phone:    req.Phone,
		Password: req.Password,
		UserType: req.UserType,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "register success"})
}

// Login 用户登录
// @Summary 用户登录
// @Description 用户通过邮箱和密码登录
// @Tags Members
// @Accept json
// @Produce json
// @Param request body string true "用户登录信息"
// @Success 200 {object} string "登录成功"
// @Failure 400 {object} string "请求错误"
// @Failure 401 {object} string "登录失败"
// @Router /member/login [post]
func (h *MemberHandler) Login(c *fiber.Ctx) error {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	logger.Log.Debug("Login", zap.String("Email", req.Email))

	token, err := h.Usecase.Login(context.Background(), req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"token": token, "message": "login success"})
}

// Logout 用户登出
// @Summary 用户登出
// @Description 注销用户会话
// @Tags Members
// @Accept json
// @Produce json
// @Param auth query string false "用户登出信息"
// @Success 200 {object} string "注销成功"
// @Failure 400 {object} string "请求错误"
// @Failure 500 {object} string "服务器错误"
// @Router /member/logout [post]
func (h *MemberHandler) Logout(c *fiber.Ctx) error {
	token, ok := c.Locals(middlewares.TokenRaw).(string)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fmt.Sprintf("c.Locals(%s) is nill", middlewares.TokenRaw)})
	}

	if err := h.Usecase.Logout(context.Background(), token); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "logout success"})
}

// GetProfile 查询个人资料
// @Summary 查询个人资料
// @Description 查询当前登录用户的个人资料
// @Tags Members
// @Accept json
// @Produce json
// @Success 200 {object} string "用户信息"
// @Failure 404 {object} string "未找到用户"
// @Router /member/profile [get]
func (h *MemberHandler) GetProfile(c *fiber.Ctx) error {
	memberID, ok := c.Locals(middlewares.TokenUserID).(string)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fmt.Sprintf("c.Locals(%s) is nill", middlewares.TokenUserID)})
	}

	member, err := h.Usecase.FindMember(context.Background(), &domain.MemberQuery{MemberID: &memberID})
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"member_id":     member.MemberID,
		"email":         member.Email,
		"username":      member.Username,
		"phone":         member.Phone,
		"profile_image": member.ProfileImage,
		"user_type":     member.UserType,
	})
}

// UpdateProfile 更新个人资料
// @Summary 更新个人资料
// @Description 合并更新个人资料，未带字段保持原值
// @Tags Members
// @Accept json
// @Produce json
// @Param request body string true "更新字段"
// @Success 200 {object} string "更新成功"
// @Failure 400 {object} string "请求错误"
// @Failure 500 {object} string "服务器错误"
// @Router /member/profile [put]
func (h *MemberHandler) UpdateProfile(c *fiber.Ctx) error {
	memberID, ok := c.Locals(middlewares.TokenUserID).(string)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fmt.Sprintf("c.Locals(%s) is nill", middlewares.TokenUserID)})
	}

	type request struct {
		Username *string `json:"username"`
		Phone    *string `json:"phone"`
	}

	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	err := h.Usecase.UpdateProfile(context.Background(), memberID, &domain.ProfileUpdate{
		Username: req.Username,
		Phone:    req.Phone,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "profile updated"})
}

// UploadProfileImage 上传头像
// @Summary 上传头像
// @Description 上传头像到对象存储并更新个人资料
// @Tags Members
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "头像文件"
// @Success 200 {object} string "上传成功"
// @Failure 400 {object} string "请求错误"
// @Failure 500 {object} string "服务器错误"
// @Router /member/profile/image [post]
func (h *MemberHandler) UploadProfileImage(c *fiber.Ctx) error {
	memberID, ok := c.Locals(middlewares.TokenUserID).(string)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fmt.Sprintf("c.Locals(%s) is nill", middlewares.TokenUserID)})
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image file is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	defer file.Close()

	url, err := h.Usecase.UploadProfileImage(
		context.Background(),
		memberID,
		fileHeader.Filename,
		file,
		fileHeader.Size,
		fileHeader.Header.Get("Content-Type"),
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"profile_image": url, "message": "upload success"})
}

// ListDirectory 查询用户目录
// @Summary 查询用户目录
// @Description 查询聊天目录，可按 user_type 过滤
// @Tags Members
// @Accept json
// @Produce json
// @Param user_type query string false "用户类型"
// @Success 200 {object} string "目录列表"
// @Failure 500 {object} string "服务器错误"
// @Router /member/directory [get]
func (h *MemberHandler) ListDirectory(c *fiber.Ctx) error {
	entries, err := h.Usecase.ListDirectory(context.Background(), c.Query("user_type"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"users": entries})
}
