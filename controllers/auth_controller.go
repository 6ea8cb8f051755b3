package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/soltony/bnpl-engine/config"
	"github.com/soltony/bnpl-engine/services"
)

// AuthController обрабатывает аутентификацию операторов
type AuthController struct {
	userService *services.UserService
	validate    *validator.Validate
	config      *config.Config
}

// SignInRequest представляет данные для входа
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// SignInResponse представляет ответ с выданным токеном
type SignInResponse struct {
	Token string           `json:"token"`
	User  services.UserDTO `json:"user"`
}

// Claims представляет полезную нагрузку JWT токена
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// NewAuthController создает новый экземпляр AuthController
func NewAuthController(userService *services.UserService, cfg *config.Config) *AuthController {
	return &AuthController{
		userService: userService,
		validate:    validator.New(),
		config:      cfg,
	}
}

// SignIn обрабатывает запрос на вход оператора
func (c *AuthController) SignIn(ctx *gin.Context) {
	var req SignInRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// Валидируем запрос
	if err := c.validateRequest(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Ищем оператора и сверяем пароль
	user, err := c.userService.FindByEmail(req.Email)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err := c.userService.CheckPassword(user, req.Password); err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	// Выпускаем JWT токен
	expiresAt := time.Now().Add(time.Duration(c.config.JWT.ExpiresIn) * time.Hour)
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(c.config.JWT.SecretKey))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign token"})
		return
	}

	ctx.JSON(http.StatusOK, SignInResponse{
		Token: tokenString,
		User: services.UserDTO{
			ID:        user.ID,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
		},
	})
}

// validateRequest валидирует запрос и собирает сообщения об ошибках
func (c *AuthController) validateRequest(req interface{}) error {
	if err := c.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMessages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				errorMessages = append(errorMessages, "поле "+e.Field()+" обязательно")
			case "email":
				errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть корректным email")
			case "min":
				errorMessages = append(errorMessages, "поле "+e.Field()+" слишком короткое")
			}
		}
		return errors.New(strings.Join(errorMessages, "; "))
	}
	return nil
}
