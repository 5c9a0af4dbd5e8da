package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ricckyzdev/customerhub/internal/config"
	"github.com/ricckyzdev/customerhub/internal/domain/user"
	"github.com/ricckyzdev/customerhub/internal/security"
)

type UsersStore interface {
	List(ctx context.Context) ([]user.PublicUser, error)
	Create(ctx context.Context, name, email, passwordHash string) (user.PublicUser, error)
	Update(ctx context.Context, id int, name, email, passwordHash string) (user.PublicUser, error)
	Delete(ctx context.Context, id int) error
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type TokenIssuer interface {
	GenerateToken(userID int, name, email string) (string, error)
}

type UsersHandler struct {
	store UsersStore
	jwt   TokenIssuer
}

func NewUsersHandler(store UsersStore, jwt TokenIssuer) *UsersHandler {
	return &UsersHandler{store: store, jwt: jwt}
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	users, err := h.store.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, users)
}

func (h *UsersHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, err := h.store.Create(cctx, req.Name, req.Email, hash)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	id, ok := pathID(ctx)

	if !ok {
		return
	}

	var req user.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// re-hashed even when unchanged: updates always resend the password
	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not update user")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, err := h.store.Update(cctx, id, req.Name, req.Email, hash)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	ctx.JSON(http.StatusOK, u)
}

// DeleteUser reports success even when no row matched.
func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id, ok := pathID(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	err := h.store.Delete(cctx, id)

	if err != nil {
		RespondInternal(ctx, "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{})
}

func (h *UsersHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	foundUser, err := h.store.GetByEmail(cctx, req.Email)

	if err != nil {
		// same response for unknown email and wrong password
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	token, err := h.jwt.GenerateToken(foundUser.ID, foundUser.Name, foundUser.Email)

	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"data": token,
	})
}

func pathID(ctx *gin.Context) (int, bool) {
	id, err := strconv.Atoi(ctx.Param("id"))

	if err != nil || id < 1 {
		RespondBadRequest(ctx, "id must be a positive integer", nil)
		return 0, false
	}

	return id, true
}
