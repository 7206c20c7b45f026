package handlers

import (
	"net/http"
	"testing"

	"inspection-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthRegisterAndLogin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	env := newTestEnv(t)

	w := env.do(t, nil, http.MethodPost, "/auth/register", RegisterRequest{
		FirstName: "Айдос",
		LastName:  "Серик",
		Email:     "aidos@test.kz",
		Password:  "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp AuthResponse
	decodeResponse(t, w, &resp)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Token)
	// Новые учетные записи получают роль инспектора
	assert.Equal(t, models.RoleInspector, resp.User.Role)

	// Повторная регистрация с тем же email
	w = env.do(t, nil, http.MethodPost, "/auth/register", RegisterRequest{
		FirstName: "Айдос",
		LastName:  "Серик",
		Email:     "aidos@test.kz",
		Password:  "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Вход с верным паролем
	w = env.do(t, nil, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "aidos@test.kz",
		Password: "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &resp)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Token)

	// Неверный пароль
	w = env.do(t, nil, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "aidos@test.kz",
		Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Несуществующий пользователь
	w = env.do(t, nil, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "ghost@test.kz",
		Password: "secret123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "user@test.kz", models.RoleInspector)

	w := env.do(t, user, http.MethodGet, "/user", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.UserResponse
	decodeResponse(t, w, &resp)
	assert.Equal(t, user.ID, resp.ID)
	assert.Equal(t, "user@test.kz", resp.Email)
}
