package utils

import (
	"context"
	"strings"
	"testing"
	"time"

	"florashop-be/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestUserContext(t *testing.T) {
	ctx := SetUserContext(context.Background(), "u-1", "ana@example.com", RoleEmployee)

	id, ok := GetUserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u-1", id)
	assert.Equal(t, "ana@example.com", GetUserEmailFromContext(ctx))
	assert.Equal(t, RoleEmployee, GetUserRoleFromContext(ctx))
	assert.True(t, IsStaffContext(ctx))

	_, ok = GetUserIDFromContext(context.Background())
	assert.False(t, ok)
	assert.False(t, IsStaffContext(context.Background()))
}

func TestIsStaffRole(t *testing.T) {
	assert.True(t, IsStaffRole(RoleAdmin))
	assert.True(t, IsStaffRole(RoleEmployee))
	assert.False(t, IsStaffRole(RoleClient))
	assert.False(t, IsStaffRole(""))
}

func TestGenerateOrderNumber(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 30, 0, 123*int(time.Millisecond), time.UTC)

	t.Run("Format", func(t *testing.T) {
		num := GenerateOrderNumber(now)
		assert.True(t, strings.HasPrefix(num, "ORD-20261019-103000-123-"))

		parts := strings.Split(num, "-")
		if assert.Len(t, parts, 5) {
			assert.Len(t, parts[4], 4)
		}
	})

	t.Run("Uniqueness", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 5; i++ {
			seen[GenerateOrderNumber(time.Now())] = true
		}
		assert.Greater(t, len(seen), 1)
	})
}

func TestPagination(t *testing.T) {
	page, limit := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPageLimit, limit)

	page, limit = NormalizePage(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, MaxPageLimit, limit)
	assert.Equal(t, 200, Offset(page, limit))

	p := NewPagination(2, 10, 21)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 0, NewPagination(1, 10, 0).TotalPages)
}

type validateSample struct {
	Email string `json:"email" validate:"required,email"`
	Qty   int    `json:"quantity" validate:"gte=1"`
	Inner struct {
		City string `json:"city" validate:"required"`
	} `json:"address"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		v := validateSample{Email: "ana@example.com", Qty: 1}
		v.Inner.City = "Bandung"
		assert.NoError(t, ValidateStruct(v))
	})

	t.Run("Lists every field by json name", func(t *testing.T) {
		err := ValidateStruct(validateSample{Email: "nope"})
		assert.ErrorIs(t, err, apperr.ErrValidationFailed)
		assert.Contains(t, err.Error(), "email must be a valid email")
		assert.Contains(t, err.Error(), "quantity must be at least 1")
		assert.Contains(t, err.Error(), "address.city is required")
	})
}
