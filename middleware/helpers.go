package middleware

import (
	"context"
	"errors"
	"strings"
)

var ErrNoClaims = errors.New("user claims not found in context or invalid type")

func ClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(userContextKey).(*Claims)
	if !ok || claims == nil {
		return nil, ErrNoClaims
	}
	return claims, nil
}

func GetRegNumberFromContext(ctx context.Context) (string, error) {
	claims, err := ClaimsFromContext(ctx)
	if err != nil {
		return "", err
	}
	reg := strings.TrimSpace(claims.RegNumber)
	if reg == "" {
		return "", errors.New("missing 'reg_number' claim in token")
	}
	return reg, nil
}
