package controllers

import (
	"net/http"

	"github.com/angelmondragon/bookstore-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/google/uuid"
)

func requireUser(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, nil
}
