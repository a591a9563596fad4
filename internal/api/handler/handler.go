// Package handler wires the HTTP and websocket surface to the domain
// services.
package handler

import (
	"civicgo/backend/internal/hub"
	"civicgo/backend/internal/intake"
	"civicgo/backend/internal/status"
	"civicgo/backend/internal/storage"
	"civicgo/backend/internal/upvote"
)

// Handler carries the dependencies the route handlers need.
type Handler struct {
	Store       storage.Store
	Intake      *intake.Service
	Transitions *status.Service
	Upvotes     *upvote.Service
	Hub         *hub.Manager
	JWTSecret   []byte
	UploadDir   string
}

func NewHandler(store storage.Store, in *intake.Service, tr *status.Service, up *upvote.Service, h *hub.Manager, jwtSecret []byte, uploadDir string) *Handler {
	return &Handler{
		Store:       store,
		Intake:      in,
		Transitions: tr,
		Upvotes:     up,
		Hub:         h,
		JWTSecret:   jwtSecret,
		UploadDir:   uploadDir,
	}
}
