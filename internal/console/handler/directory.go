package handler

import (
	"net/http"

	"github.com/xela07ax/floorwatch/internal/domain"
)

// Directory - снимок справочника площадки (реализуется engine.IdentityRegistry).
type Directory interface {
	Employees() []domain.Entity
	Machines() []domain.Entity
}

type DirectoryHandler struct {
	dir Directory
}

func NewDirectoryHandler(dir Directory) *DirectoryHandler {
	return &DirectoryHandler{dir: dir}
}

// GET /machines
func (h *DirectoryHandler) Machines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dir.Machines())
}

// GET /employees
func (h *DirectoryHandler) Employees(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dir.Employees())
}
