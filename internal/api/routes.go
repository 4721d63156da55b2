package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/provinces", h.GetProvinces)
	r.Get("/maps/{year}/{level}/ridings/{riding}", h.GetRidingMap)
	r.Get("/maps/{year}/{level}/provinces/{pruid}", h.GetProvinceMap)
	r.Get("/results/{year}/{level}/ridings/{riding}", h.GetRidingResults)

	return r
}
