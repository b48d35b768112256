package controllers

import (
	"net/http"

	"github.com/angelmondragon/grocerycart/api/responses"
	"github.com/angelmondragon/grocerycart/pkg/config"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cartsync-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}
