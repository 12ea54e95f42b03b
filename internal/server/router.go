package server

import (
	"context"
	"net/http"

	"vapex/internal/handlers"
	applog "vapex/internal/log"
	"vapex/internal/metrics"
)

type route struct {
	pattern  string
	endpoint string
	handler  http.HandlerFunc
}

var routes = []route{
	{"/healthz", "health", handlers.Health},
	{"/api/auth/register", "auth_register", handlers.Register},
	{"/api/auth/login", "auth_login", handlers.Login},
	{"/api/auth/logout", "auth_logout", handlers.Logout},
	{"/api/user/profile", "user_profile", handlers.Profile},
	{"/api/user/stats", "user_stats", handlers.UserStats},
	{"/api/user/upgrade", "user_upgrade", handlers.Upgrade},
	{"/api/ingredients", "ingredients", handlers.IngredientResource},
	{"/api/ingredients/", "ingredients", handlers.IngredientResource},
	{"/api/mix/calculate", "mix_calculate", handlers.MixCalculate},
	{"/api/recipes", "recipes", handlers.RecipeResource},
	{"/api/recipes/", "recipes", handlers.RecipeResource},
	{"/api/votes/", "votes", handlers.VoteResource},
	{"/api/tools/import-recipe", "import_recipe", handlers.ToolsImportRecipe},
	{"/catalog", "catalog", handlers.CatalogPage},
}

func newRouter(recorder *metrics.Recorder) http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")
	for _, r := range routes {
		mux.Handle(r.pattern, recorder.Middleware(r.endpoint, r.handler))
		applog.Debug(context.Background(), "route registered", "path", r.pattern)
	}
	if recorder != nil {
		mux.Handle("/metrics", recorder.Handler())
		applog.Debug(context.Background(), "route registered", "path", "/metrics")
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/catalog", http.StatusSeeOther)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}` + "\n"))
	})
	applog.Debug(context.Background(), "route registered", "path", "/")
	return mux
}
