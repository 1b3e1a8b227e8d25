package app

import (
	"net/http"
	"os"
	"path/filepath"
)

// registerWeb serves the bundled browser client from disk. A missing
// directory disables the routes so API-only deployments work without web
// assets.
func registerWeb(mux *http.ServeMux, log Logger, webDir string) {
	if webDir == "" {
		return
	}
	info, err := os.Stat(webDir)
	if err != nil || !info.IsDir() {
		log.Info("web.dir.missing", "dir", webDir)
		return
	}

	index := filepath.Join(webDir, "index.html")
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, index)
	})
	mux.Handle("GET /web/", http.StripPrefix("/web/", http.FileServer(http.Dir(webDir))))

	log.Info("web.enabled", "dir", webDir)
}
