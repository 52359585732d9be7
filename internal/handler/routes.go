package handler

import "net/http"

// APIPrefix is where every endpoint except the bare /health lives
const APIPrefix = "/api/v1"

// Handlers bundles everything the API mounts. Jobs may be nil-backed in
// inline mode; its service answers 404.
type Handlers struct {
	Content *ContentHandler
	Search  *SearchHandler
	Themes  *ThemeHandler
	Jobs    *JobHandler
	Health  *HealthHandler
}

// Register mounts the API on mux
func (hs *Handlers) Register(mux *http.ServeMux) {
	api := func(method, path string) string {
		return method + " " + APIPrefix + path
	}

	mux.HandleFunc("GET /health", hs.Health.Health)
	mux.HandleFunc(api("GET", "/health"), hs.Health.Health)

	mux.HandleFunc(api("POST", "/content/url"), hs.Content.SubmitURL)
	mux.HandleFunc(api("POST", "/content/upload"), hs.Content.Upload)
	mux.HandleFunc(api("GET", "/content"), hs.Content.ListContent)
	mux.HandleFunc(api("GET", "/content/{id}"), hs.Content.GetContent)
	mux.HandleFunc(api("DELETE", "/content/{id}"), hs.Content.DeleteContent)
	mux.HandleFunc(api("POST", "/content/{id}/resummarize"), hs.Content.Resummarize)

	mux.HandleFunc(api("GET", "/search"), hs.Search.Search)

	mux.HandleFunc(api("GET", "/themes"), hs.Themes.ListThemes)
	mux.HandleFunc(api("POST", "/themes"), hs.Themes.CreateTheme)
	mux.HandleFunc(api("POST", "/themes/propose"), hs.Themes.ProposeThemes)
	mux.HandleFunc(api("GET", "/themes/{id}"), hs.Themes.GetTheme)
	mux.HandleFunc(api("PUT", "/themes/{id}"), hs.Themes.UpdateTheme)
	mux.HandleFunc(api("DELETE", "/themes/{id}"), hs.Themes.DeleteTheme)
	mux.HandleFunc(api("GET", "/themes/{id}/content"), hs.Themes.ListThemeContent)

	mux.HandleFunc(api("GET", "/jobs/{id}"), hs.Jobs.GetJob)
}
