package structures

import "net/http"

type CliFlags struct {
	ConfigPath string
	EnvFile    string
	DebugMode  bool
}

type Route struct {
	Method  string
	Url     string
	Handler http.Handler
}

// Pattern is the ServeMux registration pattern, e.g. "GET /status/{site}".
func (r Route) Pattern() string {
	if r.Method == "" {
		return r.Url
	}
	return r.Method + " " + r.Url
}
