package httpx

import "net/http"

// withCORS answers preflight requests and stamps the configured origin on
// every response. The browser client runs on a different port in
// development, so the API must opt in explicitly.
func (r *Router) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.allowedOrigin != "" {
			headers := w.Header()
			headers.Set("Access-Control-Allow-Origin", r.allowedOrigin)
			headers.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")
			headers.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			headers.Set("Access-Control-Allow-Credentials", "true")
		}
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}
