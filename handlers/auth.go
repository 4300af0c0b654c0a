package handlers

import (
	"go.uber.org/zap"

	"github.com/searchktools/minihttp/core/http"
)

// CookieUsername is the session cookie set by Login
const CookieUsername = "username"

// Login greets the user named in the body and sets the session cookie.
// The body is either plain text holding the name or a JSON object with a
// "username" member.
func Login(logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(req *http.Request) *http.Response {
		username, errResp := bodyValue(req, "username")
		if errResp != nil {
			return errResp
		}

		logger.Info("user logged in", zap.String("username", username))
		return http.Text(200, "Welcome, "+username+"!").SetCookie(CookieUsername, username)
	})
}

// bodyValue extracts a text payload, or member field of a JSON object payload
func bodyValue(req *http.Request, field string) (string, *http.Response) {
	switch {
	case req.Body == nil:
		return "", http.Text(400, "Invalid request body")
	case req.Body.Kind == http.BodyJSON:
		v, ok := req.Body.Field(field)
		if !ok {
			return "", http.Text(400, "Missing '"+field+"' in JSON body")
		}
		return v, nil
	default:
		return req.Body.Text, nil
	}
}
