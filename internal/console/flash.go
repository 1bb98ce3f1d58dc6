package console

import (
	"encoding/base64"
	"net/http"
)

const (
	flashCookie = "console_error"
	maxFormBody = 1 << 20
)

// setFlash carries an error message across one redirect. The message never
// travels in the URL, so a link cannot put text in the error banner.
func (c *Console) setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(msg)),
		Path:     c.opts.Prefix + "/",
		MaxAge:   30,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// takeFlash returns the pending message, if any, and clears it.
func (c *Console) takeFlash(w http.ResponseWriter, r *http.Request) string {
	ck, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: c.opts.Prefix + "/", MaxAge: -1})
	raw, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return ""
	}
	return string(raw)
}
