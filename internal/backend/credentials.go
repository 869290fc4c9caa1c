package backend

import (
	"net/http"
	"strings"
)

// Credentials are the auth materials of the inbound chat request, forwarded
// verbatim to the persistence collaborator.
type Credentials struct {
	Cookie        string
	Authorization string
}

// CredentialsFromHeader captures the forwardable auth headers of an inbound request.
func CredentialsFromHeader(h http.Header) Credentials {
	return Credentials{
		Cookie:        h.Get("Cookie"),
		Authorization: h.Get("Authorization"),
	}
}

// Empty reports whether no credential was supplied.
func (c Credentials) Empty() bool {
	return strings.TrimSpace(c.Cookie) == "" && strings.TrimSpace(c.Authorization) == ""
}

// HasBearer reports whether the Authorization header carries a bearer token.
func (c Credentials) HasBearer() bool {
	return len(c.Authorization) > len("Bearer ") && strings.EqualFold(c.Authorization[:len("Bearer ")], "Bearer ")
}

// applyPreferred sets a single credential: the bearer token when present,
// otherwise the session cookie.
func (c Credentials) applyPreferred(req *http.Request) {
	if c.HasBearer() {
		req.Header.Set("Authorization", c.Authorization)
		return
	}
	if c.Cookie != "" {
		req.Header.Set("Cookie", c.Cookie)
	}
}

// applyAll sets every credential that was present on the inbound request.
func (c Credentials) applyAll(req *http.Request) {
	if c.Cookie != "" {
		req.Header.Set("Cookie", c.Cookie)
	}
	if c.Authorization != "" {
		req.Header.Set("Authorization", c.Authorization)
	}
}
