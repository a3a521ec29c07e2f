package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Cookies writes the HTTP-only identity cookie.
type Cookies struct {
	Name   string
	Domain string
	Secure bool
}

func NewCookies(name, domain string, secure bool) *Cookies {
	return &Cookies{Name: name, Domain: domain, Secure: secure}
}

func (m *Cookies) sameSite() http.SameSite {
	if m.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func (m *Cookies) Set(c *gin.Context, token string, exp time.Time) {
	c.SetSameSite(m.sameSite())
	c.SetCookie(m.Name, token, maxAgeFrom(exp), "/", m.Domain, m.Secure, true)
}

func (m *Cookies) Clear(c *gin.Context) {
	c.SetSameSite(m.sameSite())
	c.SetCookie(m.Name, "", -1, "/", m.Domain, m.Secure, true)
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
