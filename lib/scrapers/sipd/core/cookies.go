package core

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

var ErrNoCookieFile = fmt.Errorf("cookie file not found, log in first to create one")

// Cookie mirrors the JSON shape browser automation tools export, so a
// cookies.json saved by an attended browser login restores directly
// into the HTTP session.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HttpOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

func (c Cookie) toHttp() *http.Cookie {
	out := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		HttpOnly: c.HttpOnly,
		Secure:   c.Secure,
	}
	// -1 marks a session cookie
	if c.Expires > 0 {
		out.Expires = time.Unix(int64(c.Expires), 0)
	}
	switch c.SameSite {
	case "Strict":
		out.SameSite = http.SameSiteStrictMode
	case "Lax":
		out.SameSite = http.SameSiteLaxMode
	case "None":
		out.SameSite = http.SameSiteNoneMode
	}
	return out
}

func ReadCookieFile(path string) ([]Cookie, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoCookieFile
	}
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}

	var cookies []Cookie
	err = json.Unmarshal(contents, &cookies)
	if err != nil {
		return nil, fmt.Errorf("parse cookie file %s: %w", path, err)
	}
	return cookies, nil
}

func WriteCookieFile(path string, cookies []Cookie) error {
	contents, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	// cookies hold the live session, keep them private
	err = os.WriteFile(path, contents, 0600)
	if err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	return nil
}

// RestoreCookies loads a saved cookie file into the client's jar.
// Expired entries are dropped here, whether the surviving session is
// still live is LoggedIn's business.
func (c *Client) RestoreCookies(path string) error {
	cookies, err := ReadCookieFile(path)
	if err != nil {
		return err
	}

	now := time.Now()
	var restored []*http.Cookie
	for _, cookie := range cookies {
		converted := cookie.toHttp()
		if !converted.Expires.IsZero() && converted.Expires.Before(now) {
			continue
		}
		restored = append(restored, converted)
	}
	c.Http.GetClient().Jar.SetCookies(c.BaseUrl, restored)
	return nil
}
