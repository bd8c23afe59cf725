// Package analytics filters and classifies incoming analytics events before they are stored.
package analytics

import (
	"strings"

	"github.com/mssola/useragent"

	"github.com/inkpress/inkpress/internal/db/models"
)

// botMarkers catches automated clients the user agent parser does not flag as bots.
var botMarkers = []string{
	"bot", "crawler", "spider", "slurp", "headless", "lighthouse", "pingdom",
	"curl/", "wget/", "python-requests", "go-http-client", "node-fetch", "axios/",
}

// Client is the classification of a user agent.
type Client struct {
	Bot     bool
	Device  string
	Browser string
	OS      string
}

// Classify parses a User-Agent header. An empty header is treated as a bot.
func Classify(userAgent string) Client {
	if strings.TrimSpace(userAgent) == "" {
		return Client{Bot: true}
	}

	ua := useragent.New(userAgent)
	lower := strings.ToLower(userAgent)

	c := Client{
		Bot: ua.Bot(),
		OS:  ua.OSInfo().Name,
	}

	c.Browser, _ = ua.Browser()

	if !c.Bot {
		for _, marker := range botMarkers {
			if strings.Contains(lower, marker) {
				c.Bot = true

				break
			}
		}
	}

	switch {
	case ua.Platform() == "iPad",
		strings.Contains(lower, "tablet"),
		strings.Contains(lower, "android") && !strings.Contains(lower, "mobile"):
		c.Device = models.DeviceTablet
	case ua.Mobile():
		c.Device = models.DeviceMobile
	default:
		c.Device = models.DeviceDesktop
	}

	return c
}
