package meting

import (
	"regexp"
	"strings"
)

// Link is a share link resolved to an API triple.
type Link struct {
	Server string `json:"server"`
	ID     string `json:"id"`
	Type   string `json:"type"`
}

var tencentLinkPatterns = []struct {
	re  *regexp.Regexp
	typ string
}{
	{regexp.MustCompile(`(?i)playsquare/([^.]*)`), "playlist"},
	{regexp.MustCompile(`(?i)playlist/([^.]*)`), "playlist"},
	{regexp.MustCompile(`(?i)album/([^.]*)`), "album"},
	{regexp.MustCompile(`(?i)song/([^.]*)`), "song"},
	{regexp.MustCompile(`(?i)songDetail/([^.]*)`), "song"},
	{regexp.MustCompile(`(?i)singer/([^.]*)`), "artist"},
}

// ParseTencentURL recognizes QQ Music share links. Patterns are tried in a
// fixed order and the first match wins.
func ParseTencentURL(link string) (Link, bool) {
	link = strings.TrimSpace(link)
	if link == "" {
		return Link{}, false
	}
	for _, p := range tencentLinkPatterns {
		if m := p.re.FindStringSubmatch(link); m != nil {
			return Link{Server: "tencent", ID: m[1], Type: p.typ}, true
		}
	}
	return Link{}, false
}
