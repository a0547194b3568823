package fallback

import "strings"

// HostPlaceholder in a rule's Guidance is replaced with the host shown to
// the user.
const HostPlaceholder = "{host}"

// Rule maps hosts containing any of its substrings to a category.
type Rule struct {
	Name  string
	Title string

	// Guidance is shown verbatim after every HostPlaceholder is replaced.
	Guidance string

	Match []string
}

// Matches reports whether host contains one of the rule's substrings.
func (r Rule) Matches(host string) bool {
	for _, m := range r.Match {
		if strings.Contains(host, m) {
			return true
		}
	}
	return false
}

// generic is used when no rule matches.
var generic = Rule{
	Name:     "generic",
	Title:    "site unreachable",
	Guidance: "{host} could not be reached from this network. It may be blocked here or temporarily down.",
}

// DefaultRules returns the built-in rules in match order. Earlier rules win,
// so narrower substrings such as "docs.google." sit above broader ones.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "video",
			Title:    "video platform unreachable",
			Guidance: "{host} is a video platform. Video hosts are often throttled or blocked by network filters; playback may still work when opened outside this view.",
			Match:    []string{"youtube.", "youtu.be", "vimeo.", "twitch.tv", "dailymotion.", "bilibili.", "nicovideo."},
		},
		{
			Name:     "collaboration",
			Title:    "collaboration platform unreachable",
			Guidance: "{host} is a collaboration platform. These services usually require a signed-in session and refuse to load inside other pages.",
			Match:    []string{"docs.google.", "drive.google.", "notion.", "slack.", "figma.", "miro.", "atlassian.", "trello.", "sharepoint.", "office.com"},
		},
		{
			Name:     "code-hosting",
			Title:    "code hosting unreachable",
			Guidance: "{host} hosts source code. Mirrors or the web archive often carry a copy of public repositories.",
			Match:    []string{"github.", "githubusercontent.", "gitlab.", "bitbucket.", "sourceforge.", "codeberg."},
		},
		{
			Name:     "social",
			Title:    "social network unreachable",
			Guidance: "{host} is a social network. Social sites are a common filtering target; a relay or the archive may still show public posts.",
			Match:    []string{"twitter.", "facebook.", "instagram.", "reddit.", "mastodon.", "linkedin.", "tiktok.", "threads.net"},
		},
		{
			Name:     "search",
			Title:    "search engine unreachable",
			Guidance: "{host} is a search engine. Another search provider may be reachable from this network.",
			Match:    []string{"google.", "bing.", "duckduckgo.", "yandex.", "baidu.", "startpage."},
		},
		{
			Name:     "news",
			Title:    "news site unreachable",
			Guidance: "{host} is a news site. Archived copies of articles are usually available even when the site is blocked.",
			Match:    []string{"bbc.", "nytimes.", "cnn.", "reuters.", "theguardian.", "apnews."},
		},
	}
}

// Categorize returns the first rule matching host, or the generic rule.
func Categorize(rules []Rule, host string) Rule {
	host = strings.ToLower(host)
	if host != "" {
		for _, r := range rules {
			if r.Matches(host) {
				return r
			}
		}
	}
	return generic
}
