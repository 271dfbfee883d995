// Package intent maps free-text input to a feature selector via keyword
// matching. Routing is a pure function over fixed keyword tables so callers
// can fall back to an explicit menu when no keyword matches.
package intent

import (
	"strings"

	"github.com/nextlevelbuilder/musebot/internal/features"
)

// rule associates one feature with its trigger keywords. Rules are checked
// in order; the first match wins.
type rule struct {
	kind     features.Kind
	keywords []string
}

// textRules apply when the message has no attached media.
var textRules = []rule{
	{features.KindTextToImage, []string{"draw", "picture of", "image of", "generate an image", "text to image"}},
	{features.KindSummarize, []string{"summarize", "summarise", "summary", "tldr", "tl;dr"}},
	{features.KindTextGenerator, []string{"write", "continue", "generate text", "compose"}},
}

// mediaRules apply when an image is attached; tag/nsfw keywords are only
// meaningful with an image present.
var mediaRules = []rule{
	{features.KindNSFWDetector, []string{"nsfw", "safe", "moderate", "check this"}},
	{features.KindToonify, []string{"toon", "cartoon", "toonify"}},
	{features.KindBackgroundRem, []string{"background", "remove bg", "cutout", "cut out"}},
	{features.KindImageTagger, []string{"tag", "label", "describe", "what is this"}},
}

// Route resolves (text, hasMedia) to a feature kind. The boolean is false
// when no keyword matched, telling the caller to offer the menu instead.
func Route(text string, hasMedia bool) (features.Kind, bool) {
	needle := strings.ToLower(text)

	rules := textRules
	if hasMedia {
		rules = mediaRules
	}

	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(needle, kw) {
				return r.kind, true
			}
		}
	}
	return "", false
}
