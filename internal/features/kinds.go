package features

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Kind identifies one remote feature endpoint.
type Kind string

const (
	KindTextToImage   Kind = "text2img"
	KindSummarize     Kind = "summarization"
	KindTextGenerator Kind = "text-generator"
	KindNSFWDetector  Kind = "nsfw-detector"
	KindToonify       Kind = "toonify"
	KindBackgroundRem Kind = "background-remover"
	KindImageTagger   Kind = "image-tagging"
)

// AllKinds lists every feature in menu order.
var AllKinds = []Kind{
	KindTextToImage,
	KindSummarize,
	KindTextGenerator,
	KindToonify,
	KindBackgroundRem,
	KindNSFWDetector,
	KindImageTagger,
}

// Valid reports whether k names a known feature.
func (k Kind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// NeedsImage reports whether the feature consumes an attached image
// rather than free text.
func (k Kind) NeedsImage() bool {
	switch k {
	case KindNSFWDetector, KindToonify, KindBackgroundRem, KindImageTagger:
		return true
	}
	return false
}

// Timeout is the wall-clock bound for one call of this kind.
// Image features get a longer bound than text features.
func (k Kind) Timeout() time.Duration {
	if k.NeedsImage() {
		return 60 * time.Second
	}
	return 30 * time.Second
}

// Title is the human-readable menu label.
func (k Kind) Title() string {
	switch k {
	case KindTextToImage:
		return "Text to Image"
	case KindSummarize:
		return "Summarize"
	case KindTextGenerator:
		return "Generate Text"
	case KindNSFWDetector:
		return "NSFW Check"
	case KindToonify:
		return "Toonify"
	case KindBackgroundRem:
		return "Remove Background"
	case KindImageTagger:
		return "Tag Image"
	}
	return string(k)
}

// Payload is the input to one remote call: free text for text features,
// raw image bytes for image features.
type Payload struct {
	Text  string
	Image []byte
}

// Normalize canonicalizes the payload so that equivalent requests
// fingerprint identically. Image bytes are taken as-is.
func (p Payload) Normalize() Payload {
	p.Text = strings.ToLower(strings.TrimSpace(p.Text))
	return p
}

// Fingerprint is a collision-resistant digest of (kind, normalized payload),
// used as the result cache key.
func Fingerprint(kind Kind, p Payload) string {
	p = p.Normalize()
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(p.Text))
	h.Write([]byte{0})
	h.Write(p.Image)
	return hex.EncodeToString(h.Sum(nil))
}

// Result is the normalized output of one remote call. Exactly one of
// Text or ImageURL is populated depending on the feature kind.
type Result struct {
	Kind     Kind   `json:"kind"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}
