package callback

import (
	"errors"
	"strings"
)

var ErrNoCallbackURL = errors.New("no callback url configured")

// Source is one optional link of the callback URL priority chain.
type Source func() string

func Static(url string) Source {
	return func() string { return url }
}

// ResolveURL evaluates sources in order and returns the first non-empty URL.
// Later sources are not evaluated once one answers.
func ResolveURL(sources ...Source) (string, error) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		if url := strings.TrimSpace(src()); url != "" {
			return url, nil
		}
	}
	return "", ErrNoCallbackURL
}
