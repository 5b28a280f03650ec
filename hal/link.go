package hal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
)

// Link is a single HAL link object.
type Link struct {
	Href      string `json:"href"`
	Templated bool   `json:"templated,omitempty"`
	Name      string `json:"name,omitempty"`
}

var templateExpr = regexp.MustCompile(`\{[^}]*\}`)

// URL returns the href with any URI template expressions removed.
func (l Link) URL() string {
	if !l.Templated {
		return l.Href
	}
	return templateExpr.ReplaceAllString(l.Href, "")
}

// Links maps relation names to links. HAL allows a relation to hold a single
// link object or an array; both decode to a slice.
type Links map[string][]Link

// UnmarshalJSON accepts both the single-object and the array form.
func (l *Links) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Links, len(raw))
	for rel, msg := range raw {
		msg = bytes.TrimSpace(msg)
		if len(msg) > 0 && msg[0] == '[' {
			var many []Link
			if err := json.Unmarshal(msg, &many); err != nil {
				return fmt.Errorf("link %q: %w", rel, err)
			}
			out[rel] = many
			continue
		}
		var one Link
		if err := json.Unmarshal(msg, &one); err != nil {
			return fmt.Errorf("link %q: %w", rel, err)
		}
		out[rel] = []Link{one}
	}
	*l = out
	return nil
}

// MarshalJSON writes single links in object form.
func (l Links) MarshalJSON() ([]byte, error) {
	raw := make(map[string]any, len(l))
	for rel, links := range l {
		if len(links) == 1 {
			raw[rel] = links[0]
		} else {
			raw[rel] = links
		}
	}
	return json.Marshal(raw)
}

// Href returns the untemplated href of the first link for rel.
func (l Links) Href(rel string) (string, bool) {
	links, ok := l[rel]
	if !ok || len(links) == 0 {
		return "", false
	}
	return links[0].URL(), true
}
