package scrapecreators

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/timmy/reelvault/internal/domain"
)

// number decodes a JSON number or numeric string. Anything else leaves it unset.
type number struct {
	value float64
	set   bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n.value, n.set = f, true
	return nil
}

func (n number) ptr() *float64 {
	if !n.set {
		return nil
	}
	v := n.value
	return &v
}

// timestamp decodes unix seconds (number or string) or an RFC 3339 string.
// Relative strings such as "3 days ago" leave it unset.
type timestamp struct {
	t *time.Time
}

func (ts *timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if secs > 0 {
			t := time.Unix(secs, 0).UTC()
			ts.t = &t
		}
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		ts.t = &t
	}
	return nil
}

// cursor decodes a pagination token that may be a string or a number.
type cursor string

func (c *cursor) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = cursor(s)
		return nil
	}
	*c = cursor(b)
	return nil
}

type urlList struct {
	URLList []string `json:"url_list"`
}

func (u *urlList) first() string {
	if u == nil || len(u.URLList) == 0 {
		return ""
	}
	return u.URLList[0]
}

// stats builds a stats map containing only the counters the platform reported.
func stats(pairs ...interface{}) domain.MediaStats {
	out := domain.MediaStats{}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		if n, ok := pairs[i+1].(number); ok && n.set {
			out[key] = n.value
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
