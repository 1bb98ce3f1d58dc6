package console

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/hamed0406/urlchecker/internal/resource"
)

// cellText renders a scalar for col. Dates also get a relative title.
func (c *Console) cellText(col resource.Column, v any) (text, title string) {
	if v == nil {
		return col.EmptyText, ""
	}
	switch col.Kind {
	case resource.Number:
		n, ok := asFloat(v)
		if !ok {
			break
		}
		s := c.formatNumber(n)
		if col.Unit != "" {
			s += " " + english.PluralWord(int(n), col.Unit, "")
		}
		return s, ""
	case resource.Date:
		s, _ := v.(string)
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			break
		}
		t = t.Local()
		if col.ShowTime {
			return t.Format("2006-01-02 15:04:05"), humanize.Time(t)
		}
		return t.Format("2006-01-02"), humanize.Time(t)
	}
	s := plain(v)
	if s == "" {
		return col.EmptyText, ""
	}
	return s, ""
}

func (c *Console) formatNumber(n float64) string {
	if n == math.Trunc(n) {
		return c.printer.Sprintf("%d", int64(n))
	}
	return c.printer.Sprintf("%v", n)
}

// plain renders a JSON scalar without grouping, as a form value.
func plain(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

func asID(v any) (int64, bool) {
	f, ok := asFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
