package tasks

import (
	"encoding/xml"
	"errors"
	"strings"
	"time"
)

// ErrUnsupportedFormat is returned when a response body is neither an
// RSS channel nor an Atom feed.
var ErrUnsupportedFormat = errors.New("tasks: unsupported feed format")

// Entry is one item extracted from a feed document.
type Entry struct {
	Title     string
	Link      string
	GUID      string
	Published *time.Time
}

type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	GUID    string `xml:"guid"`
	PubDate string `xml:"pubDate"`
}

type atomDocument struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	ID        string     `xml:"id"`
	Links     []atomLink `xml:"link"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

// pubDate layouts seen in the wild, most common first.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseFeed extracts entries from an RSS or Atom document. Entries
// with no usable link are dropped. Unparseable dates leave Published
// nil rather than failing the whole document.
func ParseFeed(body []byte) ([]Entry, error) {
	var rss rssDocument
	if err := xml.Unmarshal(body, &rss); err == nil && rss.XMLName.Local == "rss" {
		return rssEntries(rss), nil
	}

	var atom atomDocument
	if err := xml.Unmarshal(body, &atom); err == nil && atom.XMLName.Local == "feed" {
		return atomEntries(atom), nil
	}

	return nil, ErrUnsupportedFormat
}

func rssEntries(doc rssDocument) []Entry {
	entries := make([]Entry, 0, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		guid := strings.TrimSpace(item.GUID)
		if guid == "" {
			guid = link
		}
		entries = append(entries, Entry{
			Title:     strings.TrimSpace(item.Title),
			Link:      link,
			GUID:      guid,
			Published: parseDate(item.PubDate),
		})
	}
	return entries
}

func atomEntries(doc atomDocument) []Entry {
	entries := make([]Entry, 0, len(doc.Entries))
	for _, entry := range doc.Entries {
		link := atomEntryLink(entry.Links)
		if link == "" {
			continue
		}
		guid := strings.TrimSpace(entry.ID)
		if guid == "" {
			guid = link
		}
		published := parseDate(entry.Published)
		if published == nil {
			published = parseDate(entry.Updated)
		}
		entries = append(entries, Entry{
			Title:     strings.TrimSpace(entry.Title),
			Link:      link,
			GUID:      guid,
			Published: published,
		})
	}
	return entries
}

// atomEntryLink prefers rel="alternate" (or no rel), which is the
// entry's canonical page.
func atomEntryLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "" || l.Rel == "alternate" {
			return strings.TrimSpace(l.Href)
		}
	}
	if len(links) > 0 {
		return strings.TrimSpace(links[0].Href)
	}
	return ""
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}
