package tasks

import (
	"errors"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>City Desk</title>
    <item>
      <title>Water main break closes Main St</title>
      <link>https://citydesk.example/news/water-main</link>
      <guid>tag:citydesk.example,2026:1001</guid>
      <pubDate>Tue, 25 Aug 2026 14:30:00 -0400</pubDate>
    </item>
    <item>
      <title>No link, should be dropped</title>
      <pubDate>Tue, 25 Aug 2026 15:00:00 -0400</pubDate>
    </item>
    <item>
      <title>Missing guid falls back to link</title>
      <link>https://citydesk.example/news/no-guid</link>
      <pubDate>not a date</pubDate>
    </item>
  </channel>
</rss>`

const sampleAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Blog</title>
  <entry>
    <title>First post</title>
    <id>urn:uuid:8f3a2c</id>
    <link rel="self" href="https://blog.example/entry/1.atom"/>
    <link rel="alternate" href="https://blog.example/entry/1"/>
    <published>2026-08-24T09:00:00Z</published>
  </entry>
  <entry>
    <title>Updated only</title>
    <id>urn:uuid:9b4d1e</id>
    <link href="https://blog.example/entry/2"/>
    <updated>2026-08-25T10:15:00Z</updated>
  </entry>
</feed>`

func TestParseFeedRSS(t *testing.T) {
	entries, err := ParseFeed([]byte(sampleRSS))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.Link != "https://citydesk.example/news/water-main" {
		t.Fatalf("bad link: %q", first.Link)
	}
	if first.GUID != "tag:citydesk.example,2026:1001" {
		t.Fatalf("bad guid: %q", first.GUID)
	}
	if first.Published == nil {
		t.Fatalf("expected published date")
	}
	want := time.Date(2026, 8, 25, 18, 30, 0, 0, time.UTC)
	if !first.Published.Equal(want) {
		t.Fatalf("published = %v, want %v", first.Published, want)
	}

	second := entries[1]
	if second.GUID != second.Link {
		t.Fatalf("guid should fall back to link, got %q", second.GUID)
	}
	if second.Published != nil {
		t.Fatalf("unparseable date should leave Published nil")
	}
}

func TestParseFeedAtom(t *testing.T) {
	entries, err := ParseFeed([]byte(sampleAtom))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if entries[0].Link != "https://blog.example/entry/1" {
		t.Fatalf("should prefer rel=alternate, got %q", entries[0].Link)
	}
	if entries[0].Published == nil || entries[0].Published.Day() != 24 {
		t.Fatalf("bad published: %v", entries[0].Published)
	}

	// updated stands in when published is absent
	if entries[1].Published == nil || entries[1].Published.Day() != 25 {
		t.Fatalf("bad fallback date: %v", entries[1].Published)
	}
}

func TestParseFeedRejectsOtherDocuments(t *testing.T) {
	_, err := ParseFeed([]byte(`<html><body>not a feed</body></html>`))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	_, err = ParseFeed([]byte(`{"not": "xml"}`))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
