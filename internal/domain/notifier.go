package domain

import "time"

// Status reports whether a notifier's poll timer is armed.
type Status string

const (
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
)

// Image is the channel-level image of a feed.
type Image struct {
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
	Link  string `json:"link,omitempty"`
}

// Item is one entry of a feed. Beyond Identity and the publish date the
// payload is opaque to the core.
type Item struct {
	GUID                  string    `json:"guid,omitempty"`
	Title                 string    `json:"title"`
	Link                  string    `json:"link"`
	PubDate               string    `json:"pubDate,omitempty"`
	ISODate               time.Time `json:"isoDate,omitzero"`
	Content               string    `json:"content,omitempty"`
	ContentSnippet        string    `json:"contentSnippet,omitempty"`
	ContentEncoded        string    `json:"contentEncoded,omitempty"`
	ContentEncodedSnippet string    `json:"contentEncodedSnippet,omitempty"`
}

// Identity is the stable key used to recognize an item across fetches:
// the guid, falling back to the link when the guid is absent.
func (i Item) Identity() string {
	if i.GUID != "" {
		return i.GUID
	}
	return i.Link
}

// Notifier is the subscription record for one feed: its configuration plus
// the last-known item snapshot. Timer handles are scheduler-internal and
// never part of this representation; only Status is exported.
type Notifier struct {
	ID             int64  `json:"id"`
	RSS            string `json:"rss"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Link           string `json:"link"`
	Image          Image  `json:"image"`
	Language       string `json:"language,omitempty"`
	Copyright      string `json:"copyright,omitempty"`
	Generator      string `json:"generator,omitempty"`
	Docs           string `json:"docs,omitempty"`
	ManagingEditor string `json:"managingEditor,omitempty"`
	PubDate        string `json:"pubDate,omitempty"`

	// Items is the last-known snapshot, most-recent-first, replaced
	// wholesale on every successful fetch.
	Items []Item `json:"items"`

	// Interval is the poll cadence in milliseconds.
	Interval    int64     `json:"interval"`
	Status      Status    `json:"status"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// IntervalDuration converts the stored millisecond cadence to a Duration.
func (n *Notifier) IntervalDuration() time.Duration {
	return time.Duration(n.Interval) * time.Millisecond
}

// Clone returns a copy that shares no mutable state with the receiver.
func (n *Notifier) Clone() *Notifier {
	c := *n
	if n.Items != nil {
		c.Items = make([]Item, len(n.Items))
		copy(c.Items, n.Items)
	}
	return &c
}

// Feed is the projection of an external feed document produced by the
// fetcher boundary: channel metadata plus the ordered item list.
type Feed struct {
	Title          string
	Description    string
	Link           string
	Image          Image
	Language       string
	Copyright      string
	Generator      string
	Docs           string
	ManagingEditor string
	PubDate        string
	Items          []Item
}
