package redis

import "testing"

func TestBlobKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"bookmarks", "tonton:bookmarks"},
		{"tonton:bookmarks", "tonton:bookmarks"},
		{DefaultBookmarkKey, DefaultBookmarkKey},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := BlobKey(tt.in); got != tt.want {
				t.Errorf("BlobKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEventsChannelRoundTrip(t *testing.T) {
	ch := EventsChannel("bookmarks")
	if ch != "tonton:events:tonton:bookmarks" {
		t.Fatalf("EventsChannel() = %q", ch)
	}

	key, err := ExtractKey(ch)
	if err != nil {
		t.Fatalf("ExtractKey() error = %v", err)
	}
	if key != "tonton:bookmarks" {
		t.Errorf("ExtractKey() = %q, want tonton:bookmarks", key)
	}

	if _, err := ExtractKey("tonton:events:"); err == nil {
		t.Error("ExtractKey() should reject an empty key")
	}
	if _, err := ExtractKey("other:channel:name"); err == nil {
		t.Error("ExtractKey() should reject foreign channels")
	}
}
