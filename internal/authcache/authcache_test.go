package authcache

import "testing"

func TestFindNewestMatchingPicksLargestTimestamp(t *testing.T) {
	c := New()
	c.Insert(Entry{Token: []byte("old"), UserSecureIDs: []int64{1}, AuthType: 1, Received: 10})
	c.Insert(Entry{Token: []byte("new"), UserSecureIDs: []int64{1}, AuthType: 1, Received: 20})
	c.Insert(Entry{Token: []byte("other-type"), UserSecureIDs: []int64{1}, AuthType: 2, Received: 30})

	got, ok := c.FindNewestMatching(func(e Entry) bool { return e.Satisfies([]int64{1}, 1) })
	if !ok {
		t.Fatalf("FindNewestMatching found nothing, want the newest type-1 entry")
	}
	if string(got.Token) != "new" {
		t.Fatalf("FindNewestMatching = %q, want %q", got.Token, "new")
	}
}

func TestFindNewestMatchingNoMatch(t *testing.T) {
	c := New()
	c.Insert(Entry{Token: []byte("x"), UserSecureIDs: []int64{1}, AuthType: 1, Received: 1})

	_, ok := c.FindNewestMatching(func(e Entry) bool { return e.Satisfies([]int64{2}, 1) })
	if ok {
		t.Fatalf("FindNewestMatching matched an entry with disjoint secure ids")
	}
}

func TestSize(t *testing.T) {
	c := New()
	if c.Size() != 0 {
		t.Fatalf("Size() on empty cache = %d, want 0", c.Size())
	}
	c.Insert(Entry{Received: 1})
	c.Insert(Entry{Received: 2})
	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}
}
