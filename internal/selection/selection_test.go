package selection

import (
	"testing"
	"time"

	"github.com/azamatb/objbrowse/internal/catalog"
)

func item(key string, itemType catalog.ItemType) catalog.StoredItem {
	return catalog.StoredItem{Key: key, Type: itemType, LastModified: time.Now()}
}

func TestToggleIdempotence(t *testing.T) {
	set := NewSet()
	file := item("docs/a.txt", catalog.TypeFile)

	set.Toggle(file)
	if !set.IsSelected(file) {
		t.Fatal("item should be selected after first toggle")
	}
	set.Toggle(file)
	if set.IsSelected(file) {
		t.Fatal("item should be deselected after second toggle")
	}
	if set.Len() != 0 {
		t.Fatalf("expected empty set, got %d", set.Len())
	}
}

func TestCompositeIdentityDistinguishesFileAndFolder(t *testing.T) {
	set := NewSet()
	file := item("backup", catalog.TypeFile)
	folder := item("backup", catalog.TypeFolder)

	set.Toggle(file)
	if set.IsSelected(folder) {
		t.Fatal("folder with same bare name must not be selected")
	}
	set.Toggle(folder)
	if set.Len() != 2 {
		t.Fatalf("expected 2 members, got %d", set.Len())
	}
}

func TestSelectAllTogglesAgainstCurrentView(t *testing.T) {
	set := NewSet()
	view := []catalog.StoredItem{
		item("a.txt", catalog.TypeFile),
		item("b.txt", catalog.TypeFile),
		item("dir/", catalog.TypeFolder),
	}

	set.SelectAll(view)
	if set.Len() != 3 {
		t.Fatalf("expected full view selected, got %d", set.Len())
	}

	// selecting all again when the set equals the view clears it
	set.SelectAll(view)
	if set.Len() != 0 {
		t.Fatalf("expected cleared set, got %d", set.Len())
	}
}

func TestSelectAllReplacesPartialSelection(t *testing.T) {
	set := NewSet()
	view := []catalog.StoredItem{
		item("a.txt", catalog.TypeFile),
		item("b.txt", catalog.TypeFile),
	}
	set.Toggle(item("elsewhere.txt", catalog.TypeFile))

	set.SelectAll(view)
	if set.Len() != 2 {
		t.Fatalf("expected selection replaced by view, got %d", set.Len())
	}
	if set.IsSelected(item("elsewhere.txt", catalog.TypeFile)) {
		t.Fatal("prior selection should have been replaced")
	}
}

func TestMembershipSurvivesViewChanges(t *testing.T) {
	set := NewSet()
	file := item("hidden-by-filter.txt", catalog.TypeFile)

	set.Toggle(file)
	// the displayed view no longer contains the item; membership persists
	if !set.IsSelected(file) {
		t.Fatal("selection must be independent of the displayed view")
	}

	set.Clear()
	if set.Len() != 0 {
		t.Fatal("clear should empty the set")
	}
}

func TestItemsOrderedByKey(t *testing.T) {
	set := NewSet()
	set.Toggle(item("b.txt", catalog.TypeFile))
	set.Toggle(item("a.txt", catalog.TypeFile))

	items := set.Items()
	if len(items) != 2 || items[0].Key != "a.txt" || items[1].Key != "b.txt" {
		t.Fatalf("expected deterministic order, got %+v", items)
	}
}
