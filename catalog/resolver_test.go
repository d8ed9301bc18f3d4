package catalog

import (
	"context"
	"net/http"
	"net/url"
	"reflect"
	"testing"

	"github.com/jarcoal/httpmock"
)

const rootMenuBody = `{
	"subject_menus": [
		{"subject_menu_entries": [{"subject_name": "All Subjects", "id": 184}]},
		{"subject_menu_entries": [{"subject_name": "Cooking", "id": 10}, {"subject_name": "Self Help", "id": 11}]},
		{"subject_menu_entries": [{"subject_name": "Fantasy", "id": 20}]},
		{"subject_menu_entries": [{"subject_name": "Biography", "id": 30}, {"subject_name": "History", "id": 31}]}
	]
}`

func newTestResolver(t *testing.T) (*Resolver, *httpmock.MockTransport) {
	t.Helper()
	cfg := testConfig()
	client, transport := newTestClient(t, cfg)
	resolver, err := NewResolver(client, cfg)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return resolver, transport
}

func TestCategoryGroupsPartition(t *testing.T) {
	resolver, transport := newTestResolver(t)
	transport.RegisterResponderWithQuery("GET", "http://example.test/api/subject/menu/",
		url.Values{"CountryCode": {"US"}, "subjectID": {"184"}},
		jsonResponder(rootMenuBody))

	groups, err := resolver.CategoryGroups(context.Background())
	if err != nil {
		t.Fatalf("category groups: %v", err)
	}

	if got := groups.Popular.Names(); !reflect.DeepEqual(got, []string{"Cooking", "Self Help"}) {
		t.Fatalf("popular = %v", got)
	}
	if got := groups.Fiction.Names(); !reflect.DeepEqual(got, []string{"Fantasy"}) {
		t.Fatalf("fiction = %v", got)
	}
	if got := groups.NonFiction.Names(); !reflect.DeepEqual(got, []string{"Biography", "History"}) {
		t.Fatalf("non-fiction = %v", got)
	}
	if id, ok := groups.SubjectID("History"); !ok || id != 31 {
		t.Fatalf("History id = %d/%v, want 31/true", id, ok)
	}
}

// Guards the positional assumption about the root menu response: a shorter
// subject_menus means the upstream contract changed and must fail loudly.
func TestCategoryGroupsContractViolation(t *testing.T) {
	resolver, transport := newTestResolver(t)
	transport.RegisterResponderWithQuery("GET", "http://example.test/api/subject/menu/",
		url.Values{"CountryCode": {"US"}, "subjectID": {"184"}},
		jsonResponder(`{"subject_menus": [{"subject_menu_entries": []}]}`))

	_, err := resolver.CategoryGroups(context.Background())
	if !IsMalformed(err) {
		t.Fatalf("short subject_menus should be malformed, got %v", err)
	}
}

func TestTopics(t *testing.T) {
	resolver, transport := newTestResolver(t)
	transport.RegisterResponderWithQuery("GET", "http://example.test/api/subject/menu/",
		url.Values{"CountryCode": {"US"}, "subjectID": {"10"}},
		jsonResponder(`{
			"subject_menus": [
				{"subject_menu_entries": [{"subject_name": "Baking", "id": 101}, {"subject_name": "Grilling", "id": 102}]}
			]
		}`))

	topics, err := resolver.Topics(context.Background(), 10)
	if err != nil {
		t.Fatalf("topics: %v", err)
	}
	if got := topics.Names(); !reflect.DeepEqual(got, []string{"Baking", "Grilling"}) {
		t.Fatalf("topics = %v", got)
	}
}

func TestTopicsEmptyIsLeaf(t *testing.T) {
	resolver, transport := newTestResolver(t)
	transport.RegisterResponderWithQuery("GET", "http://example.test/api/subject/menu/",
		url.Values{"CountryCode": {"US"}, "subjectID": {"184"}},
		jsonResponder(`{"subject_menus": [{"subject_menu_entries": []}]}`))

	topics, err := resolver.Topics(context.Background(), 184)
	if err != nil {
		t.Fatalf("topics: %v", err)
	}
	if !topics.Empty() {
		t.Fatalf("leaf subject should yield an empty topic set")
	}
}

func TestTopicsMissingMenusIsMalformed(t *testing.T) {
	resolver, transport := newTestResolver(t)
	transport.RegisterResponderWithQuery("GET", "http://example.test/api/subject/menu/",
		url.Values{"CountryCode": {"US"}, "subjectID": {"10"}},
		jsonResponder(`{"subject_menus": []}`))

	if _, err := resolver.Topics(context.Background(), 10); !IsMalformed(err) {
		t.Fatalf("missing subject_menus should be malformed, got %v", err)
	}
}

func TestMenuResponsesAreCached(t *testing.T) {
	resolver, transport := newTestResolver(t)

	calls := 0
	transport.RegisterResponderWithQuery("GET", "http://example.test/api/subject/menu/",
		url.Values{"CountryCode": {"US"}, "subjectID": {"10"}},
		func(req *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewStringResponse(http.StatusOK,
				`{"subject_menus": [{"subject_menu_entries": [{"subject_name": "Baking", "id": 101}]}]}`), nil
		})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := resolver.Topics(ctx, 10); err != nil {
			t.Fatalf("topics call %d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Fatalf("menu endpoint hit %d times, want 1 (cached)", calls)
	}
}
