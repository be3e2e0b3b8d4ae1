package registry

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/Sternrassler/jira-stub/pkg/fixture"
	"github.com/rs/zerolog"
)

func addProfile(fsys fstest.MapFS, name, board, config, issues string) {
	if board != "" {
		fsys[name+"/"+fixture.FileBoard] = &fstest.MapFile{Data: []byte(board)}
	}
	if config != "" {
		fsys[name+"/"+fixture.FileBoardConfiguration] = &fstest.MapFile{Data: []byte(config)}
	}
	if issues != "" {
		fsys[name+"/"+fixture.FileIssueSet] = &fstest.MapFile{Data: []byte(issues)}
	}
}

func testFS() fstest.MapFS {
	fsys := fstest.MapFS{}
	addProfile(fsys, "alpha",
		`{"id": 1, "name": "Alpha"}`,
		`{"id": 1, "name": "Alpha config"}`,
		`{"issues": [{"id": "100", "key": "AL-1"}, {"id": "101", "key": "AL-2"}, {"id": "102", "key": "AL-3"}]}`)
	// issue set lacks the issues field
	addProfile(fsys, "broken",
		`{"id": 5, "name": "Broken"}`,
		`{"id": 5}`,
		`{"total": 0}`)
	addProfile(fsys, "beta",
		`{"id": "2", "name": "Beta"}`,
		`{"id": 2, "name": "Beta config"}`,
		`{"issues": [{"id": "200", "key": "BE-1"}]}`)
	return fsys
}

func loadTestRegistry(t *testing.T, profiles ...string) *Registry {
	t.Helper()
	r, err := Load(fixture.NewLoader(testFS(), zerolog.Nop()), profiles, zerolog.Nop())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return r
}

func TestLoad(t *testing.T) {
	r := loadTestRegistry(t, "alpha", "broken", "beta")

	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
	if got := r.BoardIDs(); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Errorf("BoardIDs() = %v, want [1 2]", got)
	}
	if got := r.LoadedProfiles(); !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
		t.Errorf("LoadedProfiles() = %v", got)
	}
	if got := r.FailedProfiles(); !reflect.DeepEqual(got, []string{"broken"}) {
		t.Errorf("FailedProfiles() = %v", got)
	}

	board, ok := r.Board(2)
	if !ok || string(board) != `{"id":"2","name":"Beta"}` {
		t.Errorf("Board(2) = %s, %v", board, ok)
	}
	config, ok := r.Configuration(1)
	if !ok || string(config) != `{"id":1,"name":"Alpha config"}` {
		t.Errorf("Configuration(1) = %s, %v", config, ok)
	}
	issues, ok := r.Issues(1)
	if !ok || len(issues) != 3 {
		t.Fatalf("Issues(1) = %d issues, %v", len(issues), ok)
	}
	if key, _ := issues[0].StringField("key"); key != "AL-1" {
		t.Errorf("first issue key = %q, want AL-1", key)
	}
}

func TestLoad_FailedProfileIsAbsentEverywhere(t *testing.T) {
	r := loadTestRegistry(t, "alpha", "broken", "beta")

	if _, ok := r.Board(5); ok {
		t.Error("Board(5) should be absent")
	}
	if _, ok := r.Configuration(5); ok {
		t.Error("Configuration(5) should be absent")
	}
	if _, ok := r.Issues(5); ok {
		t.Error("Issues(5) should be absent")
	}
}

func TestLoad_UnknownBoard(t *testing.T) {
	r := loadTestRegistry(t, "alpha")

	for _, id := range []int64{0, -1, 999} {
		if _, ok := r.Board(id); ok {
			t.Errorf("Board(%d) should be absent", id)
		}
		if _, ok := r.Configuration(id); ok {
			t.Errorf("Configuration(%d) should be absent", id)
		}
		if _, ok := r.Issues(id); ok {
			t.Errorf("Issues(%d) should be absent", id)
		}
	}
}

func TestLoad_NoProfiles(t *testing.T) {
	_, err := Load(fixture.NewLoader(testFS(), zerolog.Nop()), nil, zerolog.Nop())
	if !errors.Is(err, ErrNoProfiles) {
		t.Errorf("Load(nil) error = %v, want ErrNoProfiles", err)
	}
}

func TestLoad_AllProfilesFail(t *testing.T) {
	r, err := Load(fixture.NewLoader(testFS(), zerolog.Nop()), []string{"broken", "missing"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Load should not fail when profiles fail individually: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if len(r.Boards()) != 0 {
		t.Errorf("Boards() = %v, want empty", r.Boards())
	}
}

func TestLoad_DuplicateBoardIDReplacesWholeEntry(t *testing.T) {
	fsys := testFS()
	addProfile(fsys, "alpha-v2",
		`{"id": "1", "name": "Alpha v2"}`,
		`{"id": 1, "name": "Alpha v2 config"}`,
		`{"issues": []}`)

	buf := &bytes.Buffer{}
	r, err := Load(fixture.NewLoader(fsys, zerolog.Nop()), []string{"alpha", "alpha-v2"}, zerolog.New(buf))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	board, _ := r.Board(1)
	if !strings.Contains(string(board), "Alpha v2") {
		t.Errorf("Board(1) = %s, want the later profile", board)
	}
	issues, _ := r.Issues(1)
	if len(issues) != 0 {
		t.Errorf("Issues(1) has %d issues, want 0 from the later profile", len(issues))
	}
	if !strings.Contains(buf.String(), `"replaced_profile":"alpha"`) {
		t.Errorf("expected duplicate warning, got %q", buf.String())
	}
	if got := r.LoadedProfiles(); !reflect.DeepEqual(got, []string{"alpha-v2"}) {
		t.Errorf("LoadedProfiles() = %v, want only the replacing profile", got)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_Issue(t *testing.T) {
	r := loadTestRegistry(t, "alpha", "beta")

	tests := []struct {
		idOrKey string
		wantKey string
		found   bool
	}{
		{idOrKey: "AL-2", wantKey: "AL-2", found: true},
		{idOrKey: "101", wantKey: "AL-2", found: true},
		{idOrKey: "BE-1", wantKey: "BE-1", found: true},
		{idOrKey: "200", wantKey: "BE-1", found: true},
		{idOrKey: "XX-1", found: false},
		{idOrKey: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.idOrKey, func(t *testing.T) {
			issue, ok := r.Issue(tt.idOrKey)
			if ok != tt.found {
				t.Fatalf("Issue(%q) found = %v, want %v", tt.idOrKey, ok, tt.found)
			}
			if ok {
				if key, _ := issue.StringField("key"); key != tt.wantKey {
					t.Errorf("Issue(%q) key = %q, want %q", tt.idOrKey, key, tt.wantKey)
				}
			}
		})
	}
}

func TestNew(t *testing.T) {
	r := New(
		&fixture.Profile{Name: "b", BoardID: 9, Board: fixture.Document(`{"id":9}`), Configuration: fixture.Document(`{}`), Issues: []fixture.Document{}},
		&fixture.Profile{Name: "a", BoardID: 3, Board: fixture.Document(`{"id":3}`), Configuration: fixture.Document(`{}`), Issues: []fixture.Document{fixture.Document(`{"key":"A-1"}`)}},
	)

	boards := r.Boards()
	if len(boards) != 2 || string(boards[0]) != `{"id":3}` || string(boards[1]) != `{"id":9}` {
		t.Errorf("Boards() = %s, want ascending id order", boards)
	}
	if _, ok := r.Issue("A-1"); !ok {
		t.Error("Issue(A-1) should be indexed")
	}
	if got := r.LoadedProfiles(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("LoadedProfiles() = %v, want profile order", got)
	}
}

func TestNew_ReplacedProfileIsDropped(t *testing.T) {
	r := New(
		&fixture.Profile{Name: "first", BoardID: 3, Board: fixture.Document(`{"id":3,"v":1}`), Configuration: fixture.Document(`{}`)},
		&fixture.Profile{Name: "other", BoardID: 4, Board: fixture.Document(`{"id":4}`), Configuration: fixture.Document(`{}`)},
		&fixture.Profile{Name: "second", BoardID: 3, Board: fixture.Document(`{"id":3,"v":2}`), Configuration: fixture.Document(`{}`)},
	)

	if got := r.LoadedProfiles(); !reflect.DeepEqual(got, []string{"other", "second"}) {
		t.Errorf("LoadedProfiles() = %v, want [other second]", got)
	}
	if board, _ := r.Board(3); string(board) != `{"id":3,"v":2}` {
		t.Errorf("Board(3) = %s, want the later profile", board)
	}
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	r := loadTestRegistry(t, "alpha", "beta")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, ok := r.Board(1); !ok {
					t.Error("Board(1) missing")
					return
				}
				if issues, ok := r.Issues(2); !ok || len(issues) != 1 {
					t.Error("Issues(2) wrong")
					return
				}
				r.Boards()
			}
		}()
	}
	wg.Wait()
}
