// Package testutil provides fixture builders and a running stub server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"testing/fstest"

	"github.com/Sternrassler/jira-stub/pkg/fixture"
)

// ProfileFixture holds the raw contents of one profile's fixture files.
// Empty fields are left out of the generated file system.
type ProfileFixture struct {
	Name          string
	Board         string
	Configuration string
	IssueSet      string
}

// NewFS lays out profiles the way the fixture loader expects them.
func NewFS(profiles ...ProfileFixture) fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, p := range profiles {
		files := map[string]string{
			fixture.FileBoard:              p.Board,
			fixture.FileBoardConfiguration: p.Configuration,
			fixture.FileIssueSet:           p.IssueSet,
		}
		for file, data := range files {
			if data == "" {
				continue
			}
			fsys[p.Name+"/"+file] = &fstest.MapFile{Data: []byte(data)}
		}
	}
	return fsys
}

// BoardJSON renders a kanban board document. id is encoded as given, so
// passing a string produces a string id.
func BoardJSON(id any, name string) string {
	return mustJSON(map[string]any{
		"id":   id,
		"self": fmt.Sprintf("http://localhost:8080/rest/agile/1.0/board/%v", id),
		"name": name,
		"type": "kanban",
	})
}

// ConfigurationJSON renders a minimal board configuration document.
func ConfigurationJSON(id int64, name string) string {
	return mustJSON(map[string]any{
		"id":   id,
		"name": name,
		"columnConfig": map[string]any{
			"columns": []map[string]any{
				{"name": "To Do", "statuses": []map[string]string{{"id": "1"}}},
				{"name": "Done", "statuses": []map[string]string{{"id": "3"}}},
			},
		},
	})
}

// IssueKeys returns count issue keys PROJECT-1 .. PROJECT-count.
func IssueKeys(project string, count int) []string {
	keys := make([]string, count)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%d", project, i+1)
	}
	return keys
}

// IssueSetJSON renders an issue set with one issue per key. Issue ids start
// at firstID and increase by one.
func IssueSetJSON(firstID int, keys ...string) string {
	issues := make([]map[string]any, len(keys))
	for i, key := range keys {
		issues[i] = map[string]any{
			"id":  fmt.Sprint(firstID + i),
			"key": key,
			"fields": map[string]any{
				"summary": "Issue " + key,
			},
		}
	}
	return mustJSON(map[string]any{
		"expand":     "schema,names",
		"startAt":    0,
		"maxResults": len(keys),
		"total":      len(keys),
		"issues":     issues,
	})
}

// Profile builds a complete, valid profile with issueCount issues.
func Profile(name string, boardID int64, project string, issueCount int) ProfileFixture {
	return ProfileFixture{
		Name:          name,
		Board:         BoardJSON(boardID, name),
		Configuration: ConfigurationJSON(boardID, name),
		IssueSet:      IssueSetJSON(int(boardID)*1000, IssueKeys(project, issueCount)...),
	}
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
