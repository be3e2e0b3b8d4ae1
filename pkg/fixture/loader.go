package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/rs/zerolog"
)

// Fixture file names inside a profile directory.
const (
	FileBoard              = "board.json"
	FileBoardConfiguration = "boardconfig.json"
	FileIssueSet           = "issueset.json"
)

// Profile is a fully parsed fixture set, ready to be registered.
type Profile struct {
	Name          string
	BoardID       int64
	Board         Document
	Configuration Document
	Issues        []Document
}

// Loader reads profiles from a file system. Profile names are directories
// at the root of that file system.
type Loader struct {
	fsys   fs.FS
	logger zerolog.Logger
}

// NewLoader creates a loader reading from fsys.
func NewLoader(fsys fs.FS, logger zerolog.Logger) *Loader {
	if fsys == nil {
		panic("fixture file system cannot be nil")
	}
	return &Loader{
		fsys:   fsys,
		logger: logger,
	}
}

// LoadProfile reads and validates the three fixture files of a profile.
// Nothing is returned unless all three parse, so a failed profile never
// yields a partial result. Every error matches ErrMalformedFixture.
func (l *Loader) LoadProfile(name string) (*Profile, error) {
	l.logger.Info().Str("profile", name).Msg("Loading profile")

	p, err := l.loadProfile(name)
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("profile", name).
			Msg("No issues loaded for profile")
		return nil, err
	}

	l.logger.Info().
		Str("profile", name).
		Int64("board_id", p.BoardID).
		Int("issues", len(p.Issues)).
		Msg("Profile loaded")
	return p, nil
}

func (l *Loader) loadProfile(name string) (*Profile, error) {
	if name == "" {
		return nil, &FixtureError{Profile: name, Err: errors.New("empty profile name")}
	}

	board, fields, err := l.readObject(name, FileBoard)
	if err != nil {
		return nil, err
	}
	boardID, err := ParseBoardID(fields["id"])
	if err != nil {
		return nil, &FixtureError{Profile: name, File: FileBoard, Err: err}
	}

	configuration, _, err := l.readObject(name, FileBoardConfiguration)
	if err != nil {
		return nil, err
	}

	_, fields, err = l.readObject(name, FileIssueSet)
	if err != nil {
		return nil, err
	}
	issues, err := parseIssues(fields["issues"])
	if err != nil {
		return nil, &FixtureError{Profile: name, File: FileIssueSet, Err: err}
	}

	return &Profile{
		Name:          name,
		BoardID:       boardID,
		Board:         board,
		Configuration: configuration,
		Issues:        issues,
	}, nil
}

func (l *Loader) readObject(profile, file string) (Document, map[string]json.RawMessage, error) {
	data, err := fs.ReadFile(l.fsys, path.Join(profile, file))
	if err != nil {
		return nil, nil, &FixtureError{Profile: profile, File: file, Err: err}
	}
	doc, fields, err := parseObject(data)
	if err != nil {
		return nil, nil, &FixtureError{Profile: profile, File: file, Err: err}
	}
	return doc, fields, nil
}

func parseIssues(raw json.RawMessage) ([]Document, error) {
	if len(raw) == 0 {
		return nil, errors.New("missing issues")
	}
	var issues []Document
	if err := json.Unmarshal(raw, &issues); err != nil {
		return nil, fmt.Errorf("issues must be an array: %w", err)
	}
	if issues == nil {
		// null decodes without error
		return nil, errors.New("issues must be an array, got null")
	}
	return issues, nil
}
