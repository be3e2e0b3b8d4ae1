package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Sternrassler/jira-stub/pkg/fixture"
	"github.com/Sternrassler/jira-stub/pkg/pagination"
)

// Boards returns one page of the board list.
func (c *Client) Boards(ctx context.Context, startAt, maxResults int64) (pagination.ValuesPage[fixture.Document], error) {
	var page pagination.ValuesPage[fixture.Document]

	resp, err := c.do(ctx, "boards", http.MethodGet, c.agilePath("board"), pageQuery(startAt, maxResults), nil)
	if err != nil {
		return page, err
	}
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return page, fmt.Errorf("decode board list: %w", err)
	}
	return page, nil
}

// Board returns the board document. Unknown boards return ErrBoardNotFound.
func (c *Client) Board(ctx context.Context, boardID int64) (fixture.Document, error) {
	resp, err := c.do(ctx, "board", http.MethodGet, c.agilePath("board", strconv.FormatInt(boardID, 10)), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeDocument(resp, ErrBoardNotFound)
}

// BoardConfiguration returns the board's configuration document.
// Unknown boards return ErrBoardNotFound.
func (c *Client) BoardConfiguration(ctx context.Context, boardID int64) (fixture.Document, error) {
	path := c.agilePath("board", strconv.FormatInt(boardID, 10), "configuration")
	resp, err := c.do(ctx, "board_configuration", http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeDocument(resp, ErrBoardNotFound)
}

// Issue returns an issue by id or key. Unknown issues return ErrIssueNotFound.
func (c *Client) Issue(ctx context.Context, idOrKey string) (fixture.Document, error) {
	resp, err := c.do(ctx, "issue", http.MethodGet, c.agilePath("issue", idOrKey), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeDocument(resp, ErrIssueNotFound)
}

// Issues returns one page of the board's issues. Unknown boards return
// ErrBoardNotFound.
func (c *Client) Issues(ctx context.Context, boardID, startAt, maxResults int64) (pagination.Page[fixture.Document], error) {
	var page pagination.Page[fixture.Document]

	path := c.agilePath("board", strconv.FormatInt(boardID, 10), "issue")
	resp, err := c.do(ctx, "issues", http.MethodGet, path, pageQuery(startAt, maxResults), nil)
	if err != nil {
		return page, err
	}

	// Unknown boards are reported as plain text with status 200.
	if !resp.isJSON() {
		return page, fmt.Errorf("%w: %s", ErrBoardNotFound, resp.Body)
	}
	if env, ok := asErrorEnvelope(resp.Body); ok {
		return page, fmt.Errorf("%w: %s", ErrBoardNotFound, env.message())
	}
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return page, fmt.Errorf("decode issue page: %w", err)
	}
	return page, nil
}
