// Package notion wraps the Notion API for the fixed assignment
// database schema. Pages are keyed by the Canvas ID number property;
// the client enforces at most one lookup result per key.
package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jomei/notionapi"

	"cnsync/internal/apierr"
)

// DefaultTimeout bounds every HTTP call made by the client.
const DefaultTimeout = 30 * time.Second

// Client is an authenticated Notion API client bound to one database.
type Client struct {
	api        *notionapi.Client
	databaseID notionapi.DatabaseID
}

// New creates a client for the given integration token and database.
func New(token, databaseID string) *Client {
	hc := &http.Client{Timeout: DefaultTimeout}
	return &Client{
		api:        notionapi.NewClient(notionapi.Token(token), notionapi.WithHTTPClient(hc)),
		databaseID: notionapi.DatabaseID(databaseID),
	}
}

// Existing is a previously synced page found by Canvas ID. Duplicates
// counts additional pages observed with the same Canvas ID (created
// outside the sync); the caller decides how to report them.
type Existing struct {
	PageID     string
	Mapped     Mapped
	Duplicates int
}

// FindPageByCanvasID queries the database for the page holding the
// given Canvas assignment ID. Returns nil when no page exists. When
// duplicates exist the first result wins; the query fetches one page
// beyond the first so the collision is observable in Duplicates.
func (c *Client) FindPageByCanvasID(ctx context.Context, canvasID int64) (*Existing, error) {
	val := float64(canvasID)
	resp, err := c.api.Database.Query(ctx, c.databaseID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: propCanvasID,
			Number:   &notionapi.NumberFilterCondition{Equals: &val},
		},
		PageSize: 2,
	})
	if err != nil {
		return nil, mapErr(err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	page := resp.Results[0]
	return &Existing{
		PageID:     string(page.ID),
		Mapped:     MappedFromPage(&page),
		Duplicates: len(resp.Results) - 1,
	}, nil
}

// CreatePage creates a database page for the mapped assignment. A
// non-empty description becomes the page body; the body is only ever
// written at creation, never touched by updates.
func (c *Client) CreatePage(ctx context.Context, m Mapped, description string) (string, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: c.databaseID,
		},
		Properties: m.Properties(),
	}
	if description != "" {
		req.Children = []notionapi.Block{paragraphBlock(description)}
	}

	page, err := c.api.Page.Create(ctx, req)
	if err != nil {
		return "", mapErr(err)
	}
	return string(page.ID), nil
}

// UpdatePage replaces the mapped properties of an existing page.
func (c *Client) UpdatePage(ctx context.Context, pageID string, m Mapped) error {
	_, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: m.Properties(),
	})
	return mapErr(err)
}

func paragraphBlock(content string) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeParagraph,
		},
		Paragraph: notionapi.Paragraph{
			RichText: richText(content),
		},
	}
}

// mapErr classifies notionapi and transport errors into the shared
// taxonomy.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		classified := apierr.FromStatus(apiErr.Status, apiErr.Message)
		return fmt.Errorf("notion: %w", classified)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("notion: %w", apierr.WrapTransport(err))
	}
	return fmt.Errorf("notion: %w", err)
}
