package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/granitemd/granite/internal/docindex"
)

// ErrNotFound reports that the requested document does not exist on the
// backend. All other request failures are transient from the pane engine's
// point of view.
var ErrNotFound = errors.New("document not found")

// Document is one backend note as returned by the document store.
type Document struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Store is the document-store collaborator consumed by the pane manager.
type Store interface {
	Get(ctx context.Context, path string) (Document, error)
	Save(ctx context.Context, path, content string) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context) ([]docindex.Entry, error)
}

// Client talks to the Granite backend's note API over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient constructs a Client for the backend at baseURL, authenticating
// with the given bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) noteURL(path string) string {
	escaped := url.PathEscape(path)
	// Keep slashes readable; the backend routes note paths as a subtree.
	escaped = strings.ReplaceAll(escaped, "%2F", "/")
	return fmt.Sprintf("%s/api/notes/%s", c.baseURL, escaped)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	return c.http.Do(req)
}

// Get fetches a document. A backend 404 maps to ErrNotFound.
func (c *Client) Get(ctx context.Context, path string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.noteURL(path), nil)
	if err != nil {
		return Document{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return Document{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Document{}, fmt.Errorf("%s: %w", path, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return Document{}, fmt.Errorf("failed to fetch note, status code: %d", resp.StatusCode)
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if doc.Path == "" {
		doc.Path = path
	}
	return doc, nil
}

// Save creates or updates a document.
func (c *Client) Save(ctx context.Context, path, content string) error {
	data, err := json.Marshal(map[string]any{"content": content})
	if err != nil {
		return fmt.Errorf("failed to encode data to JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.noteURL(path),
		bytes.NewBuffer(data),
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("failed to save note, status code: %d", resp.StatusCode)
	}
	return nil
}

// Delete removes a document. A backend 404 maps to ErrNotFound.
func (c *Client) Delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.noteURL(path), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent:
		return fmt.Errorf("failed to delete note, status code: %d", resp.StatusCode)
	}
	return nil
}

type listResponse struct {
	Notes []struct {
		Path string `json:"path"`
		Name string `json:"name"`
	} `json:"notes"`
	Images []struct {
		Path string `json:"path"`
		Name string `json:"name"`
	} `json:"images"`
}

// List fetches the backend document listing in document-index form.
func (c *Client) List(ctx context.Context) ([]docindex.Entry, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		fmt.Sprintf("%s/api/notes", c.baseURL),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list notes, status code: %d", resp.StatusCode)
	}

	var listing listResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	entries := make([]docindex.Entry, 0, len(listing.Notes)+len(listing.Images))
	for _, n := range listing.Notes {
		entries = append(entries, docindex.Entry{Path: n.Path, Name: n.Name, Type: docindex.TypeNote})
	}
	for _, img := range listing.Images {
		entries = append(entries, docindex.Entry{Path: img.Path, Name: img.Name, Type: docindex.TypeImage})
	}
	return entries, nil
}
