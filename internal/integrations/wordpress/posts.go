package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"autodraft/internal/content"
	"autodraft/internal/domain"
)

const (
	timestampLayout   = "2006-01-02 15:04:05"
	defaultDraftLimit = 10
)

// DraftOptions override the client defaults for one CreateDraft call. Zero
// values mean "use the default".
type DraftOptions struct {
	Status         string
	AuthorID       int
	CategoryIDs    []int
	Tags           []string
	Excerpt        string
	Model          string
	PersonaKey     string
	OriginalPrompt string
	Meta           map[string]any
}

// UpdateFields lists the fields sent by UpdatePost. Nil fields are left out
// of the request.
type UpdateFields struct {
	Title      *string
	Content    *string
	Status     *string
	Categories []int
	Tags       []string
	Excerpt    *string
	Meta       map[string]any
}

type rendered struct {
	Rendered string `json:"rendered"`
}

type wpPost struct {
	ID         *int            `json:"id"`
	Title      rendered        `json:"title"`
	Content    rendered        `json:"content"`
	Excerpt    rendered        `json:"excerpt"`
	Status     string          `json:"status"`
	Link       string          `json:"link"`
	Date       string          `json:"date"`
	Modified   string          `json:"modified"`
	Author     int             `json:"author"`
	Categories []int           `json:"categories"`
	Tags       []int           `json:"tags"`
	Meta       json.RawMessage `json:"meta"`
}

type wpCategory struct {
	ID          *int   `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// BuildDocument merges opts with the client defaults. The excerpt is derived
// from bodyHTML when opts leaves it empty.
func (c *Client) BuildDocument(title, bodyHTML string, opts DraftOptions) domain.PublishDocument {
	doc := domain.PublishDocument{
		Title:       title,
		BodyHTML:    bodyHTML,
		Excerpt:     opts.Excerpt,
		Status:      opts.Status,
		AuthorID:    opts.AuthorID,
		CategoryIDs: domain.UniqueIDs(opts.CategoryIDs),
		TagNames:    opts.Tags,
	}
	if doc.Status == "" {
		doc.Status = c.defaults.Status
	}
	if doc.AuthorID == 0 {
		doc.AuthorID = c.defaults.AuthorID
	}
	if len(doc.CategoryIDs) == 0 && c.defaults.CategoryID > 0 {
		doc.CategoryIDs = []int{c.defaults.CategoryID}
	}
	if doc.TagNames == nil {
		doc.TagNames = []string{}
	}
	if doc.Excerpt == "" {
		doc.Excerpt = content.GenerateExcerpt(bodyHTML, content.DefaultExcerptLength)
	}

	model := opts.Model
	if model == "" {
		model = "unknown"
	}
	persona := opts.PersonaKey
	if persona == "" {
		persona = "unknown"
	}
	doc.Metadata = map[string]any{
		"ai_generated":         true,
		"ai_model":             model,
		"ai_persona":           persona,
		"generation_timestamp": c.now().UTC().Format(timestampLayout),
		"original_prompt":      opts.OriginalPrompt,
	}
	for k, v := range opts.Meta {
		doc.Metadata[k] = v
	}
	return doc
}

// CreateDraft publishes a new post built from title, bodyHTML and opts.
func (c *Client) CreateDraft(ctx context.Context, title, bodyHTML string, opts DraftOptions) (domain.PublishedPost, error) {
	return c.Publish(ctx, c.BuildDocument(title, bodyHTML, opts))
}

// Publish sends a fully built document.
func (c *Client) Publish(ctx context.Context, doc domain.PublishDocument) (domain.PublishedPost, error) {
	post, err := c.createPost(ctx, doc)
	if err != nil {
		c.logger.Error("failed to create wordpress draft", "title", doc.Title, "err", err)
		return domain.PublishedPost{}, err
	}
	c.logger.Info("created wordpress draft", "post_id", post.ID, "title", doc.Title, "content_length", len(doc.BodyHTML))
	return post, nil
}

func (c *Client) createPost(ctx context.Context, doc domain.PublishDocument) (domain.PublishedPost, error) {
	var res wpPost
	if err := c.do(ctx, http.MethodPost, postsPath, nil, doc, &res); err != nil {
		return domain.PublishedPost{}, err
	}
	if res.ID == nil {
		return domain.PublishedPost{}, domain.UpstreamError("wordpress_missing_id", errors.New("wordpress: create draft: response missing id"))
	}
	return domain.PublishedPost{
		ID:        *res.ID,
		Title:     res.Title.Rendered,
		URL:       res.Link,
		EditURL:   c.EditURL(*res.ID),
		Status:    res.Status,
		Timestamp: res.Date,
	}, nil
}

// UpdatePost changes the non-nil fields of post id.
func (c *Client) UpdatePost(ctx context.Context, id int, f UpdateFields) (domain.PublishedPost, error) {
	body := map[string]any{}
	if f.Title != nil {
		body["title"] = *f.Title
	}
	if f.Content != nil {
		body["content"] = *f.Content
	}
	if f.Status != nil {
		body["status"] = *f.Status
	}
	if f.Categories != nil {
		body["categories"] = domain.UniqueIDs(f.Categories)
	}
	if f.Tags != nil {
		body["tags"] = f.Tags
	}
	if f.Excerpt != nil {
		body["excerpt"] = *f.Excerpt
	}
	if f.Meta != nil {
		body["meta"] = f.Meta
	}

	var res wpPost
	err := c.do(ctx, http.MethodPost, postPath(id), nil, body, &res)
	if err == nil && res.ID == nil {
		err = domain.UpstreamError("wordpress_missing_id", fmt.Errorf("wordpress: update post %d: response missing id", id))
	}
	if err != nil {
		c.logger.Error("failed to update wordpress post", "post_id", id, "err", err)
		return domain.PublishedPost{}, err
	}
	c.logger.Info("updated wordpress post", "post_id", id, "fields", len(body))
	return domain.PublishedPost{
		ID:        *res.ID,
		Title:     res.Title.Rendered,
		URL:       res.Link,
		EditURL:   c.EditURL(*res.ID),
		Status:    res.Status,
		Timestamp: res.Modified,
	}, nil
}

// GetPost fetches the full view of post id.
func (c *Client) GetPost(ctx context.Context, id int) (domain.Post, error) {
	var res wpPost
	err := c.do(ctx, http.MethodGet, postPath(id), nil, nil, &res)
	if err == nil && res.ID == nil {
		err = domain.UpstreamError("not_found", fmt.Errorf("wordpress: post %d not found", id))
	}
	if err != nil {
		c.logger.Error("failed to get wordpress post", "post_id", id, "err", err)
		return domain.Post{}, err
	}
	c.logger.Info("fetched wordpress post", "post_id", *res.ID, "title", res.Title.Rendered)
	return domain.Post{
		ID:         *res.ID,
		Title:      res.Title.Rendered,
		Content:    res.Content.Rendered,
		Excerpt:    res.Excerpt.Rendered,
		Status:     res.Status,
		URL:        res.Link,
		CreatedAt:  res.Date,
		UpdatedAt:  res.Modified,
		Author:     res.Author,
		Categories: res.Categories,
		Tags:       res.Tags,
		Meta:       decodeMeta(res.Meta),
	}, nil
}

// ListDrafts returns drafts ordered by most recently modified.
func (c *Client) ListDrafts(ctx context.Context, limit, offset int) ([]domain.DraftSummary, error) {
	if limit <= 0 {
		limit = defaultDraftLimit
	}
	if offset < 0 {
		offset = 0
	}
	q := url.Values{}
	q.Set("status", "draft")
	q.Set("per_page", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("orderby", "modified")
	q.Set("order", "desc")

	var res []wpPost
	if err := c.do(ctx, http.MethodGet, postsPath, q, nil, &res); err != nil {
		c.logger.Error("failed to get wordpress drafts", "err", err)
		return nil, err
	}

	drafts := make([]domain.DraftSummary, 0, len(res))
	for _, p := range res {
		if p.ID == nil {
			continue
		}
		drafts = append(drafts, domain.DraftSummary{
			ID:          *p.ID,
			Title:       p.Title.Rendered,
			Excerpt:     p.Excerpt.Rendered,
			Status:      p.Status,
			URL:         p.Link,
			EditURL:     c.EditURL(*p.ID),
			CreatedAt:   p.Date,
			UpdatedAt:   p.Modified,
			AIGenerated: truthy(decodeMeta(p.Meta)["ai_generated"]),
		})
	}
	c.logger.Info("listed wordpress drafts", "count", len(drafts), "limit", limit, "offset", offset)
	return drafts, nil
}

// DeletePost trashes post id, or removes it permanently when force is set.
func (c *Client) DeletePost(ctx context.Context, id int, force bool) error {
	var q url.Values
	if force {
		q = url.Values{"force": []string{"true"}}
	}
	if err := c.do(ctx, http.MethodDelete, postPath(id), q, nil, nil); err != nil {
		c.logger.Error("failed to delete wordpress post", "post_id", id, "err", err)
		return err
	}
	c.logger.Info("deleted wordpress post", "post_id", id, "force", force)
	return nil
}

// ListCategories returns the site's categories.
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var res []wpCategory
	if err := c.do(ctx, http.MethodGet, categoriesPath, nil, nil, &res); err != nil {
		c.logger.Error("failed to get wordpress categories", "err", err)
		return nil, err
	}
	out := make([]domain.Category, 0, len(res))
	for _, cat := range res {
		if cat.ID == nil {
			continue
		}
		out = append(out, domain.Category{ID: *cat.ID, Name: cat.Name, Slug: cat.Slug, Description: cat.Description})
	}
	c.logger.Info("listed wordpress categories", "count", len(out))
	return out, nil
}

// CreateCategory adds a category under parentID (0 for top level).
func (c *Client) CreateCategory(ctx context.Context, name, description string, parentID int) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, domain.NewError(domain.ErrorInvalidInput, "empty_category_name", nil)
	}
	body := map[string]any{"name": name, "description": description, "parent": parentID}

	var res wpCategory
	err := c.do(ctx, http.MethodPost, categoriesPath, nil, body, &res)
	if err == nil && res.ID == nil {
		err = domain.UpstreamError("wordpress_missing_id", errors.New("wordpress: create category: response missing id"))
	}
	if err != nil {
		c.logger.Error("failed to create wordpress category", "name", name, "err", err)
		return domain.Category{}, err
	}
	c.logger.Info("created wordpress category", "category_id", *res.ID, "name", res.Name)
	return domain.Category{ID: *res.ID, Name: res.Name, Slug: res.Slug, Description: res.Description}, nil
}

// TestConnection lists a single post to verify reachability and credentials.
func (c *Client) TestConnection(ctx context.Context) error {
	var res []json.RawMessage
	if err := c.do(ctx, http.MethodGet, postsPath, url.Values{"per_page": []string{"1"}}, nil, &res); err != nil {
		c.logger.Error("wordpress connection test failed", "err", err)
		return err
	}
	c.logger.Info("wordpress connection test successful")
	return nil
}

func postPath(id int) string {
	return postsPath + "/" + strconv.Itoa(id)
}

// decodeMeta tolerates WordPress returning [] for an empty meta object.
func decodeMeta(raw json.RawMessage) map[string]any {
	meta := map[string]any{}
	if len(raw) == 0 {
		return meta
	}
	_ = json.Unmarshal(raw, &meta)
	return meta
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		b, err := strconv.ParseBool(t)
		return err == nil && b
	case []any:
		return len(t) > 0 && truthy(t[0])
	default:
		return false
	}
}
