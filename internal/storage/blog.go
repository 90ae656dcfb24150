package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/linemk/farm-shop/internal/domain/models"
)

type BlogFilter struct {
	Category      string
	Featured      *bool
	PublishedOnly bool
}

type BlogStorage interface {
	ListPosts(ctx context.Context, filter BlogFilter) ([]*models.BlogPost, error)
	GetPostByID(ctx context.Context, id int64) (*models.BlogPost, error)
	GetPostBySlug(ctx context.Context, slug string) (*models.BlogPost, error)
	// SlugExists проверяет занятость slug другими статьями (excludeID игнорируется)
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	PostCategories(ctx context.Context) ([]string, error)
	CreatePost(ctx context.Context, post *models.BlogPost) (*models.BlogPost, error)
	UpdatePost(ctx context.Context, post *models.BlogPost) error
	DeletePost(ctx context.Context, id int64) error
}

type blogRepository struct {
	db *sql.DB
}

func NewBlogRepository(db *sql.DB) BlogStorage {
	return &blogRepository{db: db}
}

const postColumns = `id, title, slug, excerpt, content, author, category, image, tags, published, featured,
	published_at, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.BlogPost, error) {
	p := &models.BlogPost{}
	var tags pq.StringArray
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &p.Author, &p.Category, &p.Image, &tags,
		&p.Published, &p.Featured, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	p.Tags = []string(tags)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, nil
}

func (r *blogRepository) ListPosts(ctx context.Context, filter BlogFilter) ([]*models.BlogPost, error) {
	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Featured != nil {
		args = append(args, *filter.Featured)
		where = append(where, fmt.Sprintf("featured = $%d", len(args)))
	}
	if filter.PublishedOnly {
		where = append(where, "published = TRUE")
	}
	query := "SELECT " + postColumns + " FROM blog_posts"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY COALESCE(published_at, created_at) DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*models.BlogPost{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *blogRepository) GetPostByID(ctx context.Context, id int64) (*models.BlogPost, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+postColumns+" FROM blog_posts WHERE id = $1", id)
	return scanPost(row)
}

func (r *blogRepository) GetPostBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+postColumns+" FROM blog_posts WHERE slug = $1", slug)
	return scanPost(row)
}

func (r *blogRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM blog_posts WHERE slug = $1 AND id <> $2)", slug, excludeID).Scan(&exists)
	return exists, err
}

func (r *blogRepository) PostCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT category FROM blog_posts WHERE category <> '' ORDER BY category")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *blogRepository) CreatePost(ctx context.Context, post *models.BlogPost) (*models.BlogPost, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO blog_posts (title, slug, excerpt, content, author, category, image, tags, published, featured,
			published_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		post.Title, post.Slug, post.Excerpt, post.Content, post.Author, post.Category, post.Image,
		pq.Array(post.Tags), post.Published, post.Featured, post.PublishedAt,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	return post, nil
}

func (r *blogRepository) UpdatePost(ctx context.Context, post *models.BlogPost) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE blog_posts SET title = $1, slug = $2, excerpt = $3, content = $4, author = $5, category = $6,
			image = $7, tags = $8, published = $9, featured = $10, published_at = $11, updated_at = NOW()
		 WHERE id = $12`,
		post.Title, post.Slug, post.Excerpt, post.Content, post.Author, post.Category, post.Image,
		pq.Array(post.Tags), post.Published, post.Featured, post.PublishedAt, post.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return err
	}
	return expectAffected(res, ErrPostNotFound)
}

func (r *blogRepository) DeletePost(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM blog_posts WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrPostNotFound)
}
