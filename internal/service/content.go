package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/storage"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type BlogService interface {
	List(ctx context.Context, filter storage.BlogFilter) ([]*models.BlogPost, error)
	// Get принимает числовой id или slug
	Get(ctx context.Context, idOrSlug string, publishedOnly bool) (*models.BlogPost, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, post *models.BlogPost) (*models.BlogPost, error)
	Update(ctx context.Context, post *models.BlogPost) (*models.BlogPost, error)
	Delete(ctx context.Context, id int64) error
}

type blogService struct {
	log      *slog.Logger
	blogRepo storage.BlogStorage
}

func NewBlogService(log *slog.Logger, blogRepo storage.BlogStorage) BlogService {
	return &blogService{log: log, blogRepo: blogRepo}
}

// Slugify переводит заголовок в slug: без диакритики, нижний регистр, слова через дефис
func Slugify(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, title)
	if err != nil {
		plain = title
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// uniqueSlug добавляет числовой суффикс, пока slug занят другой статьёй
func (s *blogService) uniqueSlug(ctx context.Context, title string, excludeID int64) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "post"
	}
	slug := base
	for i := 2; ; i++ {
		taken, err := s.blogRepo.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(i)
	}
}

func (s *blogService) List(ctx context.Context, filter storage.BlogFilter) ([]*models.BlogPost, error) {
	const op = "service.BlogService.List"
	posts, err := s.blogRepo.ListPosts(ctx, filter)
	if err != nil {
		s.log.Error("failed to list posts", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return posts, nil
}

func (s *blogService) Get(ctx context.Context, idOrSlug string, publishedOnly bool) (*models.BlogPost, error) {
	const op = "service.BlogService.Get"

	var (
		post *models.BlogPost
		err  error
	)
	if id, convErr := strconv.ParseInt(idOrSlug, 10, 64); convErr == nil {
		post, err = s.blogRepo.GetPostByID(ctx, id)
	} else {
		post, err = s.blogRepo.GetPostBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if publishedOnly && !post.Published {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrPostNotFound)
	}
	return post, nil
}

func (s *blogService) Categories(ctx context.Context) ([]string, error) {
	const op = "service.BlogService.Categories"
	categories, err := s.blogRepo.PostCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return categories, nil
}

func (s *blogService) Create(ctx context.Context, post *models.BlogPost) (*models.BlogPost, error) {
	const op = "service.BlogService.Create"
	logger := s.log.With(slog.String("op", op), slog.String("title", post.Title))

	if strings.TrimSpace(post.Title) == "" || strings.TrimSpace(post.Content) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}
	slug, err := s.uniqueSlug(ctx, post.Title, 0)
	if err != nil {
		logger.Error("failed to generate slug", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	post.Slug = slug
	if post.Published && post.PublishedAt == nil {
		now := time.Now().UTC()
		post.PublishedAt = &now
	}

	created, err := s.blogRepo.CreatePost(ctx, post)
	if err != nil {
		logger.Error("failed to create post", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("post created", slog.String("slug", created.Slug))
	return created, nil
}

// Update перегенерирует slug, только если поменялся заголовок
func (s *blogService) Update(ctx context.Context, post *models.BlogPost) (*models.BlogPost, error) {
	const op = "service.BlogService.Update"
	logger := s.log.With(slog.String("op", op), slog.Int64("postID", post.ID))

	if strings.TrimSpace(post.Title) == "" || strings.TrimSpace(post.Content) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}
	current, err := s.blogRepo.GetPostByID(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	post.Slug = current.Slug
	if post.Title != current.Title {
		if post.Slug, err = s.uniqueSlug(ctx, post.Title, post.ID); err != nil {
			logger.Error("failed to generate slug", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	post.PublishedAt = current.PublishedAt
	if post.Published && post.PublishedAt == nil {
		now := time.Now().UTC()
		post.PublishedAt = &now
	}
	post.CreatedAt = current.CreatedAt

	if err := s.blogRepo.UpdatePost(ctx, post); err != nil {
		logger.Error("failed to update post", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("post updated", slog.String("slug", post.Slug))
	return post, nil
}

func (s *blogService) Delete(ctx context.Context, id int64) error {
	const op = "service.BlogService.Delete"
	if err := s.blogRepo.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("post deleted", slog.String("op", op), slog.Int64("postID", id))
	return nil
}

type SupplierService interface {
	List(ctx context.Context, filter storage.SupplierFilter) ([]*models.Supplier, error)
	Get(ctx context.Context, id int64) (*models.Supplier, error)
	Create(ctx context.Context, sup *models.Supplier) (*models.Supplier, error)
	Update(ctx context.Context, sup *models.Supplier) (*models.Supplier, error)
	Delete(ctx context.Context, id int64) error
}

type supplierService struct {
	log          *slog.Logger
	supplierRepo storage.SupplierStorage
}

func NewSupplierService(log *slog.Logger, supplierRepo storage.SupplierStorage) SupplierService {
	return &supplierService{log: log, supplierRepo: supplierRepo}
}

func validSupplierStatus(st models.SupplierStatus) bool {
	return st == models.SupplierActive || st == models.SupplierInactive
}

func (s *supplierService) List(ctx context.Context, filter storage.SupplierFilter) ([]*models.Supplier, error) {
	const op = "service.SupplierService.List"
	if filter.Status != "" && !validSupplierStatus(filter.Status) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}
	suppliers, err := s.supplierRepo.ListSuppliers(ctx, filter)
	if err != nil {
		s.log.Error("failed to list suppliers", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return suppliers, nil
}

func (s *supplierService) Get(ctx context.Context, id int64) (*models.Supplier, error) {
	const op = "service.SupplierService.Get"
	sup, err := s.supplierRepo.GetSupplier(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sup, nil
}

func (s *supplierService) Create(ctx context.Context, sup *models.Supplier) (*models.Supplier, error) {
	const op = "service.SupplierService.Create"
	if sup.Status == "" {
		sup.Status = models.SupplierActive
	}
	if strings.TrimSpace(sup.Name) == "" || !validSupplierStatus(sup.Status) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}
	created, err := s.supplierRepo.CreateSupplier(ctx, sup)
	if err != nil {
		s.log.Error("failed to create supplier", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("supplier created", slog.String("op", op), slog.Int64("supplierID", created.ID))
	return created, nil
}

func (s *supplierService) Update(ctx context.Context, sup *models.Supplier) (*models.Supplier, error) {
	const op = "service.SupplierService.Update"
	if strings.TrimSpace(sup.Name) == "" || !validSupplierStatus(sup.Status) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}
	if err := s.supplierRepo.UpdateSupplier(ctx, sup); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sup, nil
}

func (s *supplierService) Delete(ctx context.Context, id int64) error {
	const op = "service.SupplierService.Delete"
	if err := s.supplierRepo.DeleteSupplier(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
