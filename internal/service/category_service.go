package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finance-hub/internal/data"
	"finance-hub/internal/logger"
)

// NoCategoryLabel is shown for content whose category no longer exists.
const NoCategoryLabel = "Без категории"

// CategoryInput is the admin category form.
type CategoryInput struct {
	Name        string    `form:"name" validate:"required,max=255"`
	Slug        string    `form:"slug" validate:"max=255"`
	Type        data.Kind `form:"type" validate:"required,oneof=offer article forum news"`
	Description string    `form:"description" validate:"max=2000"`
}

// CategoryService owns the category partitions and enforces that content
// only references a category of its own kind.
type CategoryService struct {
	categories Collection[data.Category]
	dependents map[data.Kind]Dependents
	notify     ChangeNotifier
	log        logger.Logger
}

// NewCategoryService creates a CategoryService. dependents maps each kind to
// the collection whose rows reference categories of that kind.
func NewCategoryService(categories Collection[data.Category], dependents map[data.Kind]Dependents, notify ChangeNotifier, log logger.Logger) *CategoryService {
	return &CategoryService{
		categories: categories,
		dependents: dependents,
		notify:     notifierOrNoop(notify),
		log:        log,
	}
}

// List returns the categories of one kind ordered by name.
func (s *CategoryService) List(ctx context.Context, kind data.Kind) ([]data.Category, error) {
	return s.categories.List(ctx, data.Query{
		Where:   []data.Cond{data.Eq("type", kind)},
		OrderBy: "name",
	})
}

// ListAll returns every category grouped by kind then name.
func (s *CategoryService) ListAll(ctx context.Context) ([]data.Category, error) {
	var all []data.Category
	for _, k := range data.Kinds {
		cats, err := s.List(ctx, k)
		if err != nil {
			return nil, err
		}
		all = append(all, cats...)
	}
	return all, nil
}

// Get returns a category by id.
func (s *CategoryService) Get(ctx context.Context, id string) (*data.Category, error) {
	return s.categories.Get(ctx, id)
}

// Resolve loads the category id for content of the given kind, failing when
// it does not exist or belongs to another partition.
func (s *CategoryService) Resolve(ctx context.Context, kind data.Kind, id string) (*data.Category, error) {
	if strings.TrimSpace(id) == "" {
		return nil, Invalid("category_id", "Выберите категорию")
	}
	cat, err := s.categories.Get(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	if cat.Type != kind {
		return nil, fmt.Errorf("%w: %q is a %s category, not %s", ErrCategoryMismatch, cat.Name, cat.Type, kind)
	}
	return cat, nil
}

// Labels maps category ids of kind to their names.
func (s *CategoryService) Labels(ctx context.Context, kind data.Kind) (map[string]string, error) {
	cats, err := s.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	labels := make(map[string]string, len(cats))
	for _, c := range cats {
		labels[c.ID] = c.Name
	}
	return labels, nil
}

// Label returns the name for id, or the fallback label for a dangling id.
func Label(labels map[string]string, id string) string {
	if name, ok := labels[id]; ok {
		return name
	}
	return NoCategoryLabel
}

// inPartition reports whether a public category filter may be applied to
// content of kind. A filter naming a category of another kind matches nothing.
func (s *CategoryService) inPartition(ctx context.Context, kind data.Kind, id string) (bool, error) {
	if id == "" {
		return true, nil
	}
	_, err := s.Resolve(ctx, kind, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrCategoryNotFound), errors.Is(err, ErrCategoryMismatch):
		return false, nil
	default:
		return false, err
	}
}

// Create adds a category. An empty slug is derived from the name.
func (s *CategoryService) Create(ctx context.Context, in CategoryInput, ownerID string) (*data.Category, error) {
	cat, err := s.build(in)
	if err != nil {
		return nil, err
	}
	cat.OwnerID = ownerID
	if err := s.categories.Create(ctx, cat); err != nil {
		if errors.Is(err, data.ErrConflict) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	s.notify.ContentChanged(ctx)
	return cat, nil
}

// Update edits a category. Changing its kind is refused while content
// still references it.
func (s *CategoryService) Update(ctx context.Context, id string, in CategoryInput) (*data.Category, error) {
	current, err := s.categories.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if next.Type != current.Type {
		n, err := s.countDependents(ctx, current)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, ErrCategoryInUse
		}
	}
	updated, err := s.categories.Update(ctx, id, data.Fields{
		"name":        next.Name,
		"slug":        next.Slug,
		"type":        next.Type,
		"description": next.Description,
	})
	if err != nil {
		if errors.Is(err, data.ErrConflict) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	s.notify.ContentChanged(ctx)
	return updated, nil
}

// Delete removes a category. When content still references it, reassignTo
// must name another category of the same kind; the content is moved there
// first. Without it the delete fails with ErrCategoryInUse.
func (s *CategoryService) Delete(ctx context.Context, id, reassignTo string) error {
	cat, err := s.categories.Get(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.countDependents(ctx, cat)
	if err != nil {
		return err
	}
	if n > 0 {
		if reassignTo == "" {
			return fmt.Errorf("%w: %d items reference %q", ErrCategoryInUse, n, cat.Name)
		}
		if reassignTo == id {
			return Invalid("reassign_to", "Выберите другую категорию")
		}
		if _, err := s.Resolve(ctx, cat.Type, reassignTo); err != nil {
			return err
		}
		moved, err := s.dependents[cat.Type].Reassign(ctx, "category_id", id, reassignTo)
		if err != nil {
			return err
		}
		s.log.Info(fmt.Sprintf("Moved %d %s items from category %s to %s", moved, cat.Type, id, reassignTo))
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.notify.ContentChanged(ctx)
	return nil
}

func (s *CategoryService) countDependents(ctx context.Context, cat *data.Category) (int, error) {
	deps, ok := s.dependents[cat.Type]
	if !ok {
		return 0, nil
	}
	return deps.Count(ctx, data.Query{Where: []data.Cond{data.Eq("category_id", cat.ID)}})
}

func (s *CategoryService) build(in CategoryInput) (*data.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	slug := in.Slug
	if strings.TrimSpace(slug) == "" {
		slug = Slugify(in.Name)
	}
	slug, err := normalizeSlug(slug)
	if err != nil {
		return nil, err
	}
	return &data.Category{
		Name:        in.Name,
		Slug:        slug,
		Type:        in.Type,
		Description: strings.TrimSpace(in.Description),
	}, nil
}
