// Package export stages resolved shopping lists and renders them with schema.org markup
package export

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"strings"
	"time"

	"github.com/alchemorsel/intake/internal/application/ingredients"
	"github.com/alchemorsel/intake/internal/domain/export"
	"github.com/alchemorsel/intake/internal/ports/inbound"
	"github.com/alchemorsel/intake/internal/ports/outbound"
	apperrors "github.com/alchemorsel/intake/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config is the immutable configuration of the export service
type Config struct {
	StageTTL     time.Duration
	DefaultTitle string
}

// DefaultConfig returns the production settings
func DefaultConfig() Config {
	return Config{StageTTL: 10 * time.Minute, DefaultTitle: "Einkaufsliste"}
}

// Service implements inbound.ExportService
type Service struct {
	resolver *ingredients.Resolver
	stages   outbound.StageStore
	cfg      Config
	now      func() time.Time
	logger   *zap.Logger
}

var _ inbound.ExportService = (*Service)(nil)

// NewService creates an export service
func NewService(resolver *ingredients.Resolver, stages outbound.StageStore, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		resolver: resolver,
		stages:   stages,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.Named("export"),
	}
}

// Stage resolves the ingredient graph and keeps the flat list for StageTTL
func (s *Service) Stage(ctx context.Context, cmd inbound.StageCommand) (*inbound.StagedList, error) {
	if cmd.Caller.Identity == "" {
		return nil, apperrors.NewValidationError("identity is required")
	}

	title := strings.TrimSpace(cmd.Title)
	var lines []string

	switch {
	case cmd.RecipeID != "":
		root, resolved, err := s.resolver.ResolveRecipe(ctx, cmd.RecipeID)
		if err != nil {
			return nil, err
		}
		if title == "" {
			title = root.Title
		}
		lines = resolved
	case len(cmd.Ingredients) > 0:
		resolved, err := s.resolver.Resolve(ctx, cmd.Ingredients)
		if err != nil {
			return nil, err
		}
		lines = resolved
	default:
		return nil, apperrors.NewValidationError("ingredients or recipe_id is required")
	}

	if len(lines) == 0 {
		return nil, apperrors.NewValidationError("the shopping list is empty")
	}
	if title == "" {
		title = s.cfg.DefaultTitle
	}

	now := s.now()
	list := &export.ShoppingList{
		Handle:      uuid.NewString(),
		Identity:    cmd.Caller.Identity,
		Title:       title,
		Ingredients: lines,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.StageTTL),
	}
	if err := s.stages.Put(ctx, list, s.cfg.StageTTL); err != nil {
		return nil, apperrors.NewStorageFaultError("stage shopping list", err)
	}

	s.logger.Debug("Shopping list staged",
		zap.String("handle", list.Handle),
		zap.Int("ingredients", len(lines)),
	)

	return &inbound.StagedList{
		Handle:      list.Handle,
		Title:       title,
		Ingredients: lines,
		ExpiresIn:   int(s.cfg.StageTTL.Seconds()),
	}, nil
}

// Render returns the HTML document for a staged list owned by identity
func (s *Service) Render(ctx context.Context, identity, handle string) ([]byte, error) {
	list, err := s.stages.Get(ctx, handle)
	if errors.Is(err, export.ErrStageNotFound) {
		return nil, apperrors.NewStageExpiredError(handle)
	}
	if err != nil {
		return nil, apperrors.NewStorageFaultError("load shopping list", err)
	}
	if list.Expired(s.now()) {
		return nil, apperrors.NewStageExpiredError(handle)
	}
	if list.Identity != identity {
		s.logger.Warn("Shopping list identity mismatch", zap.String("handle", handle))
		return nil, apperrors.NewForbiddenError("this shopping list belongs to another session")
	}

	return renderDocument(list.Title, list.Ingredients)
}

type jsonLDRecipe struct {
	Context          string   `json:"@context"`
	Type             string   `json:"@type"`
	Name             string   `json:"name"`
	RecipeIngredient []string `json:"recipeIngredient"`
}

var documentTemplate = template.Must(template.New("shopping-list").Parse(`<!DOCTYPE html>
<html lang="de">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script type="application/ld+json">{{.LD}}</script>
</head>
<body>
<h1>{{.Title}}</h1>
<ul>
{{- range .Ingredients}}
<li>{{.}}</li>
{{- end}}
</ul>
</body>
</html>
`))

// renderDocument produces HTML embedding schema.org Recipe JSON-LD
func renderDocument(title string, lines []string) ([]byte, error) {
	var buf bytes.Buffer
	err := documentTemplate.Execute(&buf, struct {
		Title       string
		Ingredients []string
		LD          jsonLDRecipe
	}{
		Title:       title,
		Ingredients: lines,
		LD: jsonLDRecipe{
			Context:          "https://schema.org",
			Type:             "Recipe",
			Name:             title,
			RecipeIngredient: lines,
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "render shopping list")
	}
	return buf.Bytes(), nil
}
