package marketplace

import (
	"context"
	"fmt"
	"strings"

	"github.com/odvcencio/snaplist/pkg/browser"
)

// CategoryStrategy picks a category on the create form. The site's category
// control changes often, so it is kept separate from the rest of the flow.
type CategoryStrategy interface {
	Name() string
	Select(ctx context.Context, sess browser.Session, form FormTargets, category string) error
}

// TypeAheadCategory opens the control, types the category and commits with
// Enter.
type TypeAheadCategory struct{}

func (TypeAheadCategory) Name() string { return "typeahead" }

func (TypeAheadCategory) Select(ctx context.Context, sess browser.Session, form FormTargets, category string) error {
	if err := click(ctx, sess, form.Category); err != nil {
		return err
	}
	if err := sess.TypeText(ctx, category); err != nil {
		return err
	}
	return sess.PressKey(ctx, browser.KeyEnter)
}

// OptionCategory opens the control and clicks the option whose text
// contains the category.
type OptionCategory struct{}

func (OptionCategory) Name() string { return "option" }

func (OptionCategory) Select(ctx context.Context, sess browser.Session, form FormTargets, category string) error {
	if err := click(ctx, sess, form.Category); err != nil {
		return err
	}
	return click(ctx, sess, withText(form.CategoryOption, category))
}

// CategoryStrategyByName resolves a configured strategy name.
func CategoryStrategyByName(name string) (CategoryStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "typeahead":
		return TypeAheadCategory{}, nil
	case "option":
		return OptionCategory{}, nil
	}
	return nil, fmt.Errorf("unknown category strategy %q", name)
}
