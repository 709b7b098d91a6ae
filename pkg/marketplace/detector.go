package marketplace

import (
	"context"

	"github.com/odvcencio/snaplist/pkg/browser"
)

//go:generate mockgen -package=marketplace -destination=mock_marketplace_test.go github.com/odvcencio/snaplist/pkg/marketplace LoginDetector,CategoryStrategy,ImageFetcher

// LoginDetector decides whether the page the session is on belongs to an
// authenticated user. It is the only place that encodes that heuristic.
type LoginDetector interface {
	LoggedIn(ctx context.Context, sess browser.Session) (bool, error)
}

// URLPatternDetector treats any URL that does not match a login pattern as
// authenticated.
type URLPatternDetector struct {
	Catalog *CatalogStore
}

func (d URLPatternDetector) LoggedIn(ctx context.Context, sess browser.Session) (bool, error) {
	url, err := sess.CurrentURL(ctx)
	if err != nil {
		return false, err
	}
	return !d.Catalog.Current().IsLoginURL(url), nil
}
