package marketplace

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/odvcencio/snaplist/pkg/browser"
	"github.com/odvcencio/snaplist/pkg/errors"
)

// tryTargets runs action against each target in order and stops at the first
// that does not fail with SelectorNotFound.
func tryTargets(targets []browser.Target, action func(browser.Target) error) error {
	var last error
	for _, t := range targets {
		if t.IsZero() {
			continue
		}
		err := action(t)
		if err == nil {
			return nil
		}
		if browser.KindOf(err) != browser.KindSelectorNotFound {
			return err
		}
		last = err
	}
	if last == nil {
		last = browser.NewAutomationError(browser.KindSelectorNotFound, "resolve", "", fmt.Errorf("no targets configured"))
	}
	return last
}

func fill(ctx context.Context, sess browser.Session, targets []browser.Target, value string) error {
	return tryTargets(targets, func(t browser.Target) error {
		return sess.FillField(ctx, t, value)
	})
}

func click(ctx context.Context, sess browser.Session, targets []browser.Target) error {
	return tryTargets(targets, func(t browser.Target) error {
		return sess.Click(ctx, t)
	})
}

// withText fills the Text of template targets.
func withText(templates []browser.Target, text string) []browser.Target {
	out := make([]browser.Target, 0, len(templates))
	for _, t := range templates {
		t.Text = text
		out = append(out, t)
	}
	return out
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

// codeForKind maps a browser failure onto the error taxonomy.
func codeForKind(err error) errors.ErrorCode {
	if isCancellation(err) {
		return errors.ErrCodeCancelled
	}
	switch browser.KindOf(err) {
	case browser.KindTimeout:
		return errors.ErrCodeTimeout
	case browser.KindSelectorNotFound:
		return errors.ErrCodeSelectorNotFound
	case browser.KindNavigation:
		return errors.ErrCodeNavigation
	}
	return errors.ErrCodeInternal
}

// isCancellation reports whether err stems from the caller cancelling or the
// session being closed underneath the workflow.
func isCancellation(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, browser.ErrSessionClosed)
}

func cancelled(phase string, err error) error {
	return errors.Wrap(err, errors.ErrCodeCancelled, "operation cancelled").
		WithContext("phase", phase).
		WithUserMessage("Operation cancelled")
}
