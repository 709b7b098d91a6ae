package sim

import (
	"strings"

	"github.com/odvcencio/snaplist/pkg/browser"
)

// URLs served by DefaultMarketplace.
const (
	MarketplaceHome   = "https://www.facebook.com/marketplace"
	MarketplaceLogin  = "https://www.facebook.com/login/"
	MarketplaceCreate = "https://www.facebook.com/marketplace/create/item"
	MarketplaceReview = "https://www.facebook.com/marketplace/create/item/review"
	MarketplaceItem   = "https://www.facebook.com/marketplace/item/100200300400500/"

	// FlagAuthenticated is set once the login form is accepted.
	FlagAuthenticated = "authenticated"
)

// Targets for the buttons DefaultMarketplace wires transitions to.
var (
	LoginButton   = browser.CSSTarget(`button[name="login"]`)
	NextButton    = browser.TextTarget(`div[role="button"]`, "Next")
	PublishButton = browser.TextTarget(`div[role="button"]`, "Publish")
)

const loginPage = `<!doctype html>
<html><head><title>Log in to Facebook</title></head><body>
<form id="login_form">
  <input type="text" name="email" aria-label="Email address or phone number">
  <input type="password" name="pass" aria-label="Password">
  <button type="submit" name="login">Log in</button>
</form>
</body></html>`

const homePage = `<!doctype html>
<html><head><title>Marketplace</title></head><body>
<div role="navigation"><a href="/marketplace/create/item">Create new listing</a></div>
<div role="main"><h1>Today's picks</h1></div>
</body></html>`

const createPage = `<!doctype html>
<html><head><title>Item for sale</title></head><body>
<form>
  <div aria-label="Add photos"><input type="file" accept="image/*,image/heif,image/heic" multiple style="display: none"></div>
  <label><span>Title</span><input type="text" aria-label="Title"></label>
  <label><span>Price</span><input type="text" aria-label="Price" inputmode="numeric"></label>
  <div aria-label="Category" role="combobox" tabindex="0"><span>Category</span></div>
  <div role="listbox" aria-label="Category options">
    {{CATEGORIES}}
  </div>
  <div aria-label="Condition" role="combobox" tabindex="0"><span>Condition</span></div>
  <div role="listbox" aria-label="Condition options">
    <div role="option">New</div>
    <div role="option">Used - Like New</div>
    <div role="option">Used - Good</div>
    <div role="option">Used - Fair</div>
  </div>
  <label><span>Description</span><textarea aria-label="Description"></textarea></label>
  <div role="button" tabindex="0"><span>Next</span></div>
</form>
</body></html>`

const reviewPage = `<!doctype html>
<html><head><title>Item for sale</title></head><body>
<div role="main">
  <h2>List in more places</h2>
  <div role="button" tabindex="0"><span>Publish</span></div>
</div>
</body></html>`

const itemPage = `<!doctype html>
<html><head><title>Marketplace listing</title></head><body>
<div role="main"><span>Your listing is now live</span></div>
</body></html>`

var categoryOptions = []string{
	"Electronics", "Furniture", "Clothing", "Home & Garden", "Sports", "Toys", "Books", "Auto Parts", "Other",
}

// DefaultMarketplace builds a site shaped like the real marketplace: the home
// and create pages redirect to the login form until the session logs in, the
// create form leads to a review page on Next, and Publish lands on an item
// permalink. When email is empty any credentials are accepted.
func DefaultMarketplace(email, password string) *Site {
	var options strings.Builder
	for _, c := range categoryOptions {
		options.WriteString(`<div role="option">` + strings.ReplaceAll(c, "&", "&amp;") + `</div>`)
	}

	site := NewSite().
		AddPage(MarketplaceLogin, loginPage).
		AddPage(MarketplaceHome, homePage).
		AddPage(MarketplaceCreate, strings.Replace(createPage, "{{CATEGORIES}}", options.String(), 1)).
		AddPage(MarketplaceReview, reviewPage).
		AddPage(MarketplaceItem, itemPage)

	loginRedirect := MarketplaceLogin + "?next=" + strings.ReplaceAll(MarketplaceHome, ":", "%3A")
	for _, protected := range []string{MarketplaceHome, MarketplaceCreate, MarketplaceReview} {
		site.AddRedirect(Redirect{From: protected, To: loginRedirect, Unless: FlagAuthenticated})
	}

	var guard func(Values) bool
	if email != "" {
		guard = func(v Values) bool {
			return v["email"] == email && v["pass"] == password
		}
	}
	site.AddTransition(Transition{
		At:      MarketplaceLogin,
		Click:   LoginButton,
		To:      MarketplaceHome,
		SetFlag: FlagAuthenticated,
		Guard:   guard,
	})
	site.AddTransition(Transition{
		At:    MarketplaceReview,
		Click: PublishButton,
		To:    MarketplaceItem,
	})
	site.AddTransition(Transition{
		At:    MarketplaceCreate,
		Click: NextButton,
		To:    MarketplaceReview,
		Guard: func(v Values) bool {
			return strings.TrimSpace(v["Title"]) != "" && strings.TrimSpace(v["Price"]) != ""
		},
	})
	return site
}
