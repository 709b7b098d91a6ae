package marketplace

// ManualInstructions accompanies every manual posting payload.
const ManualInstructions = "Copy and paste the following into Facebook Marketplace:"

// ManualPost lets a user post a listing by hand when automation is
// unavailable.
type ManualPost struct {
	Success      bool          `json:"success"`
	URL          string        `json:"url"`
	Instructions string        `json:"instructions"`
	Listing      ManualListing `json:"listing"`
}

// ManualListing is the human-readable copy of a listing.
type ManualListing struct {
	Title       string `json:"title"`
	Price       string `json:"price"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// ManualLink builds the manual posting payload. It needs no session and no
// browser.
func ManualLink(catalog *Catalog, listing Listing) ManualPost {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	listing = listing.Normalize()
	return ManualPost{
		Success:      true,
		URL:          catalog.CreateURL,
		Instructions: ManualInstructions,
		Listing: ManualListing{
			Title:       listing.Title,
			Price:       "$" + formatPrice(listing.Price),
			Description: listing.Description,
			Category:    listing.Category,
		},
	}
}
