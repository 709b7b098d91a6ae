package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/odvcencio/snaplist/pkg/marketplace"
)

func runLinkCommand(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("link", flag.ContinueOnError)
	fs.SetOutput(stderr)
	title := fs.String("title", "", "listing title")
	price := fs.Float64("price", 0, "listing price")
	description := fs.String("description", "", "listing description")
	category := fs.String("category", "", "listing category")
	jsonPath := fs.String("json", "", "read the listing from a JSON file (- for stdin)")
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}

	path := strings.TrimSpace(*jsonPath)
	if path == "" && fs.NFlag() == 0 && !isTerminal(stdin) {
		// Piped input: snaplist link < listing.json
		path = "-"
	}

	var listing marketplace.Listing
	if path != "" {
		var err error
		listing, err = readListingJSON(path, stdin)
		if err != nil {
			return withExitCode(err, exitUsage)
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			listing.Title = *title
		case "price":
			listing.Price = *price
		case "description":
			listing.Description = *description
		case "category":
			listing.Category = *category
		}
	})
	if strings.TrimSpace(listing.Title) == "" {
		return withExitCode(fmt.Errorf("a listing title is required (use --title or --json)"), exitUsage)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(marketplace.ManualLink(nil, listing))
}

// readListingJSON accepts either a bare listing or the {"listing": {...}}
// request envelope.
func readListingJSON(path string, stdin io.Reader) (marketplace.Listing, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return marketplace.Listing{}, fmt.Errorf("read listing: %w", err)
	}

	var envelope struct {
		Listing *marketplace.Listing `json:"listing"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return marketplace.Listing{}, fmt.Errorf("parse listing: %w", err)
	}
	if envelope.Listing != nil {
		return *envelope.Listing, nil
	}
	var listing marketplace.Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		return marketplace.Listing{}, fmt.Errorf("parse listing: %w", err)
	}
	return listing, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
