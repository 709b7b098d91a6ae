package automation

import (
	"github.com/odvcencio/snaplist/pkg/errors"
	"github.com/odvcencio/snaplist/pkg/marketplace"
)

// Result is the envelope every operation returns. Failures never escape as
// Go errors; they are folded into Error and Code.
type Result struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message,omitempty"`
	ListingURL string           `json:"listingUrl,omitempty"`
	Error      string           `json:"error,omitempty"`
	Code       errors.ErrorCode `json:"code,omitempty"`
}

// Health is the liveness payload.
type Health struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Storage  string `json:"storage,omitempty"`
}

func ok(message string) Result {
	return Result{Success: true, Message: message}
}

func failure(err error) Result {
	msg := errors.Message(err)
	if msg == "" {
		msg = "operation failed"
	}
	return Result{Success: false, Error: msg, Code: errors.GetCode(err)}
}

func fromSubmission(report marketplace.Report) Result {
	res := report.Result()
	out := Result{Success: res.Success, ListingURL: res.ListingURL, Error: res.Error}
	if !res.Success {
		if report.Err != nil {
			out.Code = errors.GetCode(report.Err)
		} else {
			out.Code = errors.ErrCodeNavigation
		}
	}
	return out
}
