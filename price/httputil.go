package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/cryptotax"
	"github.com/shopspring/decimal"
)

// StatusError is an unexpected HTTP response status.
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string { return fmt.Sprintf("cannot http GET %s: %s", e.URL, e.Status) }

// Temporary reports whether the request may succeed later.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// jwget performs an HTTP GET request and decodes the JSON response into data,
// keeping numbers exact. A 404 is reported as ErrPriceNotFound.
func jwget(ctx context.Context, client *http.Client, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		serr := &StatusError{URL: resp.Request.URL.Host + resp.Request.URL.Path, Code: resp.StatusCode, Status: resp.Status}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %w", cryptotax.ErrPriceNotFound, serr)
		}
		return serr
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(data)
}

// jdecimal reads the number at path in a document decoded by jwget. A missing
// path is reported as ErrPriceNotFound.
func jdecimal(doc any, path string) (decimal.Decimal, error) {
	jval, err := jsonpath.Get(path, doc)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", cryptotax.ErrPriceNotFound, path, err)
	}
	// jsonpath may return a list of one answer.
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return decimal.Zero, fmt.Errorf("%w: %s is empty", cryptotax.ErrPriceNotFound, path)
		}
		jval = jlist[0]
	}
	switch v := jval.(type) {
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Zero, fmt.Errorf("%s: not a number: %v", path, jval)
	}
}
