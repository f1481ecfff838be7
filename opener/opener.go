// Package opener opens the dev server in the default browser once it answers.
package opener

import (
	"fmt"
	"net/http"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/browser"
)

// Opener ...
type Opener struct {
	client  *retryablehttp.Client
	logger  log.Logger
	openURL func(url string) error
}

// New ...
func New(logger log.Logger) Opener {
	return Opener{
		client:  retryhttp.NewClient(logger),
		logger:  logger,
		openURL: browser.OpenURL,
	}
}

// Open waits for url to respond and opens it. A server that never comes up is only
// a warning, the page is opened anyway.
func (o Opener) Open(url string) error {
	if err := o.waitFor(url); err != nil {
		o.logger.Warnf("%s is not responding yet: %s", url, err)
	}

	o.logger.Printf("Opening %s", url)
	if err := o.openURL(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

func (o Opener) waitFor(url string) error {
	req, err := retryablehttp.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	if err := resp.Body.Close(); err != nil {
		o.logger.Debugf("Failed to close response body: %s", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
