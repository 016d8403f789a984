package actionkit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pidl-project/pidl/paction"
	"github.com/pidl-project/pidl/pctx"
)

// HTTPAction issues a single HTTP request built from lazily resolved
// promise fields, recording the response in the pipeline Context.
// Grounded on the runpipe example's httpstages package (request, status
// check, body read).
type HTTPAction struct {
	paction.BaseAction
	TaskName string
	Client   *http.Client

	URL    *pctx.Promise[string]
	Method *pctx.Promise[string]
	Body   *pctx.Promise[string]
}

// NewHTTPAction constructs an HTTPAction. url/method/body are resolved
// lazily at run time via their Promise's Value(); method defaults to GET
// when nil, body defaults to empty when nil.
func NewHTTPAction(taskName, name string, url *pctx.Promise[string]) *HTTPAction {
	return &HTTPAction{
		BaseAction: paction.NewBaseAction("HTTPAction", name, "run"),
		TaskName:   taskName,
		Client:     http.DefaultClient,
		URL:        url,
	}
}

// Run performs the request, storing the response status and body in the
// pipeline Context under "<task>.<action>.status" / ".body". A non-2xx
// status is a run() error.
func (a *HTTPAction) Run(ctx context.Context, pipelineCtx *pctx.Context) error {
	url := a.URL.Value()

	method := "GET"
	if a.Method != nil {
		if m := a.Method.Value(); m != "" {
			method = strings.ToUpper(m)
		}
	}

	var body io.Reader
	if a.Body != nil {
		if b := a.Body.Value(); b != "" {
			body = strings.NewReader(b)
		}
	}

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("http action %s: new request: %w", a.Name(), err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http action %s: %s %q: %w", a.Name(), method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("http action %s: read body: %w", a.Name(), err)
	}

	pipelineCtx.Set(a.TaskName+"."+a.Name()+".status", strconv.Itoa(resp.StatusCode))
	pipelineCtx.Set(a.TaskName+"."+a.Name()+".body", string(respBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http action %s: %s %q: status %d", a.Name(), method, url, resp.StatusCode)
	}
	return nil
}
