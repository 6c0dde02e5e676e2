package tracking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	defaultPageTimeout = 20 * time.Second
	defaultSettleDelay = 1600 * time.Millisecond

	// Cap on the post-navigation wait for in-flight requests, so one
	// long-polling request cannot eat the whole page budget.
	networkIdleWait = 5 * time.Second

	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// PageCapture is everything a page visit yields: the rendered DOM plus the
// bodies of JSON responses the page fetched while rendering.
type PageCapture struct {
	HTML     string
	Payloads [][]byte
}

// PageLoader renders a URL in a browser and captures the result.
type PageLoader interface {
	Load(ctx context.Context, url string) (*PageCapture, error)
}

// ChromeLoader drives a headless Chrome via chromedp. Each Load spins up a
// fresh browser context and tears it down afterwards, so one stuck page
// cannot poison later fetches.
type ChromeLoader struct {
	timeout time.Duration
	settle  time.Duration
}

// NewChromeLoader creates a loader with the given page timeout and
// post-navigation settle delay. Zero values fall back to defaults.
func NewChromeLoader(timeout, settle time.Duration) *ChromeLoader {
	if timeout <= 0 {
		timeout = defaultPageTimeout
	}
	if settle <= 0 {
		settle = defaultSettleDelay
	}
	return &ChromeLoader{timeout: timeout, settle: settle}
}

func (l *ChromeLoader) allocatorOptions() []chromedp.ExecAllocatorOption {
	return []chromedp.ExecAllocatorOption{
		chromedp.UserAgent(desktopUserAgent),
		chromedp.WindowSize(1366, 900),
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
	}
}

// Load implements PageLoader. JSON responses are collected through the CDP
// network domain while the page renders; bodies are pulled only after the
// settle delay, once their requests have finished.
func (l *ChromeLoader) Load(ctx context.Context, url string) (*PageCapture, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, l.allocatorOptions()...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	runCtx, cancel := context.WithTimeout(browserCtx, l.timeout)
	defer cancel()

	var (
		mu         sync.Mutex
		jsonBodies []network.RequestID
		inflight   int64
	)
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		switch resp := ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt64(&inflight, 1)
		case *network.EventLoadingFinished:
			atomic.AddInt64(&inflight, -1)
		case *network.EventLoadingFailed:
			atomic.AddInt64(&inflight, -1)
		case *network.EventResponseReceived:
			mime := strings.ToLower(resp.Response.MimeType)
			if !strings.Contains(mime, "json") {
				return
			}
			mu.Lock()
			jsonBodies = append(jsonBodies, resp.RequestID)
			mu.Unlock()
		}
	})

	capture := &PageCapture{}
	err := chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return awaitNetworkIdle(ctx, func() int64 {
				return atomic.LoadInt64(&inflight)
			}, networkIdleWait)
		}),
		chromedp.Sleep(l.settle),
		chromedp.ActionFunc(func(ctx context.Context) error {
			mu.Lock()
			ids := make([]network.RequestID, len(jsonBodies))
			copy(ids, jsonBodies)
			mu.Unlock()
			for _, id := range ids {
				body, err := network.GetResponseBody(id).Do(ctx)
				if err != nil {
					// Body may be gone from the browser cache; skip it.
					continue
				}
				capture.Payloads = append(capture.Payloads, body)
			}
			return nil
		}),
		chromedp.OuterHTML("html", &capture.HTML, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, WrapError(ErrTimeout, "page render timed out", err)
		}
		return nil, WrapError(ErrPageLoadFailed, "page render failed", err)
	}
	return capture, nil
}

// awaitNetworkIdle blocks until pending reports zero for two consecutive
// polls, then returns. Hitting maxWait is not an error: the page is handed
// to the settle delay with whatever has arrived.
func awaitNetworkIdle(ctx context.Context, pending func() int64, maxWait time.Duration) error {
	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	quiet := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case <-tick.C:
			if pending() > 0 {
				quiet = 0
				continue
			}
			quiet++
			if quiet >= 2 {
				return nil
			}
		}
	}
}
