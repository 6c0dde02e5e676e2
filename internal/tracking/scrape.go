package tracking

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Known failure phrases on the public tracking page, checked before any
// structural scraping. All matching is lowercase substring.
var failurePhrases = []struct {
	phrase string
	code   ErrorCode
}{
	{"заказ не найден", ErrOrderNotFound},
	{"ничего не найдено", ErrOrderNotFound},
	{"подтвердите, что вы не робот", ErrCaptchaRequired},
	{"captcha", ErrCaptchaRequired},
	{"доступ ограничен", ErrPageBlocked},
	{"access denied", ErrPageBlocked},
	{"слишком много запросов", ErrRateLimit},
	{"too many requests", ErrRateLimit},
}

// ScrapeFetcher resolves a tracking identifier by rendering the carrier's
// public tracking page. Intercepted JSON payloads are mined first; the
// rendered DOM is only a fallback because the page's own API responses carry
// cleaner data than its markup.
type ScrapeFetcher struct {
	trackURL string
	loader   PageLoader
	now      Clock
}

// NewScrapeFetcher creates a scrape fetcher. trackURL is the public tracking
// page base; the identifier is appended as the orderNumber query parameter.
func NewScrapeFetcher(trackURL string, loader PageLoader) *ScrapeFetcher {
	return &ScrapeFetcher{trackURL: trackURL, loader: loader, now: time.Now}
}

func (f *ScrapeFetcher) pageURL(id string) string {
	sep := "?"
	if strings.Contains(f.trackURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sorderNumber=%s", f.trackURL, sep, url.QueryEscape(id))
}

// FetchByIdentifier implements StatusFetcher. The cached UUID is unused:
// the public page only understands human-readable numbers.
func (f *ScrapeFetcher) FetchByIdentifier(ctx context.Context, id, _ string) (*StatusRecord, error) {
	capture, err := f.loader.Load(ctx, f.pageURL(id))
	if err != nil {
		return nil, err
	}

	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(capture.HTML))
	if docErr == nil {
		if ferr := checkFailurePage(doc); ferr != nil {
			return nil, ferr
		}
	}

	now := f.now()
	if rec := MinePayloads(capture.Payloads, id, now); rec != nil {
		return rec, nil
	}
	if docErr != nil {
		return nil, WrapError(ErrPageLoadFailed, "unparseable page markup", docErr)
	}
	if rec := ScrapeDocument(doc, id, now); rec != nil {
		return rec, nil
	}
	return nil, NewError(ErrPageLayoutChanged, "no tracking timeline found on page")
}

func checkFailurePage(doc *goquery.Document) error {
	text := strings.ToLower(doc.Find("body").Text())
	for _, f := range failurePhrases {
		if strings.Contains(text, f.phrase) {
			return NewError(f.code, "tracking page reported: "+f.phrase)
		}
	}
	return nil
}
