package parser

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"QuestionsScanner/internal/domain"
	"QuestionsScanner/internal/ports"
)

const defaultBaseURL = "https://t.me"

var channelNameExpr = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{2,31}$`)

// ChannelOptions tunes the preview scanner.
type ChannelOptions struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	CacheTTL          time.Duration
}

// ChannelScanner reads public channels through the t.me/s web preview.
type ChannelScanner struct {
	client    *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	sources   *cache.Cache
	logger    *slog.Logger
}

var _ ports.SourceClient = (*ChannelScanner)(nil)

// NewChannelScanner wires an HTTP client. Redirects are never followed: the
// preview redirects to the plain channel page when it is unavailable.
func NewChannelScanner(client *http.Client, opts ChannelOptions, logger *slog.Logger) *ChannelScanner {
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	noRedirect := *client
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "QuestionsScanner/1.0"
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &ChannelScanner{
		client:    &noRedirect,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		limiter:   rate.NewLimiter(limit, 1),
		sources:   cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		logger:    logger,
	}
}

// Connect has nothing to open: every call is a plain HTTP request.
func (s *ChannelScanner) Connect(context.Context) error {
	return nil
}

// Disconnect drops idle keep-alive connections and cached metadata.
func (s *ChannelScanner) Disconnect(context.Context) error {
	s.client.CloseIdleConnections()
	s.sources.Flush()
	return nil
}

// ResolveSource loads the channel header once and caches it.
func (s *ChannelScanner) ResolveSource(ctx context.Context, locator string) (domain.Source, error) {
	name, err := ChannelName(locator)
	if err != nil {
		return domain.Source{}, err
	}

	if cached, ok := s.sources.Get(name); ok {
		src := cached.(domain.Source)
		src.Locator = locator
		return src, nil
	}

	doc, err := s.fetchDocument(ctx, s.pageURL(name, 0))
	if err != nil {
		return domain.Source{}, fmt.Errorf("resolve %s: %w", locator, err)
	}

	title := strings.TrimSpace(doc.Find(".tgme_channel_info_header_title").First().Text())
	if title == "" {
		return domain.Source{}, fmt.Errorf("resolve %s: no public preview: %w", locator, domain.ErrNotFound)
	}

	src := domain.Source{
		ID:          name,
		DisplayName: title,
		Locator:     locator,
		IsPublic:    true,
	}
	s.sources.SetDefault(name, src)
	s.logger.Debug("source resolved", "source", name, "title", title)
	return src, nil
}

// StreamMessages walks the preview pages backwards until limit messages were yielded.
func (s *ChannelScanner) StreamMessages(ctx context.Context, src domain.Source, limit int) iter.Seq2[domain.Message, error] {
	return func(yield func(domain.Message, error) bool) {
		if limit <= 0 {
			return
		}

		var before int64
		emitted := 0
		for {
			doc, err := s.fetchDocument(ctx, s.pageURL(src.ID, before))
			if err != nil {
				yield(domain.Message{}, fmt.Errorf("fetch %s: %w", src.ID, err))
				return
			}

			page := parsePage(doc, src.ID)
			if len(page) == 0 {
				return
			}

			oldest := page[0].id
			for i := len(page) - 1; i >= 0; i-- {
				p := page[i]
				if p.id < oldest {
					oldest = p.id
				}
				if before > 0 && p.id >= before {
					continue
				}
				if p.service || p.msg.Text == "" {
					continue
				}
				if !yield(p.msg, nil) {
					return
				}
				emitted++
				if emitted >= limit {
					return
				}
			}

			if oldest <= 1 || (before > 0 && oldest >= before) {
				return
			}
			before = oldest
		}
	}
}

func (s *ChannelScanner) pageURL(name string, before int64) string {
	u := s.baseURL + "/s/" + url.PathEscape(name)
	if before > 0 {
		u += "?before=" + strconv.FormatInt(before, 10)
	}
	return u
}

func (s *ChannelScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: request document: %w", domain.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("preview returned %s: %w", resp.Status, domain.ErrNotFound)
	case resp.StatusCode == http.StatusForbidden,
		resp.StatusCode >= 300 && resp.StatusCode < 400:
		return nil, fmt.Errorf("preview returned %s: %w", resp.Status, domain.ErrAccessDenied)
	default:
		return nil, fmt.Errorf("%w: preview returned %s", domain.ErrConnectivity, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse document: %w", domain.ErrConnectivity, err)
	}
	return doc, nil
}

type post struct {
	id      int64
	service bool
	msg     domain.Message
}

// parsePage returns posts in page order, which is oldest first.
func parsePage(doc *goquery.Document, sourceID string) []post {
	var posts []post
	doc.Find(".tgme_widget_message[data-post]").Each(func(_ int, sel *goquery.Selection) {
		p, err := parsePost(sel, sourceID)
		if err != nil {
			return
		}
		posts = append(posts, p)
	})
	return posts
}

func parsePost(sel *goquery.Selection, sourceID string) (post, error) {
	dataPost, _ := sel.Attr("data-post")
	idx := strings.LastIndex(dataPost, "/")
	if idx < 0 {
		return post{}, errors.New("malformed data-post")
	}
	id, err := strconv.ParseInt(dataPost[idx+1:], 10, 64)
	if err != nil {
		return post{}, fmt.Errorf("message id %q: %w", dataPost, err)
	}

	textSel := sel.Find(".tgme_widget_message_text.js-message_text").First()
	if textSel.Length() == 0 {
		textSel = sel.Find(".tgme_widget_message_text").First()
	}
	textSel.Find("br").ReplaceWithHtml("\n")
	text := strings.TrimSpace(textSel.Text())

	senderName := strings.TrimSpace(sel.Find(".tgme_widget_message_from_author").First().Text())
	if senderName == "" {
		senderName = strings.TrimSpace(sel.Find(".tgme_widget_message_owner_name").First().Text())
	}

	var ts time.Time
	if raw, ok := sel.Find(".tgme_widget_message_date time[datetime]").First().Attr("datetime"); ok {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			ts = parsed.UTC()
		}
	}

	return post{
		id:      id,
		service: sel.HasClass("service_message"),
		msg: domain.Message{
			SourceID:   sourceID,
			MessageID:  id,
			SenderID:   sourceID,
			SenderName: senderName,
			Text:       text,
			Timestamp:  ts,
		},
	}, nil
}

// ChannelName extracts the channel username from the accepted locator forms:
// https://t.me/name, t.me/s/name, @name or a bare name. Usernames are
// case-insensitive, so the result is lower-cased.
func ChannelName(locator string) (string, error) {
	rest := strings.TrimSpace(locator)
	for _, prefix := range []string{"https://", "http://"} {
		rest = strings.TrimPrefix(rest, prefix)
	}
	for _, host := range []string{"www.t.me/", "t.me/", "telegram.me/"} {
		if strings.HasPrefix(strings.ToLower(rest), host) {
			rest = rest[len(host):]
			break
		}
	}
	rest = strings.TrimPrefix(rest, "s/")
	rest = strings.TrimPrefix(rest, "@")
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}

	if strings.HasPrefix(rest, "+") || strings.EqualFold(rest, "joinchat") {
		return "", fmt.Errorf("locator %q is a private invite: %w", locator, domain.ErrAccessDenied)
	}
	if !channelNameExpr.MatchString(rest) {
		return "", fmt.Errorf("locator %q is not a channel username: %w", locator, domain.ErrNotFound)
	}
	return strings.ToLower(rest), nil
}
