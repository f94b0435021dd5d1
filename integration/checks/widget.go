package checks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/PuerkitoBio/goquery"
	"github.com/valyala/fasthttp"
)

// WidgetCheck fetches the page a widget is installed on and checks that the
// loader script and the chatbot's config are present. Channels without a page
// to check pass.
type WidgetCheck struct {
	client *fasthttp.Client
}

func NewWidgetCheck(client *fasthttp.Client) *WidgetCheck {
	if client == nil {
		client = &fasthttp.Client{
			Name:                "az-connect-check",
			ReadTimeout:         15 * time.Second,
			MaxResponseBodySize: 4 << 20,
		}
	}
	return &WidgetCheck{client: client}
}

// Set returns the widget checks for the embeddable channel types.
func Set(client *fasthttp.Client) map[channel.ChannelType]channel.HealthCheck {
	p := NewWidgetCheck(client)
	return map[channel.ChannelType]channel.HealthCheck{
		channel.ChannelTypeWebsite: p,
		channel.ChannelTypeShopify: p,
	}
}

func pageURL(ch channel.Channel) string {
	if u := ch.Config.Setting("site_url"); u != "" {
		return u
	}
	if ch.Type == channel.ChannelTypeShopify {
		if shop := ch.Config.Setting("shop_domain"); shop != "" {
			return "https://" + shop
		}
	}
	return ""
}

func (p *WidgetCheck) Check(ctx context.Context, ch channel.Channel) error {
	target := pageURL(ch)
	if target == "" {
		return nil
	}

	body, err := p.fetch(ctx, target)
	if err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("page could not be parsed: %w", err)
	}

	if doc.Find("script[data-azconnect-widget]").Length() == 0 {
		return errors.New("widget script not found on " + target)
	}

	marker := chatbotMarker(ch.ChatbotID)
	found := false
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if marker.MatchString(s.Text()) {
			found = true
			return false
		}
		return true
	})
	if !found {
		return fmt.Errorf("widget on %s is not configured for chatbot %s", target, ch.ChatbotID)
	}
	return nil
}

// chatbotMarker matches the chatbotId entry of an inline config object,
// however the page formats it.
func chatbotMarker(chatbotID string) *regexp.Regexp {
	encoded, _ := json.Marshal(chatbotID)
	return regexp.MustCompile(`"chatbotId"\s*:\s*` + regexp.QuoteMeta(string(encoded)))
}

func (p *WidgetCheck) fetch(ctx context.Context, target string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(target)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "text/html")

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(10 * time.Second)
	}
	if err := p.client.DoDeadline(req, resp, deadline); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return nil, context.DeadlineExceeded
		}
		return nil, fmt.Errorf("page unreachable: %w", err)
	}
	if sc := resp.StatusCode(); sc < 200 || sc >= 300 {
		return nil, fmt.Errorf("page returned status %d", sc)
	}
	return append([]byte(nil), resp.Body()...), nil
}
