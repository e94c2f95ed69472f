package core

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"sipdbot/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const DefaultBaseUrl = "https://sipd.kemendagri.go.id"

// paths under the penatausahaan app, relative to the base url
const (
	LoginPath     = "/penatausahaan/login"
	DashboardPath = "/penatausahaan"
	RealisasiPath = "/penatausahaan/penatausahaan/pengeluaran/laporan/realisasi"
	AklapPath     = "/penatausahaan/aklap"
	LPJQueuePath  = "/penatausahaan/penatausahaan/pengeluaran/lpj/verifikasi"
	STSInputPath  = "/penatausahaan/penatausahaan/penerimaan/sts/create"
)

var ErrNotLoggedIn = fmt.Errorf("not logged in to SIPD-RI")

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
}

type ClientOptions struct {
	// defaults to DefaultBaseUrl, overridable for tests
	BaseUrl string
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	// 2 requests max per second, the site is slow enough already
	// without the bot hammering it
	rateLimiter := rate.NewLimiter(2, 2)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	c := &Client{
		BaseUrl: baseUrl,
		Http:    client,
	}
	return c, nil
}

// Fetch requests a path of the logged-in site and parses the response
// body into a goquery document.
func (c *Client) Fetch(ctx context.Context, path string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch page")
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// LoggedIn probes the penatausahaan dashboard. An expired session gets
// bounced to the login page, which is detected by the final request url
// or by the login form being present in the response.
func (c *Client) LoggedIn(ctx context.Context) (bool, error) {
	ctx, span := tracer.Start(ctx, "client:LoggedIn")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(DashboardPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to request dashboard")
		return false, err
	}

	finalUrl := res.RawResponse.Request.URL
	if strings.Contains(finalUrl.Path, "/login") {
		return false, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse dashboard html")
		return false, err
	}
	if len(doc.Find("input#ed_username").Nodes) > 0 {
		return false, nil
	}

	return true, nil
}
