package sipd

import (
	"context"
	"fmt"

	"sipdbot/lib/htmlutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrNoTables = fmt.Errorf("no tables found on the page")

type ScrapeRequest struct {
	// site path to fetch over the logged-in HTTP session
	Path string
	// which table on the page, 0-based
	TableIndex int
}

// ScrapeTable fetches a page of the logged-in site and extracts one of
// its tables. Rendering and exporting are the caller's business, this
// just gets the data out.
func (s Service) ScrapeTable(ctx context.Context, req ScrapeRequest) (htmlutil.Table, error) {
	ctx, span := tracer.Start(ctx, "ScrapeTable")
	defer span.End()
	span.SetAttributes(
		attribute.String("path", req.Path),
		attribute.Int("table", req.TableIndex),
	)

	doc, err := s.core.Fetch(ctx, req.Path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch page")
		return htmlutil.Table{}, err
	}

	tables := htmlutil.ExtractTables(doc)
	if len(tables) == 0 {
		span.SetStatus(codes.Error, ErrNoTables.Error())
		return htmlutil.Table{}, ErrNoTables
	}
	if req.TableIndex < 0 || req.TableIndex >= len(tables) {
		err := fmt.Errorf(
			"table index %d out of range, the page has %d table(s)",
			req.TableIndex, len(tables),
		)
		span.SetStatus(codes.Error, err.Error())
		return htmlutil.Table{}, err
	}

	return tables[req.TableIndex], nil
}

// ScrapeLinks lists the anchors on a page of the logged-in site,
// resolved against the site base. Useful for discovering which
// penatausahaan paths are worth feeding back into ScrapeTable.
func (s Service) ScrapeLinks(ctx context.Context, path string) ([]htmlutil.Anchor, error) {
	ctx, span := tracer.Start(ctx, "ScrapeLinks")
	defer span.End()
	span.SetAttributes(attribute.String("path", path))

	doc, err := s.core.Fetch(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch page")
		return nil, err
	}

	return htmlutil.GetAnchors(s.core.BaseUrl, doc.Find("a")), nil
}
