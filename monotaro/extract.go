package monotaro

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kimata/mohist/crawler"
	"github.com/kimata/mohist/models"
)

const (
	selOrderBox   = "div.orderHistory_list_box"
	selOrderGuide = "p.detail_guide"
	// child combinators: the name cell nests its own table whose rows and
	// cells must not leak into the item rows
	selDetailRows = "table.oderHistory_product > tbody > tr"

	colName   = "商品名"
	colStatus = "注文状況"
	colQty    = "数量"
	colPrice  = "金額(税抜)"
	colTax    = "消費税"
)

// ListPeriods collects every year-month with order history from the
// history landing page: the recent-month links plus the month selector.
func (c *Client) ListPeriods(ctx context.Context) ([]models.Period, error) {
	url := historyURL(c.cfg.BaseURL)
	doc, err := c.fetchPage(ctx, url, false)
	if err != nil {
		return nil, err
	}

	seen := make(map[models.Period]bool)
	var periods []models.Period
	add := func(text string) {
		m := rePeriod.FindStringSubmatch(text)
		if m == nil {
			return
		}
		p, err := models.ParsePeriod(m[1])
		if err != nil || seen[p] {
			return
		}
		seen[p] = true
		periods = append(periods, p)
	}

	doc.Find("div.oder_date a").Each(func(_ int, sel *goquery.Selection) {
		add(sel.AttrOr("href", ""))
	})
	doc.Find(`select[name="targetMonthCmb"] option`).Each(func(_ int, sel *goquery.Selection) {
		value := sel.AttrOr("value", "")
		if strings.HasPrefix(value, "20") {
			add(value)
		}
	})

	if len(periods) == 0 {
		return nil, &crawler.PageError{URL: url, Err: fmt.Errorf("no history periods found")}
	}
	models.SortPeriods(periods)
	return periods, nil
}

// CountOrders counts the order boxes on a month's history page.
func (c *Client) CountOrders(ctx context.Context, p models.Period) (int, error) {
	doc, err := c.fetchPage(ctx, historyMonthURL(c.cfg.BaseURL, p), true)
	if err != nil {
		return 0, err
	}
	return doc.Find(selOrderBox).Length(), nil
}

// ListOrders extracts a month's order summaries in listing order. An order
// whose status button carries no receive-order number is a cancelled order
// and gets a nil LinkNo.
func (c *Client) ListOrders(ctx context.Context, p models.Period) ([]models.OrderSummary, error) {
	url := historyMonthURL(c.cfg.BaseURL, p)
	doc, err := c.fetchPage(ctx, url, true)
	if err != nil {
		return nil, err
	}

	var orders []models.OrderSummary
	var parseErr error
	doc.Find(selOrderBox).EachWithBreak(func(i int, box *goquery.Selection) bool {
		order, err := parseOrderBox(box)
		if err != nil {
			parseErr = &crawler.PageError{URL: url, Err: fmt.Errorf("order box %d: %w", i, err)}
			return false
		}
		orders = append(orders, order)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return orders, nil
}

func parseOrderBox(box *goquery.Selection) (models.OrderSummary, error) {
	date, err := parseOrderDate(box.Find(selOrderGuide + " strong").First().Text())
	if err != nil {
		return models.OrderSummary{}, err
	}
	total, err := parsePrice(box.Find(selOrderGuide + " span.price").First().Text())
	if err != nil {
		return models.OrderSummary{}, err
	}
	no := strings.TrimSpace(box.Find("div.DeteilItem span.DeteilItem__Text").First().Text())
	if no == "" {
		return models.OrderSummary{}, fmt.Errorf("order number missing")
	}

	order := models.OrderSummary{No: no, Date: date, TotalPrice: total}
	if link, ok := box.Find("div.OrderStatusArea a.Button").First().Attr("data-ee-recv-order-no"); ok && link != "" {
		order.LinkNo = &link
	}
	return order, nil
}

// FetchOrderDetail pulls the line items of one order. Cancelled lines are
// skipped; every remaining line gets its category breadcrumb from the
// item's own page and, unless disabled, a thumbnail saved to the thumb
// directory.
func (c *Client) FetchOrderDetail(ctx context.Context, linkNo string) ([]models.ItemDetail, error) {
	url := orderDetailURL(c.cfg.BaseURL, linkNo)
	doc, err := c.fetchPage(ctx, url, false)
	if err != nil {
		return nil, err
	}

	rows := doc.Find(selDetailRows)
	if rows.Length() == 0 {
		return nil, &crawler.PageError{URL: url, Err: fmt.Errorf("order item table missing")}
	}

	cols := columnIndex(rows.First())
	for _, required := range []string{colName, colStatus, colQty, colPrice, colTax} {
		if _, ok := cols[required]; !ok {
			return nil, &crawler.PageError{URL: url, Err: fmt.Errorf("column %q missing", required)}
		}
	}

	var items []models.ItemDetail
	var parseErr error
	rows.Slice(1, rows.Length()).EachWithBreak(func(i int, row *goquery.Selection) bool {
		// trailing rows (totals, shipping) have a different shape
		if diff := row.ChildrenFiltered("td").Length() - len(cols); diff > 1 || diff < -1 {
			return false
		}
		item, cancelled, err := c.parseItemRow(ctx, row, cols)
		if err != nil {
			parseErr = &crawler.PageError{URL: url, Err: fmt.Errorf("item row %d: %w", i, err)}
			return false
		}
		if cancelled {
			slog.Info("cancelled item", slog.String("name", item.Name))
			return true
		}
		items = append(items, item)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return items, nil
}

func columnIndex(header *goquery.Selection) map[string]int {
	cols := make(map[string]int)
	header.Find("th").Each(func(i int, th *goquery.Selection) {
		cols[strings.TrimSpace(th.Text())] = i
	})
	return cols
}

func (c *Client) parseItemRow(ctx context.Context, row *goquery.Selection, cols map[string]int) (models.ItemDetail, bool, error) {
	cells := row.ChildrenFiltered("td")
	nameCell := cells.Eq(cols[colName])

	title := nameCell.Find("table.orderHistory_item a").First()
	name := strings.TrimSpace(title.Text())
	if name == "" {
		return models.ItemDetail{}, false, fmt.Errorf("item name missing")
	}

	if cells.Eq(cols[colStatus]).Find("strong.cancel").Length() > 0 {
		return models.ItemDetail{Name: name}, true, nil
	}

	productID := strings.SplitN(title.AttrOr("data-analytics-tag", ""), ",", 2)[0]
	if productID == "" {
		return models.ItemDetail{}, false, fmt.Errorf("product id missing for %s", name)
	}

	qty, err := parseQuantity(cells.Eq(cols[colQty]).Text())
	if err != nil {
		return models.ItemDetail{}, false, err
	}
	price, err := parsePrice(cells.Eq(cols[colPrice]).Text())
	if err != nil {
		return models.ItemDetail{}, false, err
	}
	taxRate, err := parseTaxRate(cells.Eq(cols[colTax]).Text())
	if err != nil {
		return models.ItemDetail{}, false, err
	}

	category, err := c.fetchCategory(ctx, title.AttrOr("href", ""))
	if err != nil {
		return models.ItemDetail{}, false, err
	}

	item := models.ItemDetail{
		Name:             name,
		Quantity:         qty,
		UnitPriceExclTax: price,
		TaxRatePercent:   taxRate,
		Category:         category,
		ProductID:        productID,
	}

	if !c.cfg.SkipThumbnails {
		if src, ok := nameCell.Find("td.productimage img").First().Attr("src"); ok {
			item.ThumbRef = c.saveThumbnail(ctx, productID, src)
		}
	}
	return item, false, nil
}

// fetchCategory reads the breadcrumb off the item's product page. The
// first crumb is the site root and carries no information.
func (c *Client) fetchCategory(ctx context.Context, itemURL string) ([]string, error) {
	if itemURL == "" {
		return nil, nil
	}
	doc, err := c.fetchPage(ctx, itemURL, true)
	if err != nil {
		return nil, err
	}

	var category []string
	doc.Find("ul.BreadCrumbs li").Each(func(_ int, sel *goquery.Selection) {
		category = append(category, strings.TrimSpace(sel.Text()))
	})
	if len(category) > 1 {
		category = category[1:]
	}
	return category, nil
}

// saveThumbnail downloads the product image into the thumb directory. A
// failed thumbnail never fails the crawl; the reference is simply left
// empty.
func (c *Client) saveThumbnail(ctx context.Context, productID, src string) string {
	if c.cfg.ThumbDir == "" {
		return ""
	}
	if err := os.MkdirAll(c.cfg.ThumbDir, 0o755); err != nil {
		slog.Warn("create thumb dir", slog.Any("error", err))
		return ""
	}

	resp, err := c.thumbs.R().SetContext(ctx).Get(src)
	if err != nil || resp.IsError() {
		slog.Warn("thumbnail download failed",
			slog.String("product_id", productID),
			slog.String("url", src),
			slog.Any("error", err),
		)
		return ""
	}

	name := productID + ".png"
	if err := os.WriteFile(filepath.Join(c.cfg.ThumbDir, name), resp.Body(), 0o644); err != nil {
		slog.Warn("thumbnail write failed", slog.String("product_id", productID), slog.Any("error", err))
		return ""
	}
	return name
}
