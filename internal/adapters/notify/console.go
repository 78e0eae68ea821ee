package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/flipscan/internal/domain"
)

// Console implements ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
	now   func() time.Time
}

// NewConsole builds a notifier that writes to stdout. With table false it
// prints one summary line per report.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table, now: time.Now}
}

// NewConsoleWriter builds a notifier for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table, now: time.Now}
}

// Notify prints every report in the configured mode.
func (c *Console) Notify(_ context.Context, reports []domain.Report) error {
	if len(reports) == 0 {
		fmt.Fprintf(c.out, "[%s] nothing to report\n", c.now().Format("15:04:05"))
		return nil
	}

	for _, r := range reports {
		if c.table {
			c.printFull(r)
		} else {
			c.printCompact(r)
		}
	}
	return nil
}

// printCompact prints one line: market, best prices, and the top pair.
func (c *Console) printCompact(r domain.Report) {
	res := r.Result
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s bid:%s ask:%s adv:%s %s recs:%d",
		c.now().Format("15:04:05"), r.Key,
		quote(res.Book.BestBuyPrice, "no bid"),
		quote(res.Book.BestSellPrice, "no ask"),
		isk(res.Market.AverageDailyVolume, 0),
		res.Market.Feasibility,
		len(res.Recommendations),
	)
	if len(res.Recommendations) > 0 {
		top := res.Recommendations[0]
		fmt.Fprintf(&sb, " | top %s→%s %s%% x%d = %s",
			isk(top.BuyPrice, 2), isk(top.SellPrice, 2),
			isk(top.NetMarginPercent, 2), top.ExecutableVolume,
			isk(top.PotentialProfit, 2))
	}
	if r.Advisory != nil {
		fmt.Fprintf(&sb, " | advisory %d/100", r.Advisory.Score)
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull prints the statistics block, the recommendation table and the
// advisory.
func (c *Console) printFull(r domain.Report) {
	res := r.Result
	fmt.Fprintf(c.out, "\n[%s] %s  run %s\n", r.FetchedAt.Format("2006-01-02 15:04:05"), r.Key, r.RunID)
	fmt.Fprintf(c.out, "  %s\n", res.Parameters)

	c.printStatistics(res)
	c.printTable(res.Recommendations)
	c.printAdvisory(r.Advisory)
}

func (c *Console) printStatistics(res domain.AnalysisResult) {
	m, b := res.Market, res.Book

	fmt.Fprintf(c.out, "  history: %d days, %s units, avg %s/day, feasibility %s",
		m.Days, isk(float64(m.TotalVolume), 0), isk(m.AverageDailyVolume, 0), m.Feasibility)
	if m.EstimatedExecutionDays != nil {
		fmt.Fprintf(c.out, ", target in %s days", isk(*m.EstimatedExecutionDays, 1))
	}
	fmt.Fprintln(c.out)

	fmt.Fprintf(c.out, "  price: mean %s, range %s–%s, volatility %s%%\n",
		isk(m.MeanPrice, 2), isk(m.PriceLow, 2), isk(m.PriceHigh, 2), isk(m.Volatility, 2))

	fmt.Fprintf(c.out, "  book: %d buys (%s units) / %d sells (%s units), best bid %s, best ask %s, spread %s, instant margin %s\n",
		b.BuyOrders, isk(float64(b.BuyVolume), 0), b.SellOrders, isk(float64(b.SellVolume), 0),
		quote(b.BestBuyPrice, "no bid"), quote(b.BestSellPrice, "no ask"),
		quote(b.Spread, "n/a"), percent(b.InstantMarginPercent))

	fmt.Fprintf(c.out, "  walls: buy %s, sell %s\n", wall(b.BuyWall), wall(b.SellWall))
}

func (c *Console) printTable(recs []domain.Recommendation) {
	if len(recs) == 0 {
		fmt.Fprintln(c.out, "  no pair clears the minimum margin")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Acquire from", "Buy @", "Dispose into", "Sell @", "Margin", "Profit/u", "Volume", "Potential")
	for i, rec := range recs {
		table.Append(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", rec.SellOrderID),
			isk(rec.BuyPrice, 2),
			fmt.Sprintf("%d", rec.BuyOrderID),
			isk(rec.SellPrice, 2),
			isk(rec.NetMarginPercent, 2)+"%",
			isk(rec.ProfitPerUnit, 2),
			isk(float64(rec.ExecutableVolume), 0),
			isk(rec.PotentialProfit, 2),
		)
	}
	table.Render()
}

func (c *Console) printAdvisory(a *domain.Advisory) {
	if a == nil {
		return
	}
	fmt.Fprintf(c.out, "  advisory: %d/100", a.Score)
	if a.Summary != "" {
		fmt.Fprintf(c.out, " %s", a.Summary)
	}
	fmt.Fprintln(c.out)
	for _, w := range a.Warnings {
		fmt.Fprintf(c.out, "   ! %s\n", w)
	}
}

// --- formatting helpers ---

// isk formats v with the given decimals and thousands separators.
func isk(v float64, places int32) string {
	s := decimal.NewFromFloat(v).StringFixed(places)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var sb strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	if hasFrac {
		return sign + sb.String() + "." + frac
	}
	return sign + sb.String()
}

func quote(q domain.Quote, absent string) string {
	v, ok := q.Value()
	if !ok {
		return absent
	}
	return isk(v, 2)
}

func percent(q domain.Quote) string {
	v, ok := q.Value()
	if !ok {
		return "n/a"
	}
	return isk(v, 2) + "%"
}

func wall(w *domain.Wall) string {
	if w == nil {
		return "none"
	}
	return fmt.Sprintf("order %d @ %s (depth %d, %s units)",
		w.OrderID, isk(w.Price, 2), w.Index+1, isk(float64(w.CumulativeVolume), 0))
}
