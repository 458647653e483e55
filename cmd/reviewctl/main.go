// Command reviewctl browses a ReviewHub server from the terminal and answers
// questions about a product's reviews locally.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/utafrali/reviewhub/internal/client/reviewapi"
	"github.com/utafrali/reviewhub/internal/domain"
	"github.com/utafrali/reviewhub/internal/insight"
	"github.com/utafrali/reviewhub/pkg/logger"
)

const usage = `usage: reviewctl [flags] <command> [args]

commands:
  products [-category C] [-search S] [-sort ORDER] [-page N]
  reviews <product> [-page N]
  stats <product>
  ask <product> <question...>
  review <product> -rating N -comment TEXT [-name NAME]
  helpful <review-id>

<product> is a product id or slug.
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "reviewctl: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("reviewctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	apiURL := fs.String("api", envOr("REVIEWHUB_API_URL", "http://localhost:8080"), "ReviewHub base URL")
	timeout := fs.Duration("timeout", 30*time.Second, "overall request timeout")
	logLevel := fs.String("log-level", "warn", "client log level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	c := reviewapi.New(*apiURL, logger.NewWithWriter("reviewctl", *logLevel, stderr))
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	switch cmd {
	case "products":
		return listProducts(ctx, c, rest, stdout, stderr)
	case "reviews":
		return listReviews(ctx, c, rest, stdout, stderr)
	case "stats":
		return showStats(ctx, c, rest, stdout)
	case "ask":
		return ask(ctx, c, rest, stdout)
	case "review":
		return postReview(ctx, c, rest, stdout, stderr)
	case "helpful":
		return markHelpful(ctx, c, rest, stdout)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// parseWithProduct parses flags that may appear before or after the leading
// product argument.
func parseWithProduct(fs *flag.FlagSet, args []string) (string, error) {
	var product string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		product, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if product == "" && fs.NArg() > 0 {
		product = fs.Arg(0)
	}
	if product == "" {
		return "", errors.New("product id or slug is required")
	}
	return product, nil
}

func listProducts(ctx context.Context, c *reviewapi.Client, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var q reviewapi.ProductQuery
	fs.StringVar(&q.Category, "category", "", "category filter")
	fs.StringVar(&q.Search, "search", "", "search text")
	fs.StringVar(&q.SortBy, "sort", "", "sort order: "+strings.Join(domain.ValidSortOrders(), ", "))
	fs.IntVar(&q.Page, "page", 1, "page number")
	fs.IntVar(&q.PerPage, "per-page", 20, "products per page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := c.GetProducts(ctx, q)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCATEGORY\tPRICE\tRATING\tREVIEWS\tSLUG")
	for _, p := range res.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			p.Name, p.Category, formatPrice(p.Price, p.Currency), formatRating(p.AverageRating), p.ReviewCount, p.Slug)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\npage %d of %d (%d products)\n", res.Page, max(res.TotalPages, 1), res.TotalCount)
	return nil
}

func listReviews(ctx context.Context, c *reviewapi.Client, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("reviews", flag.ContinueOnError)
	fs.SetOutput(stderr)
	page := fs.Int("page", 1, "page number")
	perPage := fs.Int("per-page", 10, "reviews per page")
	product, err := parseWithProduct(fs, args)
	if err != nil {
		return err
	}

	detail, err := c.GetProduct(ctx, product, 1)
	if err != nil {
		return err
	}
	res, err := c.GetReviews(ctx, detail.Product.ID, *page, *perPage)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s (%d reviews)\n\n", detail.Product.Name, res.TotalCount)
	if len(res.Items) == 0 {
		fmt.Fprintln(stdout, "No reviews yet. Be the first to review this product!")
		return nil
	}
	for _, r := range res.Items {
		fmt.Fprintf(stdout, "%s  %s  %s  (%d found helpful)\n  %s\n  id: %s\n\n",
			stars(r.Rating), r.DisplayName(), formatDate(r.CreatedAt), r.HelpfulCount, r.Comment, r.ID)
	}
	if res.HasNext {
		fmt.Fprintf(stdout, "more: reviewctl reviews %s -page %d\n", product, res.Page+1)
	}
	return nil
}

func showStats(ctx context.Context, c *reviewapi.Client, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: reviewctl stats <product>")
	}
	detail, err := c.GetProduct(ctx, args[0], 1)
	if err != nil {
		return err
	}
	stats, err := c.ReviewStats(ctx, detail.Product.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s\n", detail.Product.Name)
	fmt.Fprintf(stdout, "Average: %s / 5 from %d reviews\n", formatRating(stats.AverageRating), stats.TotalReviews)
	fmt.Fprintf(stdout, "Sentiment: %s (%d%% positive)\n\n", stats.Sentiment, stats.PositivePercent)
	for _, b := range stats.Histogram {
		fmt.Fprintf(stdout, "%d★ %-20s %3d%% (%d)\n", b.Stars, strings.Repeat("█", b.Percentage/5), b.Percentage, b.Count)
	}
	return nil
}

// ask answers on this machine over every review of the product, so the
// server's assistant is not involved.
func ask(ctx context.Context, c *reviewapi.Client, args []string, stdout io.Writer) error {
	if len(args) < 2 {
		return errors.New("usage: reviewctl ask <product> <question...>")
	}
	question := strings.TrimSpace(strings.Join(args[1:], " "))
	if question == "" {
		return errors.New("question is required")
	}

	detail, err := c.GetProduct(ctx, args[0], 1)
	if err != nil {
		return err
	}
	reviews, err := c.AllReviews(ctx, detail.Product.ID)
	if err != nil {
		return err
	}

	answer := insight.Analyze(question, reviews, detail.Product.Name)
	fmt.Fprintln(stdout, answer.Text)
	return nil
}

func postReview(ctx context.Context, c *reviewapi.Client, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("review", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var in reviewapi.ReviewInput
	fs.StringVar(&in.ReviewerName, "name", "", "reviewer name (blank posts anonymously)")
	fs.Float64Var(&in.Rating, "rating", 0, "rating from 1 to 5")
	fs.StringVar(&in.Comment, "comment", "", "review text, at least 10 characters")
	product, err := parseWithProduct(fs, args)
	if err != nil {
		return err
	}

	detail, err := c.GetProduct(ctx, product, 1)
	if err != nil {
		return err
	}
	r, err := c.PostReview(ctx, detail.Product.ID, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Thanks, %s! Review %s posted for %s.\n", r.DisplayName(), r.ID, detail.Product.Name)
	return nil
}

func markHelpful(ctx context.Context, c *reviewapi.Client, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: reviewctl helpful <review-id>")
	}
	r, err := c.MarkReviewHelpful(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d people found this review helpful.\n", r.HelpfulCount)
	return nil
}

func formatPrice(minor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, currency)
}

func formatRating(r float64) string {
	return strconv.FormatFloat(domain.RoundRating(r), 'f', 1, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("1/2/2006")
}

func stars(rating float64) string {
	full := min(max(int(math.Round(rating)), 0), 5)
	return strings.Repeat("★", full) + strings.Repeat("☆", 5-full)
}
