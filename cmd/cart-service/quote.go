package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/pricing"
)

type quoteLine struct {
	name     string
	quantity int
}

func newQuoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "quote name[:qty] ...",
		Short: "Price a basket against the catalogue and print the totals",
		Example: `  cart-service quote cornflakes:2 weetabix
  cart-service quote --config prod.yaml cheerios:3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := parseLines(args)
			if err != nil {
				return err
			}

			rate, err := a.cfg.TaxRate()
			if err != nil {
				return err
			}
			svc, err := cart.NewService(rate, a.logger)
			if err != nil {
				return err
			}

			hc := &http.Client{Timeout: a.cfg.PricingTimeout()}
			client, err := pricing.NewClient(hc, a.cfg.Cart.Pricing.BaseURL, a.logger)
			if err != nil {
				return err
			}

			return runQuote(cmd.Context(), cmd.OutOrStdout(), client, svc, lines)
		},
	}
}

// parseLines reads "name:qty" arguments; a bare name means quantity 1.
func parseLines(args []string) ([]quoteLine, error) {
	lines := make([]quoteLine, 0, len(args))
	for _, arg := range args {
		name, qty, found := strings.Cut(arg, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid item %q: product name is empty", arg)
		}
		l := quoteLine{name: name, quantity: 1}
		if found {
			n, err := strconv.Atoi(strings.TrimSpace(qty))
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid item %q: quantity must be a positive integer", arg)
			}
			l.quantity = n
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func runQuote(ctx context.Context, out io.Writer, f pricing.Fetcher, svc *cart.Service, lines []quoteLine) error {
	names := make([]string, len(lines))
	for i, l := range lines {
		names[i] = l.name
	}

	products, err := pricing.FetchAll(ctx, f, names...)
	if err != nil {
		return err
	}

	c := cart.NewCart("", "")
	for i, p := range products {
		item, err := cart.NewItem(p, lines[i].quantity)
		if err != nil {
			return err
		}
		if c, err = svc.AddItem(c, item); err != nil {
			return err
		}
	}

	totals, err := svc.Totals(c)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tQTY\tPRICE\tLINE TOTAL")
	for _, it := range c.Items() {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", it.Product.Name, it.Quantity, it.Product.Price, svc.LineTotal(it))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Subtotal = %s\n", totals.Subtotal.StringFixed(2))
	fmt.Fprintf(out, "Tax = %s\n", totals.Tax.StringFixed(2))
	fmt.Fprintf(out, "Total = %s\n", totals.Total.StringFixed(2))
	return nil
}
