// Command storectl seeds the configured store and prints sales reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/fairyhunter13/storefront-api/internal/auth"
	"github.com/fairyhunter13/storefront-api/internal/config"
	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/order"
	"github.com/fairyhunter13/storefront-api/internal/seed"
	"github.com/fairyhunter13/storefront-api/internal/store"
	"github.com/fairyhunter13/storefront-api/internal/store/backend"
)

// reportAdmin is the identity storectl reads analytics as.
var reportAdmin = &model.Principal{ID: "storectl", Name: "storectl", IsAdmin: true}

func main() {
	var (
		seedFile = flag.String("seed", "", "YAML catalog to load into the store")
		report   = flag.Bool("report", false, "print sales analytics and low-stock products")
		timeout  = flag.Duration("timeout", time.Minute, "overall deadline")
	)
	flag.Parse()
	if *seedFile == "" && !*report {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	st, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close(context.Background())

	if *seedFile != "" {
		res, err := seed.LoadFile(ctx, *seedFile, st, auth.NewHasher(cfg.BcryptCost, cfg.HashConcurrency))
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		log.Printf("seeded %d categories, %d products, %d admins", res.Categories, res.Products, res.Admins)
	}
	if *report {
		if err := printReport(ctx, st); err != nil {
			log.Fatalf("report: %v", err)
		}
	}
}

func printReport(ctx context.Context, st store.Store) error {
	a, err := order.NewService(st, order.Options{}).Analytics(ctx, reportAdmin)
	if err != nil {
		return err
	}

	summary := tablewriter.NewWriter(os.Stdout)
	summary.Header("Metric", "Value")
	rows := [][]string{
		{"Total revenue", a.TotalRevenue.StringFixed(2)},
		{"Total profit", a.TotalProfit.StringFixed(2)},
		{"Revenue this month", a.MonthlyRevenue.StringFixed(2)},
		{"Profit margin", strconv.FormatFloat(a.ProfitMargin, 'f', 2, 64) + "%"},
		{"Orders", strconv.Itoa(a.TotalOrders)},
		{"Low stock products", strconv.Itoa(a.LowStockProducts)},
		{"Out of stock products", strconv.Itoa(a.OutOfStockProducts)},
	}
	for _, s := range model.OrderStatuses {
		rows = append(rows, []string{"Orders " + string(s), strconv.Itoa(a.OrdersByStatus[s])})
	}
	if err := summary.Bulk(rows); err != nil {
		return err
	}
	if err := summary.Render(); err != nil {
		return err
	}

	products, err := st.ListProducts(ctx)
	if err != nil {
		return err
	}
	var low []model.Product
	for _, p := range products {
		if p.Quantity < order.LowStockThreshold {
			low = append(low, p)
		}
	}
	if len(low) == 0 {
		fmt.Println("No low-stock products.")
		return nil
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].Quantity < low[j].Quantity })

	stock := tablewriter.NewWriter(os.Stdout)
	stock.Header("Product", "Quantity", "Price")
	for _, p := range low {
		if err := stock.Append(p.Name, strconv.Itoa(p.Quantity), p.Price.StringFixed(2)); err != nil {
			return err
		}
	}
	return stock.Render()
}
