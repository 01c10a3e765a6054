package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/vitos/crypto_signal_bot/internal/infrastructure/storage"
)

// analyzer summarizes recorded signal history from the bot database: per
// market, how often the fuser fired each direction and how confident it was.
func main() {
	dbPath := flag.String("db", "bot.db", "path to the bot sqlite database")
	market := flag.String("market", "", "restrict to a single market (e.g. KRW-BTC)")
	limit := flag.Int("limit", 1000, "signals to read per market, newest first")
	flag.Parse()

	store, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		fmt.Printf("Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	markets := []string{*market}
	if *market == "" {
		markets, err = store.Markets(ctx)
		if err != nil {
			fmt.Printf("Error listing markets: %v\n", err)
			os.Exit(1)
		}
	}
	if len(markets) == 0 {
		fmt.Println("No recorded signals.")
		return
	}

	type summary struct {
		Market        string
		Total         int
		Buys          int
		Sells         int
		Holds         int
		AvgConfidence float64
		AvgSum        float64
	}

	var results []summary
	for _, m := range markets {
		records, err := store.ListSignals(ctx, m, *limit)
		if err != nil {
			fmt.Printf("Error reading signals for %s: %v\n", m, err)
			continue
		}
		if len(records) == 0 {
			continue
		}

		s := summary{Market: m, Total: len(records)}
		for _, r := range records {
			switch {
			case r.Signal > 0:
				s.Buys++
			case r.Signal < 0:
				s.Sells++
			default:
				s.Holds++
			}
			s.AvgConfidence += r.Confidence
			s.AvgSum += r.WeightedSum
		}
		s.AvgConfidence /= float64(s.Total)
		s.AvgSum /= float64(s.Total)
		results = append(results, s)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Total > results[j].Total
	})

	fmt.Printf("%-12s | %-7s | %-5s | %-5s | %-5s | %-10s | %s\n",
		"Market", "Signals", "Buy", "Sell", "Hold", "Avg Conf", "Avg Sum")
	fmt.Println("--------------------------------------------------------------------")
	for _, s := range results {
		fmt.Printf("%-12s | %-7d | %-5d | %-5d | %-5d | %-10.3f | %+.3f\n",
			s.Market, s.Total, s.Buys, s.Sells, s.Holds, s.AvgConfidence, s.AvgSum)
	}
}
