// Diagnose fetches a single search-results page, saves the raw markup for
// manual inspection, and reports what the extractor managed to pull out of
// it. Useful when a harvest suddenly yields zero records and the question is
// "blocked, or layout change?".
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"carharvest-engine/internal/harvest"
	"carharvest-engine/internal/harvest/extract"
	"carharvest-engine/internal/harvest/fetch"
	"carharvest-engine/internal/harvest/pageurl"
	"carharvest-engine/internal/harvest/rates"
)

var rePriceUSD = regexp.MustCompile(`US\$\s*([\d,]+)`)

func main() {
	var (
		rawURL = flag.String("url", "", "search-results URL to diagnose")
		out    = flag.String("out", "debug_output.html", "where to save the fetched markup")
		origin = flag.String("origin", "https://www.tc-v.com", "origin for absolutizing listing links")
	)
	flag.Parse()

	if *rawURL == "" {
		fmt.Fprintln(os.Stderr, "usage: diagnose -url <search-results-url> [-out debug_output.html]")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	page1, err := pageurl.CleanBaseURL(*rawURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad url: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("--- diagnosing: %s ---\n", page1)

	f := fetch.New(fetch.Options{Concurrency: 1})
	res := f.Fetch(ctx, page1)
	switch res.Kind {
	case fetch.Success:
		fmt.Printf("fetched %d bytes\n", len(res.Body))
	case fetch.EndOfData:
		fmt.Println("got 404: wrong url, or the source dropped this listing path")
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "fetch failed: %v (likely network/firewall)\n", res.Err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, []byte(res.Body), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "save markup: %v\n", err)
	} else {
		fmt.Printf("saved raw markup to %s (open it to check for a CAPTCHA)\n", *out)
	}

	mark, model := harvest.TargetFromURL(*rawURL)
	records := extract.Extract(res.Body, rates.DefaultFallback, mark, model, *origin)
	fmt.Printf("extracted %d valid listings (mark=%s model=%s)\n", len(records), mark, model)

	if len(records) > 0 {
		r := records[0]
		fmt.Printf("example: price=%d year=%d mileage=%dkm engine=%dcc %s/%s grade=%q\n",
			r.Price, r.Year, r.Mileage, r.EngineCapacity, r.Transmission, r.Drive, r.Grade)
		return
	}

	// Zero records: figure out which half of the pipeline went dark.
	if strings.Contains(res.Body, "car-item") {
		fmt.Println("'car-item' class found: containers exist, so field extraction is dropping them")
	} else {
		fmt.Println("'car-item' class NOT found: the site layout may have changed")
	}
	prices := rePriceUSD.FindAllString(res.Body, -1)
	fmt.Printf("found %d US$ price strings in the raw markup\n", len(prices))
	switch {
	case len(prices) > 0:
		fmt.Println("conclusion: prices exist, but the year/price gate is filtering everything out")
	default:
		fmt.Println("conclusion: no prices at all; they may be 'ASK' or rendered by JavaScript")
	}
}
