// Command pedidos-report aggregates an order history file and prints the
// result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"pedidos/internal/core"
	applog "pedidos/internal/log"
	"pedidos/internal/services"
)

func main() {
	var (
		file   = flag.String("file", "", "order history export (.csv, .tsv or .xlsx)")
		years  = flag.String("years", "", `comma separated years, empty for all, "none" for none`)
		policy = flag.String("policy", core.DefaultStatusPolicy().String(), "status policy: all, keep:S1,S2 or drop:S1,S2")
		locale = flag.String("locale", core.LocalePtBR, "weekday label locale (pt-BR or en)")
		dedupe = flag.Bool("dedupe", false, "drop repeated order ids")
	)
	flag.Parse()

	// stdout carries the JSON result, so logs go to stderr.
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: applog.ComponentCLI,
		Output:    os.Stderr,
	})
	os.Exit(run(logger, *file, *years, *policy, *locale, *dedupe))
}

func run(logger *applog.Logger, file, years, policy, locale string, dedupe bool) int {
	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: pedidos-report -file history.csv [-years 2023,2024] [-policy keep:COMPLETED]")
		return 2
	}
	sel, err := parseYears(years)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	status, err := core.ParseStatusPolicy(policy)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	data, err := os.ReadFile(file)
	if err != nil {
		logger.Error("Failed to read file", applog.FieldError, err, applog.FieldFileName, file)
		return 1
	}

	cfg := services.DefaultReportConfig()
	cfg.Status = status
	cfg.Locale = locale
	cfg.DedupeByOrderID = dedupe
	svc := services.NewReportService(cfg, nil, nil, logger)

	rep, err := svc.Generate(context.Background(), services.Upload{Name: file, Data: data}, sel)
	if err != nil {
		var malformed *core.MalformedInputError
		if errors.As(err, &malformed) {
			fmt.Fprintln(os.Stderr, malformed)
			return 2
		}
		logger.Error("Report failed", applog.FieldError, err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep.Result); err != nil {
		logger.Error("Failed to write result", applog.FieldError, err)
		return 1
	}
	return 0
}

func parseYears(s string) (services.Selection, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return services.AllYears(), nil
	case strings.EqualFold(s, "none"):
		return services.OnlyYears(), nil
	}
	var ys []int
	for _, part := range strings.Split(s, ",") {
		y, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return services.Selection{}, fmt.Errorf("invalid year %q", part)
		}
		ys = append(ys, y)
	}
	return services.OnlyYears(ys...), nil
}
