package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/utcc/social-mentions/internal/backend"
	"github.com/utcc/social-mentions/internal/config"
	"github.com/utcc/social-mentions/internal/models"
	"github.com/utcc/social-mentions/internal/monitoring"
	"github.com/utcc/social-mentions/internal/query"
	"github.com/utcc/social-mentions/internal/storage"
)

type options struct {
	faculty   string
	sentiment string
	from      string
	to        string
	search    string
	scope     string
	page      int
	pageSize  int
	out       string
	upload    bool
	digest    bool
	check     bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("mentions-export", flag.ContinueOnError)
	fs.StringVar(&o.faculty, "faculty", query.All, "faculty to keep, or all")
	fs.StringVar(&o.sentiment, "sentiment", query.All, "positive, neutral, negative or all")
	fs.StringVar(&o.from, "from", "", "first day to keep, YYYY-MM-DD")
	fs.StringVar(&o.to, "to", "", "last day to keep, YYYY-MM-DD")
	fs.StringVar(&o.search, "q", "", "case-insensitive text search")
	fs.StringVar(&o.scope, "scope", "all", "page or all")
	fs.IntVar(&o.page, "page", 1, "page to export with -scope page")
	fs.IntVar(&o.pageSize, "page-size", 0, "rows per page, PAGE_SIZE when 0")
	fs.StringVar(&o.out, "out", "", "output file, - for stdout, the download name when empty")
	fs.BoolVar(&o.upload, "upload", false, "also archive the export in storage")
	fs.BoolVar(&o.digest, "digest", false, "print the sentiment digest instead of exporting")
	fs.BoolVar(&o.check, "check", false, "check backend connectivity and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return o, nil
}

// criteria runs the flags through the same parser as the HTTP API
func (o options) criteria() (query.Criteria, error) {
	values := url.Values{}
	values.Set("faculty", o.faculty)
	values.Set("sentiment", o.sentiment)
	values.Set("from", o.from)
	values.Set("to", o.to)
	values.Set("q", o.search)
	return query.ParseCriteria(values)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logrus.SetLevel(logrus.WarnLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := backend.NewClient(backend.Config{
		BaseURL:   cfg.APIBase,
		Prefix:    cfg.APIPrefix,
		Timeout:   cfg.APITimeout,
		RateLimit: cfg.APIRateLimit,
	})

	if opts.check {
		if !runChecks(ctx, client) {
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, client, opts); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, client *backend.Client, opts options) error {
	criteria, err := opts.criteria()
	if err != nil {
		return err
	}
	scope, err := monitoring.ParseScope(opts.scope)
	if err != nil {
		return err
	}

	var archive storage.StorageInterface
	if opts.upload {
		if cfg.StorageAccount != "" {
			archive, err = storage.NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
		} else {
			archive, err = storage.NewLocalStorage(cfg.ExportDir)
		}
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
	}

	service := monitoring.NewService(cfg, client, client, archive, nil, nil)
	defer service.Close()

	if err := service.Reload(ctx); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "📥 Loaded %d mentions\n", service.Status().Count)

	if opts.digest {
		report, err := service.RunDigest(ctx)
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	}

	data, filename, err := service.Export(criteria, opts.page, opts.pageSize, scope)
	if err != nil {
		return err
	}

	out := opts.out
	if out == "" {
		out = filename
	}
	if out == "-" {
		os.Stdout.Write(data)
	} else {
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Fprintf(os.Stderr, "💾 Export saved to: %s\n", out)
	}

	if archive != nil {
		name, err := service.ArchiveExport(ctx, criteria, opts.page, opts.pageSize, scope)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "☁️  Archived as: %s\n", name)
	}
	return nil
}

// runChecks calls each read-only backend endpoint and reports the outcome
func runChecks(ctx context.Context, client *backend.Client) bool {
	fmt.Println("🔍 Social Mentions - Backend Connectivity Check")
	fmt.Println(strings.Repeat("-", 48))

	checks := []struct {
		name string
		run  func() (int, error)
	}{
		{"analysis", func() (int, error) {
			records, err := client.FetchAnalysisRecords(ctx, backend.Hints{})
			return len(records), err
		}},
		{"settings", func() (int, error) {
			_, err := client.GetSettings(ctx)
			return 1, err
		}},
		{"tweet-dates", func() (int, error) {
			dates, err := client.GetTweetDates(ctx)
			return len(dates), err
		}},
		{"sentiment-dictionary", func() (int, error) {
			entries, err := client.ListKeywords(ctx)
			return len(entries), err
		}},
	}

	ok := true
	for _, c := range checks {
		start := time.Now()
		n, err := c.run()
		if err != nil {
			ok = false
			fmt.Printf("❌ %-22s %v\n", c.name, err)
			continue
		}
		fmt.Printf("✅ %-22s %d items in %v\n", c.name, n, time.Since(start).Round(time.Millisecond))
	}
	return ok
}

func printReport(report *models.Report) {
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("📊 SOCIAL MENTIONS DIGEST")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("📅 Period: %s\n", report.Period)
	fmt.Printf("🕒 Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("📈 Total Mentions: %d\n", report.TotalMentions)

	fmt.Println("\n💭 Sentiment:")
	for _, b := range report.Distribution.Buckets() {
		fmt.Printf("   %-10s %d\n", b.Name+":", b.Value)
	}
	status := "below"
	if report.Exceeded {
		status = "🚨 at or above"
	}
	fmt.Printf("   Negative share %.1f%% is %s the %.1f%% threshold\n", report.NegativeShare, status, report.Threshold)

	if len(report.TopCategories) > 0 {
		fmt.Println("\n🏫 Top Faculties:")
		for i, c := range report.TopCategories {
			fmt.Printf("   %d. %s (%d)\n", i+1, c.Name, c.Count)
		}
	}

	if len(report.Negatives) > 0 {
		fmt.Println("\n📝 Latest Negative Mentions:")
		for i, m := range report.Negatives {
			fmt.Printf("   %d. [%s] %s\n", i+1, m.Category, m.Text)
			if m.URL != "" {
				fmt.Printf("      🔗 %s\n", m.URL)
			}
		}
	}
	fmt.Println(strings.Repeat("=", 70))
}
