// Seed tool for Kestrel: populates the store with users, reviews, and
// transactions so local runs have history behind the velocity and
// statistics features.
//
// Events are scored through the real pipeline before persisting, so the
// seeded rows carry plausible decision records.
//
// Usage:
//
//	go run cmd/seed/main.go -users 50 -reviews 300 -transactions 500
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/ecomtrust/kestrel/internal/domain"
	"github.com/ecomtrust/kestrel/internal/features"
	"github.com/ecomtrust/kestrel/internal/model"
	"github.com/ecomtrust/kestrel/internal/repository"
	"github.com/ecomtrust/kestrel/internal/rules"
	"github.com/ecomtrust/kestrel/internal/scoring"
)

var reviewTexts = []string{
	"Works exactly as described, no complaints after a month of use.",
	"Decent quality for the price, shipping took a while though.",
	"AMAZING!!!",
	"Broke after two days. Very disappointed with the build quality.",
	"Five stars! Best purchase this year, highly recommend to everyone.",
	"ok",
	"The instructions were confusing but the product itself is solid.",
	"Not what I expected from the photos, returning it.",
	"Great value. Bought a second one for my parents.",
	"BUY NOW best deal ever www.deals.example.com",
}

var channels = []string{"web", "web", "web", "mobile", "atm"}

func main() {
	userCount := flag.Int("users", 50, "Number of users to create")
	reviewCount := flag.Int("reviews", 300, "Number of reviews to seed")
	txCount := flag.Int("transactions", 500, "Number of transactions to seed")
	seed := flag.Int64("seed", 42, "RNG seed for reproducible data")
	flag.Parse()

	cfg, err := domain.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open repository: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	svc := scoring.New(
		features.NewReviewAggregator(repo.Reviews()),
		features.NewTransactionAggregator(repo.Transactions()),
		rules.ReviewRules(rules.DefaultReviewLimits()),
		rules.TransactionRules(rules.DefaultTransactionLimits()),
		nil,
		model.StaticScorer(0), model.StaticScorer(0),
		scoring.Thresholds{
			Review:      cfg.Scoring.ReviewThreshold,
			Transaction: cfg.Scoring.TransactionThreshold,
		},
	)

	rng := rand.New(rand.NewSource(*seed))
	ctx := context.Background()
	now := time.Now().UTC()

	fmt.Printf("Seeding %s (%d users, %d reviews, %d transactions)...\n",
		cfg.Repository.Driver, *userCount, *reviewCount, *txCount)

	// Users with account ages from brand new to three years old.
	userIDs := make([]int64, 0, *userCount)
	for i := 0; i < *userCount; i++ {
		ageDays := rng.Intn(3 * 365)
		createdAt := now.Add(-time.Duration(ageDays) * 24 * time.Hour)
		email := fmt.Sprintf("user%03d@seed.example.com", i+1)

		id, err := repo.CreateUser(ctx, email, createdAt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create user %s: %v\n", email, err)
			os.Exit(1)
		}
		userIDs = append(userIDs, id)
	}
	fmt.Printf("✓ %d users\n", len(userIDs))

	flagged := 0
	for i := 0; i < *reviewCount; i++ {
		ev := &domain.ReviewEvent{
			UserID:            userIDs[rng.Intn(len(userIDs))],
			ProductID:         fmt.Sprintf("prod-%03d", rng.Intn(40)+1),
			ReviewText:        reviewTexts[rng.Intn(len(reviewTexts))],
			Rating:            float64(rng.Intn(5) + 1),
			IPAddress:         fmt.Sprintf("203.0.113.%d", rng.Intn(200)+1),
			DeviceFingerprint: fmt.Sprintf("dev-%04d", rng.Intn(120)),
			CreatedAt:         now.Add(-time.Duration(rng.Intn(30*24)) * time.Hour),
		}

		d, _, err := svc.ScoreReview(ctx, ev)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to score review: %v\n", err)
			os.Exit(1)
		}
		if _, err := repo.SaveReview(ctx, ev, d); err != nil {
			fmt.Fprintf(os.Stderr, "failed to save review: %v\n", err)
			os.Exit(1)
		}
		if d.Decision {
			flagged++
		}
	}
	fmt.Printf("✓ %d reviews (%d flagged)\n", *reviewCount, flagged)

	flagged = 0
	for i := 0; i < *txCount; i++ {
		// Mostly everyday amounts with an occasional large outlier.
		amount := 10 + rng.Float64()*490
		if rng.Intn(20) == 0 {
			amount = 15000 + rng.Float64()*60000
		}

		ev := &domain.TransactionEvent{
			UserID:            userIDs[rng.Intn(len(userIDs))],
			Amount:            float64(int(amount*100)) / 100,
			Currency:          "USD",
			Channel:           channels[rng.Intn(len(channels))],
			IPAddress:         fmt.Sprintf("198.51.100.%d", rng.Intn(200)+1),
			DeviceFingerprint: fmt.Sprintf("dev-%04d", rng.Intn(120)),
			CountryMismatch:   rng.Intn(25) == 0,
			CreatedAt:         now.Add(-time.Duration(rng.Intn(30*24)) * time.Hour),
		}

		d, _, err := svc.ScoreTransaction(ctx, ev)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to score transaction: %v\n", err)
			os.Exit(1)
		}
		if _, err := repo.SaveTransaction(ctx, ev, d); err != nil {
			fmt.Fprintf(os.Stderr, "failed to save transaction: %v\n", err)
			os.Exit(1)
		}
		if d.Decision {
			flagged++
		}
	}
	fmt.Printf("✓ %d transactions (%d flagged)\n", *txCount, flagged)

	fmt.Println("\nDone. Start the server with: go run cmd/kestrel/main.go")
}
