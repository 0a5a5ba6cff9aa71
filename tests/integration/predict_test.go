//go:build integration
// +build integration

// Package integration provides end-to-end tests for the Kestrel decision engine.
//
// These tests verify the COMPLETE scoring pipeline against a running instance:
//
//	Event → Feature Aggregation → Model + Rules (parallel) → Fusion → Decision
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// UNDERSTANDING THE DOMAIN:
//
// 1. EVENT: A product review or a payment transaction submitted for scoring.
//
// 2. FEATURES: Derived from the event text/amount plus the subject's stored
//    history (velocity windows, amount statistics, device churn, ...).
//
// 3. RULES: Deterministic checks over the feature vector. Each firing rule
//    adds a fixed boost and a human-readable reason. Key built-in
//    transaction rules:
//
//    | Rule              | Triggers When                  | Boost |
//    |-------------------|--------------------------------|-------|
//    | high-value        | amount > 50000                 | 0.25  |
//    | elevated-value    | 20000 < amount <= 50000        | 0.10  |
//    | new-account-large | age < 30 days, amount > 15000  | 0.18  |
//    | geo-mismatch      | countryMismatch flag set       | 0.15  |
//
// 4. DECISION: final = clamp(model + rules, 0, 1); flagged when final
//    reaches the class threshold (0.65 reviews, 0.50 transactions).
//
// PREREQUISITES: a Kestrel instance with an empty or disposable database.
// Unknown users score as brand-new accounts, which these scenarios rely on.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"testing"
	"time"
)

type TestConfig struct {
	BaseURL string
	APIKey  string
}

func getTestConfig() TestConfig {
	baseURL := os.Getenv("KESTREL_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	apiKey := os.Getenv("KESTREL_TEST_API_KEY")
	if apiKey == "" {
		apiKey = "devtoken"
	}
	return TestConfig{BaseURL: baseURL, APIKey: apiKey}
}

// ============================================================================
// API Request/Response Types (matching Kestrel's API contract)
// ============================================================================

// ReviewRequest is the body for POST /predict/review
type ReviewRequest struct {
	UserID     int64   `json:"userId"`
	ProductID  string  `json:"productId,omitempty"`
	ReviewText string  `json:"reviewText"`
	Rating     float64 `json:"rating"`
	IPAddress  string  `json:"ipAddress,omitempty"`
}

// TransactionRequest is the body for POST /predict/transaction
type TransactionRequest struct {
	UserID          int64   `json:"userId"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Channel         string  `json:"channel,omitempty"`
	CountryMismatch bool    `json:"countryMismatch,omitempty"`
}

// Decision is the scoring verdict inside every predict response
type Decision struct {
	Decision          bool     `json:"decision"`
	Confidence        string   `json:"confidence"` // "high", "medium", "low"
	ScoreModel        float64  `json:"score_model"`
	ScoreRules        float64  `json:"score_rules"`
	ScoreFinal        float64  `json:"score_final"`
	Threshold         float64  `json:"threshold"`
	Reasons           []string `json:"reasons"`
	ModelContribution float64  `json:"model_contribution"`
	RulesContribution float64  `json:"rules_contribution"`
}

// PredictResponse is what the predict endpoints return
type PredictResponse struct {
	ID     int64    `json:"id"`
	Result Decision `json:"result"`
}

// ============================================================================
// Test Helper Functions
// ============================================================================

func predict(t *testing.T, config TestConfig, path string, reqBody any) (PredictResponse, int) {
	t.Helper()

	body, err := json.Marshal(reqBody)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	httpReq, err := http.NewRequest("POST", config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", config.APIKey)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}

	var result PredictResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(respBody, &result); err != nil {
			t.Fatalf("Failed to unmarshal response: %v (body: %s)", err, string(respBody))
		}
	}
	return result, resp.StatusCode
}

func mustPredict(t *testing.T, config TestConfig, path string, reqBody any) PredictResponse {
	t.Helper()
	result, status := predict(t, config, path, reqBody)
	if status != http.StatusOK {
		t.Fatalf("Expected status 200 on %s, got %d", path, status)
	}
	return result
}

// uniqueUserID spreads scenarios over distinct users so one scenario's
// history does not bleed into another's velocity windows.
func uniqueUserID() int64 {
	return time.Now().UnixNano()%1_000_000_000 + 1
}

// ============================================================================
// SCENARIO 1: Benign Review (No Flag)
// ============================================================================

func TestBenignReview_NotFlagged(t *testing.T) {
	/*
	   SCENARIO: A normal 4-star review with real sentences

	   EXPECTED BEHAVIOR:
	   - No text rules fire (normal length, normal casing, no URL)
	   - No velocity rules fire (fresh user, single review)
	   - Zero model (rules-only deployment) → final ≈ 0 → not flagged
	*/
	config := getTestConfig()

	result := mustPredict(t, config, "/predict/review", ReviewRequest{
		UserID:     uniqueUserID(),
		ProductID:  "prod-kettle-01",
		ReviewText: "The kettle heats quickly and the handle stays cool. Happy with it after two weeks of daily use.",
		Rating:     4,
	})

	if result.Result.Decision {
		t.Errorf("Expected benign review not flagged, got %+v", result.Result)
	}
	if result.Result.ScoreRules > 0 {
		t.Errorf("Expected no rule boost, got %.4f (reasons: %v)", result.Result.ScoreRules, result.Result.Reasons)
	}
	if result.ID <= 0 {
		t.Errorf("Expected persisted ID, got %d", result.ID)
	}

	t.Logf("✓ Benign review passed: score=%.4f, confidence=%s", result.Result.ScoreFinal, result.Result.Confidence)
}

// ============================================================================
// SCENARIO 2: Spam-Shaped Review (Rules Accumulate)
// ============================================================================

func TestSpamReview_RulesAccumulate(t *testing.T) {
	/*
	   SCENARIO: "AMAZING!" - five stars, eight characters, all shouting

	   EXPECTED BEHAVIOR:
	   - shouting: upper ratio > 0.4 → +0.05
	   - short-text: length < 10 → +0.10
	   - extreme-rating-thin-text: 5 stars with < 20 chars → +0.10
	   - Total 0.25, below the 0.65 review threshold → suspicious but not flagged
	*/
	config := getTestConfig()

	result := mustPredict(t, config, "/predict/review", ReviewRequest{
		UserID:     uniqueUserID(),
		ReviewText: "AMAZING!",
		Rating:     5,
	})

	if math.Abs(result.Result.ScoreRules-0.25) > 1e-6 {
		t.Errorf("Expected rule boost 0.25, got %.4f (reasons: %v)", result.Result.ScoreRules, result.Result.Reasons)
	}
	if result.Result.Decision {
		t.Error("Expected 0.25 to stay below the review threshold")
	}
	if len(result.Result.Reasons) != 3 {
		t.Errorf("Expected 3 reasons, got %v", result.Result.Reasons)
	}

	t.Logf("✓ Spam review scored: score=%.4f, reasons=%v", result.Result.ScoreFinal, result.Result.Reasons)
}

// ============================================================================
// SCENARIO 3: High-Value Transaction From a New Account
// ============================================================================

func TestHighValueTransaction_NewAccount(t *testing.T) {
	/*
	   SCENARIO: An unknown user moves $60,000

	   EXPECTED BEHAVIOR:
	   - high-value: 60000 > 50000 → +0.25
	   - new-account-large: unknown user (age 0) moving > 15000 → +0.18
	   - Total 0.43, just below the 0.50 transaction threshold → not flagged
	     but clearly elevated (may also gain +0.08 during 22:00-06:00 UTC)
	*/
	config := getTestConfig()

	result := mustPredict(t, config, "/predict/transaction", TransactionRequest{
		UserID:   uniqueUserID(),
		Amount:   60000,
		Currency: "USD",
		Channel:  "web",
	})

	if result.Result.ScoreRules < 0.43-1e-6 {
		t.Errorf("Expected rule boost >= 0.43, got %.4f (reasons: %v)", result.Result.ScoreRules, result.Result.Reasons)
	}
	if len(result.Result.Reasons) < 2 {
		t.Errorf("Expected at least 2 reasons, got %v", result.Result.Reasons)
	}

	t.Logf("✓ High-value transaction scored: score=%.4f, flagged=%v", result.Result.ScoreFinal, result.Result.Decision)
}

// ============================================================================
// SCENARIO 4: Compound Risk Crosses the Threshold
// ============================================================================

func TestCompoundRisk_Flagged(t *testing.T) {
	/*
	   SCENARIO: New account, $60,000, AND a country mismatch

	   EXPECTED BEHAVIOR:
	   - high-value (+0.25) + new-account-large (+0.18) + geo-mismatch (+0.15)
	   - Total 0.58 >= 0.50 → FLAGGED
	*/
	config := getTestConfig()

	result := mustPredict(t, config, "/predict/transaction", TransactionRequest{
		UserID:          uniqueUserID(),
		Amount:          60000,
		Currency:        "USD",
		Channel:         "web",
		CountryMismatch: true,
	})

	if !result.Result.Decision {
		t.Errorf("Expected compound risk flagged, got score=%.4f (reasons: %v)",
			result.Result.ScoreFinal, result.Result.Reasons)
	}
	if result.Result.RulesContribution != 100.0 {
		t.Errorf("Expected rules to carry the whole score, got %.1f%%", result.Result.RulesContribution)
	}

	t.Logf("✓ Compound risk flagged: score=%.4f, confidence=%s, reasons=%v",
		result.Result.ScoreFinal, result.Result.Confidence, result.Result.Reasons)
}

// ============================================================================
// SCENARIO 5: Velocity Spike Across Repeated Transactions
// ============================================================================

func TestVelocitySpike_HistoryAccumulates(t *testing.T) {
	/*
	   SCENARIO: The same user fires 7 transactions back to back

	   EXPECTED BEHAVIOR:
	   - Early transactions carry no velocity boost
	   - Once more than 5 land inside the 1-hour window, velocity-spike
	     (+0.20) joins the reasons on subsequent scoring
	*/
	config := getTestConfig()
	userID := uniqueUserID()

	var last PredictResponse
	for i := 0; i < 7; i++ {
		last = mustPredict(t, config, "/predict/transaction", TransactionRequest{
			UserID:   userID,
			Amount:   250,
			Currency: "USD",
			Channel:  "web",
		})
	}

	found := false
	for _, reason := range last.Result.Reasons {
		if reason == "High transaction velocity (5+ in 1 hour)" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected velocity-spike reason after 7 rapid transactions, got %v", last.Result.Reasons)
	}

	t.Logf("✓ Velocity spike detected: score=%.4f, reasons=%v", last.Result.ScoreFinal, last.Result.Reasons)
}

// ============================================================================
// SCENARIO 6: Validation and Auth Errors
// ============================================================================

func TestValidationErrors(t *testing.T) {
	config := getTestConfig()

	t.Run("ZeroAmount", func(t *testing.T) {
		_, status := predict(t, config, "/predict/transaction", TransactionRequest{
			UserID:   uniqueUserID(),
			Amount:   0,
			Currency: "USD",
		})
		if status != http.StatusBadRequest {
			t.Errorf("Expected 400 for zero amount, got %d", status)
		}
	})

	t.Run("BadCurrency", func(t *testing.T) {
		_, status := predict(t, config, "/predict/transaction", TransactionRequest{
			UserID:   uniqueUserID(),
			Amount:   100,
			Currency: "DOLLARS",
		})
		if status != http.StatusBadRequest {
			t.Errorf("Expected 400 for non-ISO currency, got %d", status)
		}
	})

	t.Run("MissingReviewText", func(t *testing.T) {
		_, status := predict(t, config, "/predict/review", ReviewRequest{
			UserID: uniqueUserID(),
			Rating: 5,
		})
		if status != http.StatusBadRequest {
			t.Errorf("Expected 400 for missing review text, got %d", status)
		}
	})

	t.Run("MissingAPIKey", func(t *testing.T) {
		noAuth := config
		noAuth.APIKey = ""
		_, status := predict(t, noAuth, "/predict/transaction", TransactionRequest{
			UserID:   uniqueUserID(),
			Amount:   100,
			Currency: "USD",
		})
		if status != http.StatusUnauthorized {
			t.Errorf("Expected 401 without credentials, got %d", status)
		}
	})
}

// ============================================================================
// SCENARIO 7: Scored Events Are Retrievable
// ============================================================================

func TestScoredTransaction_Retrievable(t *testing.T) {
	config := getTestConfig()

	scored := mustPredict(t, config, "/predict/transaction", TransactionRequest{
		UserID:   uniqueUserID(),
		Amount:   60000,
		Currency: "USD",
	})

	// Fetch twice: the first read warms the decision cache, the second is
	// served from it. Both must carry the event and the stored decision.
	client := &http.Client{Timeout: 10 * time.Second}
	for _, read := range []string{"store", "cache"} {
		httpReq, err := http.NewRequest("GET", fmt.Sprintf("%s/transactions/%d", config.BaseURL, scored.ID), nil)
		if err != nil {
			t.Fatalf("Failed to create request: %v", err)
		}
		httpReq.Header.Set("X-API-Key", config.APIKey)

		resp, err := client.Do(httpReq)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			t.Fatalf("%s read: expected status 200, got %d", read, resp.StatusCode)
		}

		var fetched struct {
			ID     int64          `json:"id"`
			Event  map[string]any `json:"event"`
			Result Decision       `json:"result"`
		}
		err = json.NewDecoder(resp.Body).Decode(&fetched)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("%s read: failed to decode response: %v", read, err)
		}

		if fetched.ID != scored.ID {
			t.Errorf("%s read: expected ID %d, got %d", read, scored.ID, fetched.ID)
		}
		if fetched.Event == nil {
			t.Errorf("%s read: missing event field", read)
		} else if amount, _ := fetched.Event["amount"].(float64); amount != 60000 {
			t.Errorf("%s read: event amount = %v, want 60000", read, fetched.Event["amount"])
		}
		if fetched.Result.ScoreFinal != scored.Result.ScoreFinal {
			t.Errorf("%s read: expected stored score %.4f, got %.4f", read, scored.Result.ScoreFinal, fetched.Result.ScoreFinal)
		}

		t.Logf("✓ Scored transaction retrievable (%s): id=%d, score=%.4f", read, fetched.ID, fetched.Result.ScoreFinal)
	}
}
