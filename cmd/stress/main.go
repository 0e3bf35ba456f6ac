package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/adapter/handler"
)

// Hammers a running server with concurrent checkouts of one item. Exactly
// one request may win; everyone else must see a conflict.
func main() {
	baseURL := getenv("BASE_URL", "http://localhost:8080")
	item := getenv("STRESS_ITEM", "Keyboard")
	kerb := getenv("STRESS_KERB", "user1")
	totalRequests := getint("STRESS_REQUESTS", 50)

	client := &http.Client{Timeout: 10 * time.Second}

	// Start from a released item; a leftover loan would skew the counts.
	status, _ := checkin(client, baseURL, item)
	if status != http.StatusOK && status != http.StatusConflict {
		log.Fatalf("could not reset item %q: status %d", item, status)
	}

	var successCount atomic.Int32
	var conflictCount atomic.Int32
	var otherCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			status, err := checkout(client, baseURL, kerb, item)
			switch {
			case err != nil:
				otherCount.Add(1)
			case status == http.StatusOK:
				successCount.Add(1)
			case status == http.StatusConflict:
				conflictCount.Add(1)
			default:
				otherCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	conflict := conflictCount.Load()
	other := otherCount.Load()

	fmt.Println("========== CHECKOUT STRESS RESULTS ==========")
	fmt.Printf("Item:             %s\n", item)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Checked Out:      %d\n", success)
	fmt.Printf("Conflicts:        %d\n", conflict)
	fmt.Printf("Other/Errors:     %d\n", other)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=============================================")

	if success == 1 && conflict == int32(totalRequests-1) {
		fmt.Println("PASS: exactly one checkout won")
	} else {
		fmt.Printf("FAIL: expected 1 success/%d conflicts, got %d/%d\n",
			totalRequests-1, success, conflict)
	}

	// Release the loan so the next run starts clean.
	if status, err := checkin(client, baseURL, item); err != nil || status != http.StatusOK {
		fmt.Printf("WARN: cleanup checkin returned status %d err %v\n", status, err)
	}
}

func checkout(client *http.Client, baseURL, kerb, item string) (int, error) {
	body, _ := json.Marshal(handler.CheckoutHTTPRequest{Kerb: kerb, Item: item, Days: 7})
	resp, err := client.Post(baseURL+"/api/checkout", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func checkin(client *http.Client, baseURL, item string) (int, error) {
	body, _ := json.Marshal(handler.CheckinHTTPRequest{Item: item})
	resp, err := client.Post(baseURL+"/api/checkin", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
