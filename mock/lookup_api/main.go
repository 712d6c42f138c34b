// Command lookup_api is a local stand-in for a paid profile lookup API.
// Point sources.paid.primary.base_url at it during development.
//
// Handles "ratelimited" and "unauthorized" force the matching upstream
// failure; unknown handles answer 404.
package main

import (
	_ "embed"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"
)

//go:embed data.json
var profileData []byte

const apiKeyHeader = "X-RapidAPI-Key"

func main() {
	var profiles map[string]json.RawMessage
	if err := json.Unmarshal(profileData, &profiles); err != nil {
		log.Fatalf("[Lookup API] invalid data.json: %v", err)
	}

	apiKey := os.Getenv("MOCK_API_KEY")

	http.HandleFunc("/v1/info", func(w http.ResponseWriter, r *http.Request) {
		// Simulate network latency (50-200ms)
		time.Sleep(time.Duration(50+time.Now().UnixNano()%150) * time.Millisecond)

		handle := r.URL.Query().Get("username_or_id_or_url")
		status := http.StatusOK
		var body []byte

		switch {
		case r.Header.Get(apiKeyHeader) == "" || (apiKey != "" && r.Header.Get(apiKeyHeader) != apiKey):
			status, body = http.StatusUnauthorized, []byte(`{"message":"invalid API key"}`)
		case handle == "ratelimited":
			status, body = http.StatusTooManyRequests, []byte(`{"message":"too many requests"}`)
			w.Header().Set("Retry-After", "60")
		case handle == "unauthorized":
			status, body = http.StatusUnauthorized, []byte(`{"message":"subscription expired"}`)
		default:
			p, ok := profiles[handle]
			if !ok {
				status, body = http.StatusNotFound, []byte(`{"message":"user not found"}`)
				break
			}
			body = append(append([]byte(`{"data":`), p...), '}')
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if _, err := w.Write(body); err != nil {
			log.Printf("[Lookup API] Write error: %v", err)
		}

		log.Printf("[Lookup API] %s %s handle=%q - %d", r.Method, r.URL.Path, handle, status)
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
			log.Printf("[Lookup API] Health write error: %v", err)
		}
	})

	log.Println("Mock lookup API running on :8081")
	server := &http.Server{
		Addr:         ":8081",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
