// Standalone mock SOOP liveness endpoint for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/livedeck watch -c example/livedeck.yaml
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"
)

func main() {
	fmt.Println("Mock liveness endpoint starting on :9999")
	fmt.Println("Streamers cycle through: offline → live → restricted")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		codes = make(map[string]int)
		mu    sync.Mutex
		cycle = []int{0, 1, -6}
	)

	http.HandleFunc("POST /afreeca/player_live_api.php", func(w http.ResponseWriter, r *http.Request) {
		bid := r.PostFormValue("bid")

		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

		mu.Lock()
		idx := codes[bid]
		// roughly one flip per 20 polls
		if rand.Intn(20) == 0 {
			idx = (idx + 1) % len(cycle)
			slog.Info("liveness change", "bid", bid, "to", cycle[idx])
		}
		codes[bid] = idx
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"CHANNEL": map[string]any{"RESULT": cycle[idx]},
		})
	})

	if err := http.ListenAndServe(":9999", nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
