package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// mockState tracks the liveness code and next change time for one streamer.
type mockState struct {
	codeIdx      int
	nextChangeAt time.Time
}

// liveCodes are the CHANNEL.RESULT values a mock streamer cycles through:
// offline, live, restricted live.
var liveCodes = []int{0, 1, -6}

// StartMockLiveAPI runs a mock SOOP liveness endpoint at
// /afreeca/player_live_api.php. Each streamer changes code every 20-60
// seconds. Call this in a goroutine before starting livedeck.
func StartMockLiveAPI(addr string) {
	var (
		states = make(map[string]*mockState)
		mu     sync.Mutex
	)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /afreeca/player_live_api.php", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		bid := r.PostForm.Get("bid")

		// simulate network latency
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

		mu.Lock()
		state, exists := states[bid]
		if !exists {
			state = &mockState{
				codeIdx:      rand.Intn(len(liveCodes)),
				nextChangeAt: time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second),
			}
			states[bid] = state
		}
		if time.Now().After(state.nextChangeAt) {
			oldCode := liveCodes[state.codeIdx]
			state.codeIdx = (state.codeIdx + 1) % len(liveCodes)
			state.nextChangeAt = time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
			slog.Info("liveness change", "bid", bid, "from", oldCode, "to", liveCodes[state.codeIdx])
		}
		code := liveCodes[state.codeIdx]
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"CHANNEL": map[string]any{
				"BNO":    0,
				"BJID":   bid,
				"RESULT": code,
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
