package httputil_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/wonny/aegis-pit/backend/pkg/config"
	"github.com/wonny/aegis-pit/backend/pkg/httputil"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

// Example_getJSON demonstrates a throttled JSON GET
func Example_getJSON() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"000"}`))
	}))
	defer server.Close()

	cfg := &config.Config{Env: "test", LogLevel: "error"}

	// Create HTTP client (SSOT), 5 requests per second
	client := httputil.New(cfg, logger.NewNop()).
		WithRetry(2, 100*time.Millisecond).
		WithRateLimit(5)

	var out struct {
		Status string `json:"status"`
	}
	if err := client.GetJSON(context.Background(), server.URL, &out); err != nil {
		fmt.Printf("Request failed: %v\n", err)
		return
	}

	fmt.Println(out.Status)
	// Output: 000
}
