package integration

import (
	"net/http"
	"testing"
)

// Benchmark for GET /api/products; to run: BASE_URL=... go test -bench=. ./test/integration -run ^$
func BenchmarkListProducts(b *testing.B) {
	u := baseURL(b)
	client := &http.Client{}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			resp, err := client.Get(u + "/api/products")
			if err == nil {
				_ = resp.Body.Close()
			}
		}
	})
}
