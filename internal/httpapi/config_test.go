package httpapi

import "testing"

func TestSetMaxBodyBytes(t *testing.T) {
	orig := maxBodyBytes
	t.Cleanup(func() { maxBodyBytes = orig })

	SetMaxBodyBytes(2048)
	if maxBodyBytes != 2048 {
		t.Fatalf("maxBodyBytes=%d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("non-positive should restore default, got %d", maxBodyBytes)
	}
}

func TestSetCORSOptionsCopies(t *testing.T) {
	t.Cleanup(func() { SetCORSOptions(false, nil, nil, nil) })

	origins := []string{"http://localhost:3000"}
	SetCORSOptions(true, origins, []string{"GET"}, []string{"Content-Type"})
	origins[0] = "mutated"
	if !corsEnabled || corsAllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("options must be copied: %v", corsAllowedOrigins)
	}
}
