package intake

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrencyMiddleware_RejectsWhileSlotIsHeld(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	// o primeiro envio segura a vaga até liberarmos.
	first := true
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if first {
			first = false
			close(started)
			<-release
		}
		w.WriteHeader(http.StatusAccepted)
	})

	h := ConcurrencyMiddleware(ConcurrencyOptions{
		Max:            1,
		AcquireTimeout: 25 * time.Millisecond,
	})(next)

	firstDone := make(chan int, 1)
	go func() {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://example/submissions", nil))
		firstDone <- w.Code
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting first request to start")
	}

	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, httptest.NewRequest(http.MethodPost, "http://example/submissions", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w2.Code)

	close(release)
	require.Equal(t, http.StatusAccepted, <-firstDone)

	w3 := httptest.NewRecorder()
	h.ServeHTTP(w3, httptest.NewRequest(http.MethodPost, "http://example/submissions", nil))
	assert.Equal(t, http.StatusAccepted, w3.Code, "slot must be released after the first request")
}

func TestConcurrencyMiddleware_DisabledWhenMaxIsZero(t *testing.T) {
	called := false
	h := ConcurrencyMiddleware(ConcurrencyOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "http://example/submissions", nil))
	assert.True(t, called)
}
